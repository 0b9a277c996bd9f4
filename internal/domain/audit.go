package domain

import "time"

// AuditCategory classifies audit log entries.
type AuditCategory string

const (
	AuditCategoryProject  AuditCategory = "project"
	AuditCategorySecurity AuditCategory = "security"
	AuditCategoryUser     AuditCategory = "user"
	AuditCategoryAPI      AuditCategory = "api"
	AuditCategorySystem   AuditCategory = "system"
)

// ActorType identifies who performed an audited action.
type ActorType string

const (
	ActorDeveloper ActorType = "developer"
	ActorUser      ActorType = "user"
	ActorSystem    ActorType = "system"
)

// AuditActor describes the acting principal of an audit entry.
type AuditActor struct {
	Type ActorType
	ID   string
	Name string
}

// AuditMetadata carries request-scoped context for an audit entry.
type AuditMetadata struct {
	IP         string
	UserAgent  string
	ResourceID string
	Details    map[string]any
}

// AuditLogEntry is an immutable record of a security-relevant transition.
// Entries are appended and never mutated or deleted by the core.
type AuditLogEntry struct {
	ID          int64
	DeveloperID int64
	ProjectID   int64
	Action      string
	Description string
	Category    AuditCategory
	Actor       AuditActor
	Metadata    AuditMetadata
	CreatedAt   time.Time
}

// Notification is the developer-facing companion record of an audit entry.
type Notification struct {
	ID          int64
	DeveloperID int64
	Title       string
	Body        string
	IsRead      bool
	CreatedAt   time.Time
}
