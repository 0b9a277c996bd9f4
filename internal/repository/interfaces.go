package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/portal-auth/internal/domain"
)

// EphemeralStore is a key-value cache with per-key TTL. SetIfAbsent is the
// only atomic primitive the rest of the system relies on for single-use and
// dedup guarantees: when the key already holds a live value the set is
// rejected and the existing value is untouched.
type EphemeralStore interface {
	// Get returns (nil, nil) when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetIfAbsent returns false when the key already holds a live value.
	SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

// ProjectRepository exposes read-only project lookups. Project writes belong
// to the developer CRUD service.
type ProjectRepository interface {
	GetByPublicKey(ctx context.Context, publicKey string) (domain.Project, error)
	GetByID(ctx context.Context, projectID int64) (domain.Project, error)
	GetOwnerID(ctx context.Context, projectID int64) (int64, error)
}

// UserRepository exposes persistence for project end users.
type UserRepository interface {
	GetByEmail(ctx context.Context, projectID int64, email string) (domain.User, error)
	GetByID(ctx context.Context, projectID, userID int64) (domain.User, error)
	GetByProviderSubject(ctx context.Context, projectID int64, provider, subject string) (domain.User, error)
	Create(ctx context.Context, user domain.User) (domain.User, error)
	MarkEmailVerified(ctx context.Context, projectID, userID int64) error
}

// SessionRepository handles refresh session persistence.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) (domain.Session, error)
	GetByRefreshToken(ctx context.Context, refreshToken string) (domain.Session, error)
	Invalidate(ctx context.Context, sessionID int64) error
}

// AuditRepository appends immutable audit log entries.
type AuditRepository interface {
	Append(ctx context.Context, entry domain.AuditLogEntry) error
}

// NotificationRepository stores developer notifications.
type NotificationRepository interface {
	Create(ctx context.Context, notification domain.Notification) error
}
