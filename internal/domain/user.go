package domain

import "time"

// User status values.
const (
	UserStatusActive    = "ACTIVE"
	UserStatusSuspended = "SUSPENDED"
)

// User represents an end user belonging to a project.
type User struct {
	ID             int64
	ProjectID      int64
	Email          string
	EmailVerified  bool
	PasswordHash   string
	Username       string
	AvatarURL      string
	Provider       string
	ProviderUserID string
	Status         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
