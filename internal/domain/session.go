package domain

import "time"

// Session backs a long-lived refresh token. Sessions are append-only: normal
// flow only flips IsValid, never deletes rows.
type Session struct {
	ID           int64
	ProjectID    int64
	UserID       int64
	RefreshToken string
	ExpiresAt    time.Time
	IsValid      bool
	IPAddress    string
	UserAgent    string
	CreatedAt    time.Time
}

// Expired reports whether the session has passed its expiry.
func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
