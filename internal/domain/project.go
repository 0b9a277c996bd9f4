package domain

import (
	"strings"
	"time"
)

// TokenValidity carries the per-project token lifetimes in seconds. Zero
// values fall back to the service defaults.
type TokenValidity struct {
	AccessTTLSeconds  int
	RefreshTTLSeconds int
}

// Webhook is a project-registered delivery endpoint. The secret is generated
// at registration and never re-derivable; rotation means delete and
// re-register.
type Webhook struct {
	ID        int64
	URL       string
	Secret    string
	Events    []string
	IsActive  bool
	CreatedAt time.Time
}

// Project is a developer-owned tenant. The core reads projects but never
// mutates them; writes belong to the project CRUD service.
type Project struct {
	ID                       int64
	OwnerID                  int64
	Name                     string
	PublicKey                string
	PrivateKey               string
	RedirectURIs             []string
	AllowedOrigins           []string
	EnabledProviders         []string
	TokenValidity            TokenValidity
	RequireEmailVerification bool
	Webhooks                 []Webhook
	IsActive                 bool
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// ProviderEnabled reports whether the named provider is enabled for the
// project, ignoring case.
func (p Project) ProviderEnabled(name string) bool {
	for _, enabled := range p.EnabledProviders {
		if strings.EqualFold(enabled, name) {
			return true
		}
	}
	return false
}

// RedirectURIRegistered reports whether the redirect URI is registered for
// the project.
func (p Project) RedirectURIRegistered(uri string) bool {
	for _, registered := range p.RedirectURIs {
		if registered == uri {
			return true
		}
	}
	return false
}
