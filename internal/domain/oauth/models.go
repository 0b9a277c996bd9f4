package oauth

import "time"

// AuthorizationRequest is the ephemeral record created by the authorize
// endpoint. It lives in the ephemeral store under its id with a 10 minute TTL
// and is deleted exactly once, when a code is issued from it.
type AuthorizationRequest struct {
	ID                  string    `json:"id"`
	ProjectID           int64     `json:"project_id"`
	RedirectURI         string    `json:"redirect_uri"`
	Provider            string    `json:"provider"`
	State               string    `json:"state,omitempty"`
	CodeChallenge       string    `json:"code_challenge"`
	CodeChallengeMethod string    `json:"code_challenge_method"`
	CreatedAt           time.Time `json:"created_at"`
}

// Identity is the authenticated end-user snapshot captured when an
// authorization request completes.
type Identity struct {
	UserID         int64  `json:"user_id"`
	ProviderUserID string `json:"provider_user_id,omitempty"`
	Email          string `json:"email"`
	EmailVerified  bool   `json:"email_verified"`
	Username       string `json:"username,omitempty"`
	Picture        string `json:"picture,omitempty"`
	Provider       string `json:"provider"`
}

// AuthorizationCode is the single-use grant exchanged for tokens. It carries
// the fields of its originating request plus the identity snapshot.
type AuthorizationCode struct {
	Code                string    `json:"code"`
	ProjectID           int64     `json:"project_id"`
	RedirectURI         string    `json:"redirect_uri"`
	Provider            string    `json:"provider"`
	State               string    `json:"state,omitempty"`
	CodeChallenge       string    `json:"code_challenge"`
	CodeChallengeMethod string    `json:"code_challenge_method"`
	User                Identity  `json:"user"`
	CreatedAt           time.Time `json:"created_at"`
}

// Profile is the normalized end-user profile returned by provider adapters.
type Profile struct {
	ProviderUserID string `json:"provider_user_id"`
	Email          string `json:"email"`
	Username       string `json:"username"`
	Picture        string `json:"picture,omitempty"`
}

// AuthContextKind tags the entry point an authentication flow came from.
type AuthContextKind string

const (
	AuthContextDev AuthContextKind = "dev"
	AuthContextCLI AuthContextKind = "cli"
	AuthContextSDK AuthContextKind = "sdk"
)

// AuthContext is the tagged variant threaded to provider adapters. SDK flows
// carry the authorization request id so the provider callback can resume the
// pending request.
type AuthContext struct {
	Kind         AuthContextKind
	SDKRequestID string
}
