package oauth

import "errors"

var (
	// ErrInvalidRequest indicates caller input validation errors.
	ErrInvalidRequest = errors.New("oauth: invalid request")
	// ErrProjectNotFound signals an unknown or inactive project.
	ErrProjectNotFound = errors.New("oauth: project not found or inactive")
	// ErrRequestExpired indicates the authorization request is absent,
	// expired, or already consumed.
	ErrRequestExpired = errors.New("oauth: authorization request invalid or expired")
	// ErrInvalidGrant indicates an expired, consumed, or PKCE-mismatched code
	// or refresh token.
	ErrInvalidGrant = errors.New("oauth: invalid grant")
	// ErrInvalidClient indicates a client id that does not match the project.
	ErrInvalidClient = errors.New("oauth: invalid client")
	// ErrOriginNotAllowed indicates the request origin is outside the
	// project's allowlist.
	ErrOriginNotAllowed = errors.New("oauth: origin not allowed")
	// ErrDuplicateCallback signals a concurrent duplicate redemption of the
	// same provider callback. Retry-safe: the first claim wins.
	ErrDuplicateCallback = errors.New("oauth: duplicate provider callback")
	// ErrProviderNotFound signals a provider with no registered adapter.
	ErrProviderNotFound = errors.New("oauth: provider not found")
	// ErrVerificationCodeMismatch indicates a wrong or expired email
	// verification code.
	ErrVerificationCodeMismatch = errors.New("oauth: verification code mismatch")
)
