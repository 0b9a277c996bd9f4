package jwt

import (
	"fmt"
	"strconv"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"

	"github.com/smallbiznis/portal-auth/internal/domain"
)

// Generator signs and validates project access tokens. Tokens are HS256 JWTs
// signed with the project's private key, so verification is stateless.
type Generator struct {
	defaultAccessTTL time.Duration
}

// NewGenerator constructs a generator with the fallback access token TTL.
func NewGenerator(defaultAccessTTL time.Duration) *Generator {
	return &Generator{defaultAccessTTL: defaultAccessTTL}
}

// AccessTokenClaims is the custom claim set carried by access tokens.
type AccessTokenClaims struct {
	ProjectID int64  `json:"project_id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
}

// AccessTTL returns the project's configured access token lifetime, falling
// back to the generator default.
func (g *Generator) AccessTTL(project domain.Project) time.Duration {
	if project.TokenValidity.AccessTTLSeconds > 0 {
		return time.Duration(project.TokenValidity.AccessTTLSeconds) * time.Second
	}
	return g.defaultAccessTTL
}

// GenerateAccessToken produces a signed JWT for the user, returning the
// token and its expiry.
func (g *Generator) GenerateAccessToken(project domain.Project, user domain.User) (string, time.Time, error) {
	signer, err := gojose.NewSigner(
		gojose.SigningKey{Algorithm: gojose.HS256, Key: []byte(project.PrivateKey)},
		(&gojose.SignerOptions{}).WithType("JWT").WithHeader("kid", project.PublicKey),
	)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("new signer: %w", err)
	}

	now := time.Now().UTC()
	expiry := now.Add(g.AccessTTL(project))

	stdClaims := gojwt.Claims{
		Subject:   strconv.FormatInt(user.ID, 10),
		IssuedAt:  gojwt.NewNumericDate(now),
		NotBefore: gojwt.NewNumericDate(now),
		Expiry:    gojwt.NewNumericDate(expiry),
	}
	custom := AccessTokenClaims{
		ProjectID: project.ID,
		Email:     user.Email,
		Username:  user.Username,
	}

	token, err := gojwt.Signed(signer).Claims(stdClaims).Claims(custom).Serialize()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("serialize jwt: %w", err)
	}
	return token, expiry, nil
}

// ValidateAccessToken verifies the token signature against the project key
// and returns both claim sets.
func (g *Generator) ValidateAccessToken(project domain.Project, token string) (*gojwt.Claims, *AccessTokenClaims, error) {
	parsed, err := gojwt.ParseSigned(token, []gojose.SignatureAlgorithm{gojose.HS256})
	if err != nil {
		return nil, nil, fmt.Errorf("parse token: %w", err)
	}

	var std gojwt.Claims
	var custom AccessTokenClaims
	if err := parsed.Claims([]byte(project.PrivateKey), &std, &custom); err != nil {
		return nil, nil, fmt.Errorf("verify token: %w", err)
	}
	if err := std.Validate(gojwt.Expected{Time: time.Now().UTC()}); err != nil {
		return nil, nil, fmt.Errorf("validate claims: %w", err)
	}
	if custom.ProjectID != project.ID {
		return nil, nil, fmt.Errorf("token project mismatch")
	}
	return &std, &custom, nil
}
