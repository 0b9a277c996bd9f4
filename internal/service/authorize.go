// Package service implements the authorization flow: validated authorize
// requests, authentication completion, single-use code issuance and the
// code-for-token exchange.
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/smallbiznis/portal-auth/internal/adapter/provider"
	"github.com/smallbiznis/portal-auth/internal/audit"
	"github.com/smallbiznis/portal-auth/internal/cors"
	"github.com/smallbiznis/portal-auth/internal/domain"
	"github.com/smallbiznis/portal-auth/internal/domain/oauth"
	"github.com/smallbiznis/portal-auth/internal/mail"
	"github.com/smallbiznis/portal-auth/internal/password"
	"github.com/smallbiznis/portal-auth/internal/repository"
	"github.com/smallbiznis/portal-auth/internal/webhook"
)

// ProviderLocal is the built-in email/password provider.
const ProviderLocal = "local"

const (
	authRequestTTL   = 10 * time.Minute
	authCodeTTL      = 10 * time.Minute
	verificationTTL  = 10 * time.Minute
	callbackClaimTTL = time.Minute

	authRequestPrefix      = "authreq:"
	authRequestClaimPrefix = "authreq:claim:"
	authCodePrefix         = "authcode:"
	authCodeClaimPrefix    = "authcode:claim:"
	callbackClaimPrefix    = "cbclaim:"
	verificationPrefix     = "verify:"
)

// AuthorizationService owns the authorization request lifecycle from the
// initial authorize call through code redemption.
type AuthorizationService struct {
	projects  repository.ProjectRepository
	users     repository.UserRepository
	store     repository.EphemeralStore
	providers *provider.Registry
	sessions  *SessionService
	webhooks  *webhook.Dispatcher
	trail     *audit.Trail
	mailer    mail.Sender
	node      *snowflake.Node
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewAuthorizationService wires dependencies.
func NewAuthorizationService(
	projects repository.ProjectRepository,
	users repository.UserRepository,
	store repository.EphemeralStore,
	providers *provider.Registry,
	sessions *SessionService,
	webhooks *webhook.Dispatcher,
	trail *audit.Trail,
	mailer mail.Sender,
	node *snowflake.Node,
	logger *zap.Logger,
) *AuthorizationService {
	if logger == nil {
		logger = zap.L()
	}
	return &AuthorizationService{
		projects:  projects,
		users:     users,
		store:     store,
		providers: providers,
		sessions:  sessions,
		webhooks:  webhooks,
		trail:     trail,
		mailer:    mailer,
		node:      node,
		logger:    logger,
		tracer:    otel.Tracer("github.com/smallbiznis/portal-auth/internal/service"),
	}
}

// AuthorizeInput carries the query parameters of an authorize call.
type AuthorizeInput struct {
	PublicKey           string
	ProjectID           int64
	RedirectURI         string
	Provider            string
	ResponseType        string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
	Context             oauth.AuthContext
}

// AuthorizeOutput is the created pending request. ProviderAuthURL is empty
// for the local provider, which authenticates against the login endpoint
// instead of an upstream redirect.
type AuthorizeOutput struct {
	RequestID       string
	Provider        string
	ProviderAuthURL string
}

// Authorize validates the request against the project configuration and
// stores a pending authorization request.
func (s *AuthorizationService) Authorize(ctx context.Context, in AuthorizeInput) (*AuthorizeOutput, error) {
	ctx, span := s.tracer.Start(ctx, "AuthorizationService.Authorize",
		trace.WithAttributes(attribute.String("oauth.provider", in.Provider)))
	defer span.End()

	if in.ResponseType != "code" {
		return nil, fmt.Errorf("%w: response_type must be code", oauth.ErrInvalidRequest)
	}
	if strings.TrimSpace(in.RedirectURI) == "" {
		return nil, fmt.Errorf("%w: redirect_uri is required", oauth.ErrInvalidRequest)
	}
	if strings.TrimSpace(in.Provider) == "" {
		return nil, fmt.Errorf("%w: provider is required", oauth.ErrInvalidRequest)
	}
	if in.ProjectID == 0 {
		return nil, fmt.Errorf("%w: project_id is required", oauth.ErrInvalidRequest)
	}
	if strings.TrimSpace(in.CodeChallenge) == "" {
		return nil, fmt.Errorf("%w: code_challenge is required", oauth.ErrInvalidRequest)
	}
	if !strings.EqualFold(in.CodeChallengeMethod, "S256") {
		return nil, fmt.Errorf("%w: code_challenge_method must be S256", oauth.ErrInvalidRequest)
	}

	project, err := s.projects.GetByPublicKey(ctx, in.PublicKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, oauth.ErrProjectNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("load project: %w", err)
	}
	if !project.IsActive || in.ProjectID != project.ID {
		return nil, oauth.ErrProjectNotFound
	}
	if !project.RedirectURIRegistered(in.RedirectURI) {
		return nil, fmt.Errorf("%w: redirect_uri is not registered", oauth.ErrInvalidRequest)
	}
	if !project.ProviderEnabled(in.Provider) {
		return nil, fmt.Errorf("%w: provider %q is not enabled", oauth.ErrInvalidRequest, in.Provider)
	}

	request := oauth.AuthorizationRequest{
		ID:                  randomToken(32),
		ProjectID:           project.ID,
		RedirectURI:         in.RedirectURI,
		Provider:            in.Provider,
		State:               in.State,
		CodeChallenge:       in.CodeChallenge,
		CodeChallengeMethod: "S256",
		CreatedAt:           time.Now().UTC(),
	}
	payload, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("marshal authorization request: %w", err)
	}
	if err := s.store.Set(ctx, authRequestPrefix+request.ID, payload, authRequestTTL); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("store authorization request: %w", err)
	}

	out := &AuthorizeOutput{RequestID: request.ID, Provider: request.Provider}
	if !strings.EqualFold(request.Provider, ProviderLocal) {
		adapter, ok := s.providers.Adapter(request.Provider)
		if !ok {
			return nil, oauth.ErrProviderNotFound
		}
		authCtx := in.Context
		if authCtx.Kind == "" {
			authCtx = oauth.AuthContext{Kind: oauth.AuthContextSDK, SDKRequestID: request.ID}
		}
		authURL, err := adapter.GetAuthURL(ctx, authCtx)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("build provider auth url: %w", err)
		}
		out.ProviderAuthURL = authURL
	}

	s.logger.Info("authorization request created",
		zap.Int64("project_id", project.ID),
		zap.String("provider", request.Provider),
	)
	return out, nil
}

// CompletionResult is the outcome of an authentication attempt. Either a
// verification challenge was issued, or a single-use code is ready to be
// delivered to the registered redirect URI.
type CompletionResult struct {
	VerificationRequired bool
	Code                 string
	RedirectURI          string
	State                string
}

// CompleteAuthentication finishes a pending request for an authenticated
// identity. When the project requires verified emails and this identity is
// not verified yet, a verification code is issued instead and the request
// stays pending so the flow can resume after verification.
func (s *AuthorizationService) CompleteAuthentication(ctx context.Context, requestID string, identity oauth.Identity) (*CompletionResult, error) {
	ctx, span := s.tracer.Start(ctx, "AuthorizationService.CompleteAuthentication")
	defer span.End()

	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	project, err := s.projectByID(ctx, request.ProjectID)
	if err != nil {
		return nil, err
	}

	if project.RequireEmailVerification && !identity.EmailVerified {
		if err := s.issueVerificationCode(ctx, project, identity); err != nil {
			return nil, err
		}
		return &CompletionResult{VerificationRequired: true}, nil
	}

	// Claim the request before issuing a code so that two racing completions
	// produce exactly one code. The claim marker, not the record itself, is
	// the single-use guard.
	claimed, err := s.store.SetIfAbsent(ctx, authRequestClaimPrefix+request.ID, []byte("1"), authRequestTTL)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("claim authorization request: %w", err)
	}
	if !claimed {
		return nil, oauth.ErrRequestExpired
	}

	code := oauth.AuthorizationCode{
		Code:                randomToken(32),
		ProjectID:           request.ProjectID,
		RedirectURI:         request.RedirectURI,
		Provider:            request.Provider,
		State:               request.State,
		CodeChallenge:       request.CodeChallenge,
		CodeChallengeMethod: request.CodeChallengeMethod,
		User:                identity,
		CreatedAt:           time.Now().UTC(),
	}
	payload, err := json.Marshal(code)
	if err != nil {
		return nil, fmt.Errorf("marshal authorization code: %w", err)
	}
	if err := s.store.Set(ctx, authCodePrefix+code.Code, payload, authCodeTTL); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("store authorization code: %w", err)
	}
	if err := s.store.Delete(ctx, authRequestPrefix+request.ID); err != nil {
		s.logger.Warn("authorization request cleanup failed", zap.Error(err))
	}

	s.trail.Record(audit.Entry{
		ProjectID:   project.ID,
		Action:      "authorization_code.issued",
		Description: fmt.Sprintf("Authorization code issued for %s", identity.Email),
		Category:    domain.AuditCategorySecurity,
		Actor:       identityActor(identity),
	})
	return &CompletionResult{
		Code:        code.Code,
		RedirectURI: request.RedirectURI,
		State:       request.State,
	}, nil
}

// LocalLogin authenticates an email/password pair against the project's user
// store and completes the pending request.
func (s *AuthorizationService) LocalLogin(ctx context.Context, requestID, email, pass string, meta RequestMeta) (*CompletionResult, error) {
	ctx, span := s.tracer.Start(ctx, "AuthorizationService.LocalLogin")
	defer span.End()

	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	project, err := s.projectByID(ctx, request.ProjectID)
	if err != nil {
		return nil, err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, project.ID, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: wrong email or password", oauth.ErrInvalidGrant)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("load user: %w", err)
	}

	ok, err := password.Verify(pass, user.PasswordHash)
	if err != nil || !ok {
		s.trail.Record(audit.Entry{
			ProjectID:   project.ID,
			Action:      "user.login_failed",
			Description: fmt.Sprintf("Failed login attempt for %s", email),
			Category:    domain.AuditCategorySecurity,
			Actor:       domain.AuditActor{Type: domain.ActorUser, ID: strconv.FormatInt(user.ID, 10)},
			Metadata:    auditMeta(meta, ""),
		})
		return nil, fmt.Errorf("%w: wrong email or password", oauth.ErrInvalidGrant)
	}

	return s.CompleteAuthentication(ctx, requestID, identityFromUser(user))
}

// VerifyEmail checks a pending verification code, marks the user verified
// and resumes the authorization request that triggered the challenge.
func (s *AuthorizationService) VerifyEmail(ctx context.Context, requestID, email, code string) (*CompletionResult, error) {
	ctx, span := s.tracer.Start(ctx, "AuthorizationService.VerifyEmail")
	defer span.End()

	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	project, err := s.projectByID(ctx, request.ProjectID)
	if err != nil {
		return nil, err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, project.ID, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, oauth.ErrVerificationCodeMismatch
		}
		span.RecordError(err)
		return nil, fmt.Errorf("load user: %w", err)
	}

	key := verificationKey(project.ID, user.ID)
	stored, err := s.store.Get(ctx, key)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("load verification code: %w", err)
	}
	if stored == nil || subtle.ConstantTimeCompare(stored, []byte(code)) != 1 {
		return nil, oauth.ErrVerificationCodeMismatch
	}

	if err := s.users.MarkEmailVerified(ctx, project.ID, user.ID); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("mark email verified: %w", err)
	}
	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Warn("verification code cleanup failed", zap.Error(err))
	}

	s.trail.Record(audit.Entry{
		ProjectID:   project.ID,
		Action:      "user.email_verified",
		Description: fmt.Sprintf("Email %s verified", email),
		Category:    domain.AuditCategoryUser,
		Actor:       userActor(user),
	})

	user.EmailVerified = true
	return s.CompleteAuthentication(ctx, requestID, identityFromUser(user))
}

// ProviderCallbackInput carries the redirect parameters from an upstream
// identity provider.
type ProviderCallbackInput struct {
	RequestID string
	Provider  string
	Code      string
	Meta      RequestMeta
}

// HandleProviderCallback redeems the provider code for a profile, maps it to
// a project user and completes the pending request. A replayed callback with
// the same provider code is rejected before the upstream exchange.
func (s *AuthorizationService) HandleProviderCallback(ctx context.Context, in ProviderCallbackInput) (*CompletionResult, error) {
	ctx, span := s.tracer.Start(ctx, "AuthorizationService.HandleProviderCallback",
		trace.WithAttributes(attribute.String("oauth.provider", in.Provider)))
	defer span.End()

	request, err := s.loadRequest(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(request.Provider, in.Provider) {
		return nil, fmt.Errorf("%w: provider mismatch", oauth.ErrInvalidRequest)
	}
	project, err := s.projectByID(ctx, request.ProjectID)
	if err != nil {
		return nil, err
	}

	// Browsers and link scanners replay callback URLs. Claim the provider
	// code before the upstream exchange so the replay loses deterministically
	// instead of burning a second upstream round trip.
	sum := sha256.Sum256([]byte(in.Code))
	claimKey := callbackClaimPrefix + strings.ToLower(in.Provider) + ":" + hex.EncodeToString(sum[:])
	claimed, err := s.store.SetIfAbsent(ctx, claimKey, []byte("1"), callbackClaimTTL)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("claim provider callback: %w", err)
	}
	if !claimed {
		return nil, oauth.ErrDuplicateCallback
	}

	adapter, ok := s.providers.Adapter(in.Provider)
	if !ok {
		return nil, oauth.ErrProviderNotFound
	}
	profile, err := adapter.ExchangeCode(ctx, in.Code)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("exchange provider code: %w", err)
	}

	user, err := s.ensureUser(ctx, project, request.Provider, *profile, in.Meta)
	if err != nil {
		return nil, err
	}
	return s.CompleteAuthentication(ctx, in.RequestID, identityFromUser(user))
}

// ExchangeInput carries the token endpoint parameters.
type ExchangeInput struct {
	Code         string
	CodeVerifier string
	ClientID     string
	Origin       string
	Meta         RequestMeta
}

// TokenResult is the token endpoint response body.
type TokenResult struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresAt    time.Time      `json:"expires_at"`
	User         oauth.Identity `json:"user"`
}

// Exchange redeems a single-use authorization code for a token pair. The code
// record is consumed atomically with issuance: concurrent redemptions of the
// same code yield exactly one token pair.
func (s *AuthorizationService) Exchange(ctx context.Context, in ExchangeInput) (*TokenResult, error) {
	ctx, span := s.tracer.Start(ctx, "AuthorizationService.Exchange")
	defer span.End()

	if strings.TrimSpace(in.Code) == "" {
		return nil, fmt.Errorf("%w: code is required", oauth.ErrInvalidGrant)
	}

	data, err := s.store.Get(ctx, authCodePrefix+in.Code)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("load authorization code: %w", err)
	}
	if data == nil {
		return nil, oauth.ErrInvalidGrant
	}
	var code oauth.AuthorizationCode
	if err := json.Unmarshal(data, &code); err != nil {
		return nil, fmt.Errorf("decode authorization code: %w", err)
	}

	project, err := s.projectByID(ctx, code.ProjectID)
	if err != nil {
		return nil, err
	}

	if code.CodeChallenge != "" {
		if !verifierMatches(in.CodeVerifier, code.CodeChallenge) {
			s.trail.Record(audit.Entry{
				ProjectID:   project.ID,
				Action:      "token.pkce_failed",
				Description: "Token exchange rejected: PKCE verifier mismatch",
				Category:    domain.AuditCategorySecurity,
				Actor:       identityActor(code.User),
				Metadata:    auditMeta(in.Meta, ""),
			})
			return nil, fmt.Errorf("%w: code_verifier does not match", oauth.ErrInvalidGrant)
		}
	}
	if in.ClientID != "" && in.ClientID != project.PublicKey {
		return nil, oauth.ErrInvalidClient
	}
	if err := cors.Check(project, in.Origin); err != nil {
		return nil, err
	}

	// All checks passed; claim the code. A failed PKCE attempt above did not
	// consume it, a concurrent valid redemption races on this marker.
	claimed, err := s.store.SetIfAbsent(ctx, authCodeClaimPrefix+in.Code, []byte("1"), authCodeTTL)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("claim authorization code: %w", err)
	}
	if !claimed {
		s.trail.Record(audit.Entry{
			ProjectID:   project.ID,
			Action:      "token.code_reused",
			Description: "Token exchange rejected: authorization code replay",
			Category:    domain.AuditCategorySecurity,
			Actor:       identityActor(code.User),
			Metadata:    auditMeta(in.Meta, ""),
		})
		return nil, oauth.ErrInvalidGrant
	}
	if err := s.store.Delete(ctx, authCodePrefix+in.Code); err != nil {
		s.logger.Warn("authorization code cleanup failed", zap.Error(err))
	}

	user := domain.User{
		ID:        code.User.UserID,
		ProjectID: project.ID,
		Email:     code.User.Email,
		Username:  code.User.Username,
	}
	pair, err := s.sessions.Issue(ctx, project, user, in.Meta)
	if err != nil {
		return nil, err
	}

	s.trail.Record(audit.Entry{
		ProjectID:   project.ID,
		Action:      "user.login",
		Description: fmt.Sprintf("User %s signed in via %s", code.User.Email, code.Provider),
		Category:    domain.AuditCategoryUser,
		Actor:       identityActor(code.User),
		Metadata:    auditMeta(in.Meta, ""),
	})
	s.webhooks.Publish(project, "user.login", map[string]any{
		"userId":   code.User.UserID,
		"email":    code.User.Email,
		"provider": code.Provider,
	})

	return &TokenResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
		User:         code.User,
	}, nil
}

func (s *AuthorizationService) loadRequest(ctx context.Context, requestID string) (oauth.AuthorizationRequest, error) {
	var request oauth.AuthorizationRequest
	if strings.TrimSpace(requestID) == "" {
		return request, fmt.Errorf("%w: request_id is required", oauth.ErrInvalidRequest)
	}
	data, err := s.store.Get(ctx, authRequestPrefix+requestID)
	if err != nil {
		return request, fmt.Errorf("load authorization request: %w", err)
	}
	if data == nil {
		return request, oauth.ErrRequestExpired
	}
	if err := json.Unmarshal(data, &request); err != nil {
		return request, fmt.Errorf("decode authorization request: %w", err)
	}
	return request, nil
}

func (s *AuthorizationService) projectByID(ctx context.Context, projectID int64) (domain.Project, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Project{}, oauth.ErrProjectNotFound
		}
		return domain.Project{}, fmt.Errorf("load project: %w", err)
	}
	if !project.IsActive {
		return domain.Project{}, oauth.ErrProjectNotFound
	}
	return project, nil
}

func (s *AuthorizationService) issueVerificationCode(ctx context.Context, project domain.Project, identity oauth.Identity) error {
	code, err := numericCode(6)
	if err != nil {
		return fmt.Errorf("generate verification code: %w", err)
	}
	key := verificationKey(project.ID, identity.UserID)
	if err := s.store.Set(ctx, key, []byte(code), verificationTTL); err != nil {
		return fmt.Errorf("store verification code: %w", err)
	}
	if err := s.mailer.SendVerificationCode(ctx, project, identity.Email, code); err != nil {
		s.logger.Warn("verification code delivery failed",
			zap.Int64("project_id", project.ID), zap.Error(err))
	}
	s.trail.Record(audit.Entry{
		ProjectID:   project.ID,
		Action:      "user.verification_requested",
		Description: fmt.Sprintf("Verification code sent to %s", identity.Email),
		Category:    domain.AuditCategoryUser,
		Actor:       identityActor(identity),
	})
	return nil
}

// ensureUser maps a provider profile to a project user: by provider subject
// first, then by email, creating the user when neither matches.
func (s *AuthorizationService) ensureUser(ctx context.Context, project domain.Project, providerName string, profile oauth.Profile, meta RequestMeta) (domain.User, error) {
	providerName = strings.ToLower(providerName)

	user, err := s.users.GetByProviderSubject(ctx, project.ID, providerName, profile.ProviderUserID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, fmt.Errorf("load user by provider subject: %w", err)
	}

	email := strings.ToLower(strings.TrimSpace(profile.Email))
	if email != "" {
		user, err = s.users.GetByEmail(ctx, project.ID, email)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, fmt.Errorf("load user by email: %w", err)
		}
	}

	created, err := s.users.Create(ctx, domain.User{
		ID:             s.node.Generate().Int64(),
		ProjectID:      project.ID,
		Email:          email,
		EmailVerified:  true,
		Username:       profile.Username,
		AvatarURL:      profile.Picture,
		Provider:       providerName,
		ProviderUserID: profile.ProviderUserID,
		Status:         domain.UserStatusActive,
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	s.trail.Record(audit.Entry{
		ProjectID:   project.ID,
		Action:      "user.created",
		Description: fmt.Sprintf("User %s created via %s", created.Email, providerName),
		Category:    domain.AuditCategoryUser,
		Actor:       userActor(created),
		Metadata:    auditMeta(meta, strconv.FormatInt(created.ID, 10)),
	})
	s.webhooks.Publish(project, "user.created", map[string]any{
		"userId":   created.ID,
		"email":    created.Email,
		"provider": providerName,
	})
	return created, nil
}

// verifierMatches checks the S256 PKCE binding in constant time.
func verifierMatches(verifier, challenge string) bool {
	if verifier == "" {
		return false
	}
	sum := sha256.Sum256([]byte(verifier))
	derived := base64.RawURLEncoding.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(derived), []byte(challenge)) == 1
}

func identityFromUser(user domain.User) oauth.Identity {
	return oauth.Identity{
		UserID:         user.ID,
		ProviderUserID: user.ProviderUserID,
		Email:          user.Email,
		EmailVerified:  user.EmailVerified,
		Username:       user.Username,
		Picture:        user.AvatarURL,
		Provider:       user.Provider,
	}
}

func identityActor(identity oauth.Identity) domain.AuditActor {
	return domain.AuditActor{
		Type: domain.ActorUser,
		ID:   strconv.FormatInt(identity.UserID, 10),
		Name: identity.Username,
	}
}

func verificationKey(projectID, userID int64) string {
	return fmt.Sprintf("%s%d:%d", verificationPrefix, projectID, userID)
}

func randomToken(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	return hex.EncodeToString(buf)
}

func numericCode(digits int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < digits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
