package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/smallbiznis/portal-auth/internal/audit"
	"github.com/smallbiznis/portal-auth/internal/config"
	"github.com/smallbiznis/portal-auth/internal/cors"
	"github.com/smallbiznis/portal-auth/internal/domain"
	"github.com/smallbiznis/portal-auth/internal/domain/oauth"
	"github.com/smallbiznis/portal-auth/internal/jwt"
	"github.com/smallbiznis/portal-auth/internal/repository"
	"github.com/smallbiznis/portal-auth/internal/webhook"
)

// RequestMeta carries client metadata recorded on sessions and audit
// entries.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// TokenPair is the result of a token issuance.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// SessionService mints access tokens and manages refresh sessions.
type SessionService struct {
	sessions repository.SessionRepository
	users    repository.UserRepository
	projects repository.ProjectRepository
	node     *snowflake.Node
	jwt      *jwt.Generator
	cfg      config.Config
	webhooks *webhook.Dispatcher
	trail    *audit.Trail
	logger   *zap.Logger
	tracer   trace.Tracer
}

// NewSessionService wires dependencies.
func NewSessionService(
	sessions repository.SessionRepository,
	users repository.UserRepository,
	projects repository.ProjectRepository,
	node *snowflake.Node,
	generator *jwt.Generator,
	cfg config.Config,
	webhooks *webhook.Dispatcher,
	trail *audit.Trail,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		sessions: sessions,
		users:    users,
		projects: projects,
		node:     node,
		jwt:      generator,
		cfg:      cfg,
		webhooks: webhooks,
		trail:    trail,
		logger:   logger,
		tracer:   otel.Tracer("github.com/smallbiznis/portal-auth/internal/service"),
	}
}

// Issue creates a new refresh session and mints a signed access token.
// Issuance is additive: prior sessions for the same user stay valid, so one
// user may hold sessions from several devices.
func (s *SessionService) Issue(ctx context.Context, project domain.Project, user domain.User, meta RequestMeta) (*TokenPair, error) {
	ctx, span := s.tracer.Start(ctx, "SessionService.Issue")
	defer span.End()

	refreshTTL := s.cfg.RefreshTokenTTL
	if project.TokenValidity.RefreshTTLSeconds > 0 {
		refreshTTL = time.Duration(project.TokenValidity.RefreshTTLSeconds) * time.Second
	}

	session := domain.Session{
		ID:           s.node.Generate().Int64(),
		ProjectID:    project.ID,
		UserID:       user.ID,
		RefreshToken: randomToken(s.cfg.RefreshTokenBytes),
		ExpiresAt:    time.Now().UTC().Add(refreshTTL),
		IsValid:      true,
		IPAddress:    meta.IP,
		UserAgent:    meta.UserAgent,
	}
	if _, err := s.sessions.Create(ctx, session); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("persist session: %w", err)
	}

	access, expiresAt, err := s.jwt.GenerateAccessToken(project, user)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: session.RefreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

// Refresh redeems a refresh token for a new token pair. The consumed session
// stays valid until its own expiry or an explicit revoke.
func (s *SessionService) Refresh(ctx context.Context, refreshToken, origin string, meta RequestMeta) (*TokenPair, error) {
	ctx, span := s.tracer.Start(ctx, "SessionService.Refresh")
	defer span.End()

	if refreshToken == "" {
		return nil, fmt.Errorf("%w: refresh token missing", oauth.ErrInvalidGrant)
	}

	session, err := s.sessions.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, oauth.ErrInvalidGrant
		}
		span.RecordError(err)
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !session.IsValid || session.Expired(time.Now().UTC()) {
		return nil, oauth.ErrInvalidGrant
	}

	project, err := s.projects.GetByID(ctx, session.ProjectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, oauth.ErrProjectNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("load project: %w", err)
	}
	if !project.IsActive {
		return nil, oauth.ErrProjectNotFound
	}

	// A refresh call is tenant-scoped exactly like a token exchange.
	if err := cors.Check(project, origin); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, project.ID, session.UserID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("load user: %w", err)
	}

	pair, err := s.Issue(ctx, project, user, meta)
	if err != nil {
		return nil, err
	}

	s.trail.Record(audit.Entry{
		ProjectID:   project.ID,
		Action:      "session.refreshed",
		Description: fmt.Sprintf("Session refreshed for user %d", user.ID),
		Category:    domain.AuditCategorySecurity,
		Actor:       userActor(user),
		Metadata:    auditMeta(meta, strconv.FormatInt(session.ID, 10)),
	})
	s.webhooks.Publish(project, "session.refreshed", map[string]any{
		"userId":    user.ID,
		"sessionId": session.ID,
	})

	return pair, nil
}

// Revoke marks the session behind the refresh token invalid. Revoking an
// unknown or already-revoked token is a no-op.
func (s *SessionService) Revoke(ctx context.Context, refreshToken string) error {
	ctx, span := s.tracer.Start(ctx, "SessionService.Revoke")
	defer span.End()

	session, err := s.sessions.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		span.RecordError(err)
		return fmt.Errorf("load session: %w", err)
	}
	if !session.IsValid {
		return nil
	}

	if err := s.sessions.Invalidate(ctx, session.ID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("invalidate session: %w", err)
	}

	s.trail.Record(audit.Entry{
		ProjectID:   session.ProjectID,
		Action:      "session.revoked",
		Description: fmt.Sprintf("Session %d revoked", session.ID),
		Category:    domain.AuditCategorySecurity,
		Actor:       domain.AuditActor{Type: domain.ActorUser, ID: strconv.FormatInt(session.UserID, 10)},
		Metadata:    domain.AuditMetadata{ResourceID: strconv.FormatInt(session.ID, 10)},
	})
	return nil
}

func userActor(user domain.User) domain.AuditActor {
	return domain.AuditActor{
		Type: domain.ActorUser,
		ID:   strconv.FormatInt(user.ID, 10),
		Name: user.Username,
	}
}

func auditMeta(meta RequestMeta, resourceID string) domain.AuditMetadata {
	return domain.AuditMetadata{
		IP:         meta.IP,
		UserAgent:  meta.UserAgent,
		ResourceID: resourceID,
	}
}
