package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smallbiznis/portal-auth/internal/domain"
)

// Compile-time interface assertions.
var (
	_ ProjectRepository      = (*PostgresProjectRepo)(nil)
	_ UserRepository         = (*PostgresUserRepo)(nil)
	_ SessionRepository      = (*PostgresSessionRepo)(nil)
	_ AuditRepository        = (*PostgresAuditRepo)(nil)
	_ NotificationRepository = (*PostgresNotificationRepo)(nil)
)

// PostgresProjectRepo implements ProjectRepository against pgx.
type PostgresProjectRepo struct {
	db *pgxpool.Pool
}

func NewPostgresProjectRepo(pool *pgxpool.Pool) *PostgresProjectRepo {
	return &PostgresProjectRepo{db: pool}
}

const projectColumns = `id, owner_id, name, public_key, private_key,
	redirect_uris, allowed_origins, enabled_providers,
	access_ttl_seconds, refresh_ttl_seconds, require_email_verification,
	is_active, created_at, updated_at`

func (r *PostgresProjectRepo) GetByPublicKey(ctx context.Context, publicKey string) (domain.Project, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE public_key = $1`, publicKey)
	project, err := scanProject(row)
	if err != nil {
		return domain.Project{}, fmt.Errorf("get project by public key: %w", err)
	}
	if err := r.attachWebhooks(ctx, &project); err != nil {
		return domain.Project{}, err
	}
	return project, nil
}

func (r *PostgresProjectRepo) GetByID(ctx context.Context, projectID int64) (domain.Project, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, projectID)
	project, err := scanProject(row)
	if err != nil {
		return domain.Project{}, fmt.Errorf("get project: %w", err)
	}
	if err := r.attachWebhooks(ctx, &project); err != nil {
		return domain.Project{}, err
	}
	return project, nil
}

func (r *PostgresProjectRepo) GetOwnerID(ctx context.Context, projectID int64) (int64, error) {
	var ownerID int64
	err := r.db.QueryRow(ctx,
		`SELECT owner_id FROM projects WHERE id = $1`, projectID).Scan(&ownerID)
	if err != nil {
		return 0, fmt.Errorf("get project owner: %w", err)
	}
	return ownerID, nil
}

func scanProject(row pgx.Row) (domain.Project, error) {
	var p domain.Project
	err := row.Scan(
		&p.ID, &p.OwnerID, &p.Name, &p.PublicKey, &p.PrivateKey,
		&p.RedirectURIs, &p.AllowedOrigins, &p.EnabledProviders,
		&p.TokenValidity.AccessTTLSeconds, &p.TokenValidity.RefreshTTLSeconds,
		&p.RequireEmailVerification, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

func (r *PostgresProjectRepo) attachWebhooks(ctx context.Context, project *domain.Project) error {
	rows, err := r.db.Query(ctx,
		`SELECT id, url, secret, events, is_active, created_at
		 FROM project_webhooks WHERE project_id = $1`, project.ID)
	if err != nil {
		return fmt.Errorf("list project webhooks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var hook domain.Webhook
		if err := rows.Scan(&hook.ID, &hook.URL, &hook.Secret, &hook.Events, &hook.IsActive, &hook.CreatedAt); err != nil {
			return fmt.Errorf("scan webhook: %w", err)
		}
		project.Webhooks = append(project.Webhooks, hook)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate webhooks: %w", err)
	}
	return nil
}

// PostgresUserRepo implements UserRepository against pgx.
type PostgresUserRepo struct {
	db *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{db: pool}
}

const userColumns = `id, project_id, email, email_verified, password_hash,
	username, avatar_url, provider, provider_user_id, status, created_at, updated_at`

func (r *PostgresUserRepo) GetByEmail(ctx context.Context, projectID int64, email string) (domain.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE project_id = $1 AND email = $2`, projectID, email)
	user, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) GetByID(ctx context.Context, projectID, userID int64) (domain.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE project_id = $1 AND id = $2`, projectID, userID)
	user, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) GetByProviderSubject(ctx context.Context, projectID int64, provider, subject string) (domain.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE project_id = $1 AND provider = $2 AND provider_user_id = $3`,
		projectID, provider, subject)
	user, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user by provider subject: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	err := r.db.QueryRow(ctx,
		`INSERT INTO users (id, project_id, email, email_verified, password_hash,
			username, avatar_url, provider, provider_user_id, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id`,
		user.ID, user.ProjectID, user.Email, user.EmailVerified, user.PasswordHash,
		user.Username, user.AvatarURL, user.Provider, user.ProviderUserID, user.Status,
		user.CreatedAt, user.UpdatedAt,
	).Scan(&user.ID)
	if err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) MarkEmailVerified(ctx context.Context, projectID, userID int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE users SET email_verified = TRUE, updated_at = NOW()
		 WHERE project_id = $1 AND id = $2`, projectID, userID)
	if err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}
	return nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.ProjectID, &u.Email, &u.EmailVerified, &u.PasswordHash,
		&u.Username, &u.AvatarURL, &u.Provider, &u.ProviderUserID, &u.Status,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// PostgresSessionRepo implements SessionRepository against pgx.
type PostgresSessionRepo struct {
	db *pgxpool.Pool
}

func NewPostgresSessionRepo(pool *pgxpool.Pool) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: pool}
}

func (r *PostgresSessionRepo) Create(ctx context.Context, session domain.Session) (domain.Session, error) {
	session.CreatedAt = time.Now().UTC()
	_, err := r.db.Exec(ctx,
		`INSERT INTO sessions (id, project_id, user_id, refresh_token, expires_at,
			is_valid, ip_address, user_agent, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		session.ID, session.ProjectID, session.UserID, session.RefreshToken,
		session.ExpiresAt, session.IsValid, session.IPAddress, session.UserAgent,
		session.CreatedAt,
	)
	if err != nil {
		return domain.Session{}, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

func (r *PostgresSessionRepo) GetByRefreshToken(ctx context.Context, refreshToken string) (domain.Session, error) {
	var s domain.Session
	err := r.db.QueryRow(ctx,
		`SELECT id, project_id, user_id, refresh_token, expires_at, is_valid,
			ip_address, user_agent, created_at
		 FROM sessions WHERE refresh_token = $1`, refreshToken).Scan(
		&s.ID, &s.ProjectID, &s.UserID, &s.RefreshToken, &s.ExpiresAt, &s.IsValid,
		&s.IPAddress, &s.UserAgent, &s.CreatedAt,
	)
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

func (r *PostgresSessionRepo) Invalidate(ctx context.Context, sessionID int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE sessions SET is_valid = FALSE WHERE id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("invalidate session: %w", err)
	}
	return nil
}

// PostgresAuditRepo implements AuditRepository against pgx.
type PostgresAuditRepo struct {
	db *pgxpool.Pool
}

func NewPostgresAuditRepo(pool *pgxpool.Pool) *PostgresAuditRepo {
	return &PostgresAuditRepo{db: pool}
}

func (r *PostgresAuditRepo) Append(ctx context.Context, entry domain.AuditLogEntry) error {
	details, err := json.Marshal(entry.Metadata.Details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO audit_log (id, developer_id, project_id, action, description,
			category, actor_type, actor_id, actor_name, ip_address, user_agent,
			resource_id, details, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		entry.ID, entry.DeveloperID, entry.ProjectID, entry.Action, entry.Description,
		string(entry.Category), string(entry.Actor.Type), entry.Actor.ID, entry.Actor.Name,
		entry.Metadata.IP, entry.Metadata.UserAgent, entry.Metadata.ResourceID,
		details, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// PostgresNotificationRepo implements NotificationRepository against pgx.
type PostgresNotificationRepo struct {
	db *pgxpool.Pool
}

func NewPostgresNotificationRepo(pool *pgxpool.Pool) *PostgresNotificationRepo {
	return &PostgresNotificationRepo{db: pool}
}

func (r *PostgresNotificationRepo) Create(ctx context.Context, notification domain.Notification) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO notifications (id, developer_id, title, body, is_read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		notification.ID, notification.DeveloperID, notification.Title, notification.Body,
		notification.IsRead, notification.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}
