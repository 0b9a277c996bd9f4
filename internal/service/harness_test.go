package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smallbiznis/portal-auth/internal/adapter/cache"
	"github.com/smallbiznis/portal-auth/internal/adapter/provider"
	"github.com/smallbiznis/portal-auth/internal/audit"
	"github.com/smallbiznis/portal-auth/internal/config"
	"github.com/smallbiznis/portal-auth/internal/domain"
	"github.com/smallbiznis/portal-auth/internal/domain/oauth"
	"github.com/smallbiznis/portal-auth/internal/jwt"
	"github.com/smallbiznis/portal-auth/internal/webhook"
)

type fakeProjectRepo struct {
	mu       sync.Mutex
	projects map[int64]domain.Project
}

func (f *fakeProjectRepo) put(project domain.Project) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.projects[project.ID] = project
}

func (f *fakeProjectRepo) GetByPublicKey(_ context.Context, publicKey string) (domain.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.projects {
		if p.PublicKey == publicKey {
			return p, nil
		}
	}
	return domain.Project{}, pgx.ErrNoRows
}

func (f *fakeProjectRepo) GetByID(_ context.Context, projectID int64) (domain.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	project, ok := f.projects[projectID]
	if !ok {
		return domain.Project{}, pgx.ErrNoRows
	}
	return project, nil
}

func (f *fakeProjectRepo) GetOwnerID(ctx context.Context, projectID int64) (int64, error) {
	project, err := f.GetByID(ctx, projectID)
	if err != nil {
		return 0, err
	}
	return project.OwnerID, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[int64]domain.User
}

func (f *fakeUserRepo) put(user domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = user
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, projectID int64, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ProjectID == projectID && u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (f *fakeUserRepo) GetByID(_ context.Context, projectID, userID int64) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok || user.ProjectID != projectID {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (f *fakeUserRepo) GetByProviderSubject(_ context.Context, projectID int64, providerName, subject string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ProjectID == projectID && u.Provider == providerName && u.ProviderUserID == subject {
			return u, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (f *fakeUserRepo) Create(_ context.Context, user domain.User) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user.CreatedAt = time.Now().UTC()
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) MarkEmailVerified(_ context.Context, projectID, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok || user.ProjectID != projectID {
		return pgx.ErrNoRows
	}
	user.EmailVerified = true
	f.users[userID] = user
	return nil
}

type fakeSessionRepo struct {
	mu      sync.Mutex
	byToken map[string]domain.Session
	byID    map[int64]domain.Session
}

func (f *fakeSessionRepo) Create(_ context.Context, session domain.Session) (domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session.CreatedAt = time.Now().UTC()
	f.byToken[session.RefreshToken] = session
	f.byID[session.ID] = session
	return session, nil
}

func (f *fakeSessionRepo) GetByRefreshToken(_ context.Context, refreshToken string) (domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.byToken[refreshToken]
	if !ok {
		return domain.Session{}, pgx.ErrNoRows
	}
	return session, nil
}

func (f *fakeSessionRepo) Invalidate(_ context.Context, sessionID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.byID[sessionID]
	if !ok {
		return pgx.ErrNoRows
	}
	session.IsValid = false
	f.byID[sessionID] = session
	f.byToken[session.RefreshToken] = session
	return nil
}

func (f *fakeSessionRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditLogEntry
}

func (f *fakeAuditRepo) Append(_ context.Context, entry domain.AuditLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditRepo) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var actions []string
	for _, e := range f.entries {
		actions = append(actions, e.Action)
	}
	return actions
}

type fakeNotificationRepo struct {
	mu    sync.Mutex
	items []domain.Notification
}

func (f *fakeNotificationRepo) Create(_ context.Context, notification domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, notification)
	return nil
}

type captureMailer struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *captureMailer) SendVerificationCode(_ context.Context, _ domain.Project, email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[email] = code
	return nil
}

func (m *captureMailer) code(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[email]
}

type fakeAdapter struct {
	mu       sync.Mutex
	authURL  string
	profile  oauth.Profile
	exchErr  error
	exchangs int
}

func (f *fakeAdapter) GetAuthURL(_ context.Context, authCtx oauth.AuthContext) (string, error) {
	return fmt.Sprintf("%s?state=sdk:%s", f.authURL, authCtx.SDKRequestID), nil
}

func (f *fakeAdapter) ExchangeCode(_ context.Context, _ string) (*oauth.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchangs++
	if f.exchErr != nil {
		return nil, f.exchErr
	}
	profile := f.profile
	return &profile, nil
}

func (f *fakeAdapter) exchanges() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exchangs
}

type testEnv struct {
	store     *cache.MemoryStore
	projects  *fakeProjectRepo
	users     *fakeUserRepo
	sessions  *fakeSessionRepo
	auditRepo *fakeAuditRepo
	notifs    *fakeNotificationRepo
	registry  *provider.Registry
	mailer    *captureMailer
	trail     *audit.Trail
	jwt       *jwt.Generator
	sess      *SessionService
	authz     *AuthorizationService
	project   domain.Project
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	env := &testEnv{
		store:     cache.NewMemoryStore(),
		projects:  &fakeProjectRepo{projects: make(map[int64]domain.Project)},
		users:     &fakeUserRepo{users: make(map[int64]domain.User)},
		sessions:  &fakeSessionRepo{byToken: make(map[string]domain.Session), byID: make(map[int64]domain.Session)},
		auditRepo: &fakeAuditRepo{},
		notifs:    &fakeNotificationRepo{},
		registry:  provider.NewRegistry(),
		mailer:    &captureMailer{codes: make(map[string]string)},
	}

	env.project = domain.Project{
		ID:               1,
		OwnerID:          7,
		Name:             "Acme",
		PublicKey:        "pk_live_1",
		PrivateKey:       "0123456789abcdef0123456789abcdef",
		RedirectURIs:     []string{"https://app.example.com/callback"},
		EnabledProviders: []string{"local", "github"},
		IsActive:         true,
	}
	env.projects.put(env.project)

	logger := zap.NewNop()
	cfg := config.Config{
		AccessTokenTTL:    15 * time.Minute,
		RefreshTokenTTL:   7 * 24 * time.Hour,
		RefreshTokenBytes: 32,
	}

	dispatcher := webhook.NewDispatcher(nil, logger)
	env.trail = audit.NewTrail(env.auditRepo, env.notifs, env.projects, node, logger)
	env.jwt = jwt.NewGenerator(cfg.AccessTokenTTL)
	env.sess = NewSessionService(env.sessions, env.users, env.projects, node, env.jwt, cfg, dispatcher, env.trail, logger)
	env.authz = NewAuthorizationService(env.projects, env.users, env.store, env.registry, env.sess, dispatcher, env.trail, env.mailer, node, logger)
	return env
}

func (env *testEnv) seedUser(t *testing.T, email, passwordHash string, verified bool) domain.User {
	t.Helper()
	user := domain.User{
		ID:            100,
		ProjectID:     env.project.ID,
		Email:         email,
		EmailVerified: verified,
		PasswordHash:  passwordHash,
		Username:      "tester",
		Provider:      ProviderLocal,
		Status:        domain.UserStatusActive,
	}
	env.users.put(user)
	return user
}
