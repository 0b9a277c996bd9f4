package audit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smallbiznis/portal-auth/internal/domain"
)

type fakeEntries struct {
	mu      sync.Mutex
	err     error
	entries []domain.AuditLogEntry
}

func (f *fakeEntries) Append(_ context.Context, entry domain.AuditLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeEntries) all() []domain.AuditLogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.AuditLogEntry(nil), f.entries...)
}

type fakeNotifications struct {
	mu    sync.Mutex
	err   error
	items []domain.Notification
}

func (f *fakeNotifications) Create(_ context.Context, notification domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.items = append(f.items, notification)
	return nil
}

func (f *fakeNotifications) all() []domain.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Notification(nil), f.items...)
}

type fakeProjects struct {
	owners map[int64]int64
}

func (f *fakeProjects) GetByPublicKey(context.Context, string) (domain.Project, error) {
	return domain.Project{}, pgx.ErrNoRows
}

func (f *fakeProjects) GetByID(context.Context, int64) (domain.Project, error) {
	return domain.Project{}, pgx.ErrNoRows
}

func (f *fakeProjects) GetOwnerID(_ context.Context, projectID int64) (int64, error) {
	owner, ok := f.owners[projectID]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	return owner, nil
}

func newTestTrail(t *testing.T, entries *fakeEntries, notifs *fakeNotifications, projects *fakeProjects) *Trail {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return NewTrail(entries, notifs, projects, node, zap.NewNop())
}

func TestRecordResolvesOwnerAndNotifies(t *testing.T) {
	entries := &fakeEntries{}
	notifs := &fakeNotifications{}
	trail := newTestTrail(t, entries, notifs, &fakeProjects{owners: map[int64]int64{1: 7}})

	trail.Record(Entry{
		ProjectID:   1,
		Action:      "user.login",
		Description: "User dev@example.com signed in",
		Category:    domain.AuditCategoryUser,
		Actor:       domain.AuditActor{Type: domain.ActorUser, ID: "100"},
	})
	trail.Wait()

	got := entries.all()
	require.Len(t, got, 1)
	require.EqualValues(t, 7, got[0].DeveloperID)
	require.NotZero(t, got[0].ID)
	require.False(t, got[0].CreatedAt.IsZero())

	notifications := notifs.all()
	require.Len(t, notifications, 1)
	require.EqualValues(t, 7, notifications[0].DeveloperID)
	require.Contains(t, notifications[0].Title, "user login")
}

func TestRecordKeepsExplicitDeveloperID(t *testing.T) {
	entries := &fakeEntries{}
	notifs := &fakeNotifications{}
	trail := newTestTrail(t, entries, notifs, &fakeProjects{owners: map[int64]int64{1: 7}})

	trail.Record(Entry{DeveloperID: 42, ProjectID: 1, Action: "session.revoked"})
	trail.Wait()

	got := entries.all()
	require.Len(t, got, 1)
	require.EqualValues(t, 42, got[0].DeveloperID)
}

func TestRecordWithoutOwnerSkipsNotification(t *testing.T) {
	entries := &fakeEntries{}
	notifs := &fakeNotifications{}
	trail := newTestTrail(t, entries, notifs, &fakeProjects{owners: map[int64]int64{}})

	trail.Record(Entry{ProjectID: 9, Action: "user.login"})
	trail.Wait()

	// The entry still lands; only the notification is skipped.
	require.Len(t, entries.all(), 1)
	require.Empty(t, notifs.all())
}

func TestRecordSwallowsAppendFailure(t *testing.T) {
	entries := &fakeEntries{err: errors.New("db down")}
	notifs := &fakeNotifications{}
	trail := newTestTrail(t, entries, notifs, &fakeProjects{owners: map[int64]int64{1: 7}})

	trail.Record(Entry{ProjectID: 1, Action: "user.login"})
	trail.Wait()

	require.Empty(t, notifs.all())
}

func TestRecordSwallowsNotificationFailure(t *testing.T) {
	entries := &fakeEntries{}
	notifs := &fakeNotifications{err: errors.New("db down")}
	trail := newTestTrail(t, entries, notifs, &fakeProjects{owners: map[int64]int64{1: 7}})

	trail.Record(Entry{ProjectID: 1, Action: "user.login"})
	trail.Wait()

	require.Len(t, entries.all(), 1)
}
