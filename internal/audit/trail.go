// Package audit records security-relevant transitions as immutable log
// entries plus developer notifications. Recording never aborts the flow it
// observes: failures are logged and swallowed.
package audit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/smallbiznis/portal-auth/internal/domain"
	"github.com/smallbiznis/portal-auth/internal/repository"
)

const recordTimeout = 5 * time.Second

// Entry is the caller-facing shape of an audit record. DeveloperID may be
// zero; it is then resolved from the project owner.
type Entry struct {
	DeveloperID int64
	ProjectID   int64
	Action      string
	Description string
	Category    domain.AuditCategory
	Actor       domain.AuditActor
	Metadata    domain.AuditMetadata
}

// Trail persists audit entries and companion notifications.
type Trail struct {
	entries       repository.AuditRepository
	notifications repository.NotificationRepository
	projects      repository.ProjectRepository
	node          *snowflake.Node
	logger        *zap.Logger
	wg            sync.WaitGroup
}

// NewTrail constructs an audit trail.
func NewTrail(
	entries repository.AuditRepository,
	notifications repository.NotificationRepository,
	projects repository.ProjectRepository,
	node *snowflake.Node,
	logger *zap.Logger,
) *Trail {
	if logger == nil {
		logger = zap.L()
	}
	return &Trail{
		entries:       entries,
		notifications: notifications,
		projects:      projects,
		node:          node,
		logger:        logger,
	}
}

// Record persists the entry as a detached task. It returns immediately; the
// triggering request never waits on or observes audit failures.
func (t *Trail) Record(entry Entry) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		t.record(ctx, entry)
	}()
}

// Wait blocks until in-flight records finish. Used at shutdown and in tests.
func (t *Trail) Wait() {
	t.wg.Wait()
}

func (t *Trail) record(ctx context.Context, entry Entry) {
	developerID := entry.DeveloperID
	if developerID == 0 && entry.ProjectID != 0 {
		ownerID, err := t.projects.GetOwnerID(ctx, entry.ProjectID)
		if err != nil {
			t.logger.Warn("audit: owner resolution failed",
				zap.Int64("project_id", entry.ProjectID), zap.String("action", entry.Action), zap.Error(err))
		} else {
			developerID = ownerID
		}
	}

	record := domain.AuditLogEntry{
		ID:          t.node.Generate().Int64(),
		DeveloperID: developerID,
		ProjectID:   entry.ProjectID,
		Action:      entry.Action,
		Description: entry.Description,
		Category:    entry.Category,
		Actor:       entry.Actor,
		Metadata:    entry.Metadata,
		CreatedAt:   time.Now().UTC(),
	}
	if err := t.entries.Append(ctx, record); err != nil {
		t.logger.Warn("audit: append failed",
			zap.String("action", entry.Action), zap.Int64("project_id", entry.ProjectID), zap.Error(err))
		return
	}

	if developerID == 0 {
		return
	}
	notification := domain.Notification{
		ID:          t.node.Generate().Int64(),
		DeveloperID: developerID,
		Title:       notificationTitle(entry.Action),
		Body:        entry.Description,
		CreatedAt:   record.CreatedAt,
	}
	if err := t.notifications.Create(ctx, notification); err != nil {
		t.logger.Warn("audit: notification failed",
			zap.String("action", entry.Action), zap.Int64("developer_id", developerID), zap.Error(err))
	}
}

func notificationTitle(action string) string {
	cleaned := strings.ReplaceAll(action, ".", " ")
	cleaned = strings.ReplaceAll(cleaned, "_", " ")
	return fmt.Sprintf("Project activity: %s", cleaned)
}
