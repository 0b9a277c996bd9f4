// Package mail defines the out-of-band delivery contract for email
// verification codes. Template rendering and actual transport live in the
// notification service; the core only hands off the code.
package mail

import (
	"context"

	"go.uber.org/zap"

	"github.com/smallbiznis/portal-auth/internal/domain"
)

// Sender delivers a verification code to an end user.
type Sender interface {
	SendVerificationCode(ctx context.Context, project domain.Project, email, code string) error
}

// LogSender is the default Sender used when no mail transport is configured.
// It records the hand-off without the code value itself.
type LogSender struct {
	logger *zap.Logger
}

var _ Sender = (*LogSender)(nil)

// NewLogSender constructs a logging sender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.L()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) SendVerificationCode(_ context.Context, project domain.Project, email, _ string) error {
	s.logger.Info("verification code dispatched",
		zap.Int64("project_id", project.ID),
		zap.String("email", email),
	)
	return nil
}
