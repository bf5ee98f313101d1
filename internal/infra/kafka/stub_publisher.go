package kafka

import (
	"context"

	"go.uber.org/zap"

	"github.com/santhoshmp/learningplanner/internal/core/domain"
	"github.com/santhoshmp/learningplanner/internal/core/port"
)

// StubPublisher logs events instead of producing them. Used when Kafka is
// disabled (local development, tests).
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a logging-only publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) PublishGuardianNotification(_ context.Context, event domain.GuardianNotificationEvent) error {
	p.logger.Info("guardian notification (stub)",
		zap.String("child_id", event.ChildID),
		zap.String("kind", event.Kind),
		zap.String("reason", event.Reason),
	)
	return nil
}

func (p *StubPublisher) PublishSessionRevoked(_ context.Context, event domain.SessionRevokedEvent) error {
	p.logger.Info("session revoked (stub)",
		zap.String("session_id", event.SessionID),
		zap.String("principal_id", event.PrincipalID),
		zap.String("reason", event.Reason),
	)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
