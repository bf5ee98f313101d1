package port

import (
	"context"

	"github.com/santhoshmp/learningplanner/internal/core/domain"
)

// EventPublisher emits domain events for external consumers. The guardian
// notification sender subscribes to these; the core never delivers
// notifications itself.
type EventPublisher interface {
	PublishGuardianNotification(ctx context.Context, event domain.GuardianNotificationEvent) error
	PublishSessionRevoked(ctx context.Context, event domain.SessionRevokedEvent) error
}
