package port

import (
	"context"
	"time"

	"github.com/santhoshmp/learningplanner/internal/core/domain"
)

// ActivityRepository appends and reads the per-child activity event log.
// The log is append-only; events are never updated or deleted.
type ActivityRepository interface {
	Append(ctx context.Context, event domain.ActivityEvent) error
	ListByChildSince(ctx context.Context, childID string, since time.Time) ([]domain.ActivityEvent, error)
	CountByChild(ctx context.Context, childID string) (int, error)
}
