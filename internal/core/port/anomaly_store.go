package port

import (
	"context"
	"time"

	"github.com/santhoshmp/learningplanner/internal/core/domain"
)

// AnomalySignalStore keeps the per-principal sliding window of suspicious
// signals backing threshold evaluation.
type AnomalySignalStore interface {
	RecordSignal(ctx context.Context, principalID string, kind domain.AnomalySignalKind, at time.Time) error
	CountSignals(ctx context.Context, principalID string, window time.Duration, reference time.Time) (int, error)
	TrimWindow(ctx context.Context, principalID string, window time.Duration, reference time.Time) error
}
