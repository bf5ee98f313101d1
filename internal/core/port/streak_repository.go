package port

import (
	"context"

	"github.com/santhoshmp/learningplanner/internal/core/domain"
)

// StreakRepository stores per-child streak counters. UpdateInTx runs the
// read-modify-write under row-level isolation so concurrent qualifying events
// for the same child cannot lose updates.
type StreakRepository interface {
	ListByChild(ctx context.Context, childID string) ([]domain.StreakCounter, error)
	// UpdateInTx locks the (child, kind) row, applies mutate to the current
	// counter (zero-value counter when absent), and persists the result in the
	// same transaction.
	UpdateInTx(ctx context.Context, childID string, kind domain.StreakKind, mutate func(*domain.StreakCounter) bool) error
}
