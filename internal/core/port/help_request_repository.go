package port

import (
	"context"
	"time"

	"github.com/santhoshmp/learningplanner/internal/core/domain"
)

// HelpRequestRepository stores the historical help-request log.
type HelpRequestRepository interface {
	Create(ctx context.Context, request domain.HelpRequest) error
	GetByID(ctx context.Context, id string) (*domain.HelpRequest, error)
	ListByChild(ctx context.Context, childID string) ([]domain.HelpRequest, error)
	ListByChildSince(ctx context.Context, childID string, since time.Time) ([]domain.HelpRequest, error)
	// Update persists resolution fields and merged context. Creation fields are
	// immutable; requests are never deleted.
	Update(ctx context.Context, request domain.HelpRequest) error
}
