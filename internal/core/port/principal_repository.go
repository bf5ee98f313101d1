package port

import (
	"context"

	"github.com/santhoshmp/learningplanner/internal/core/domain"
)

// PrincipalRepository deals with principal storage.
type PrincipalRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Principal, error)
	// GetByIdentifier resolves a login identifier: username for children,
	// username or email for adults.
	GetByIdentifier(ctx context.Context, identifier string) (*domain.Principal, error)
	ListByGuardian(ctx context.Context, guardianID string) ([]domain.Principal, error)
}
