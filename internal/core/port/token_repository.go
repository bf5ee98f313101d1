package port

import (
	"context"
	"time"

	"github.com/santhoshmp/learningplanner/internal/core/domain"
)

// TokenRepository deals with refresh-token storage and atomic rotation.
type TokenRepository interface {
	Create(ctx context.Context, token domain.RefreshToken) error
	GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	// Consume marks the token used in a single conditional update. It returns
	// ErrNotFound when the token is unknown or was already consumed, so rotation
	// is either fully applied or not applied at all.
	Consume(ctx context.Context, tokenID string, at time.Time) error
	RevokeBySession(ctx context.Context, sessionID string, at time.Time) error
	RevokeAllForPrincipal(ctx context.Context, principalID string, at time.Time) (int, error)
}
