package port

import (
	"context"
	"time"

	"github.com/santhoshmp/learningplanner/internal/core/domain"
)

// SessionRepository deals with session storage.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) error
	GetByID(ctx context.Context, sessionID string) (*domain.Session, error)
	Touch(ctx context.Context, sessionID string, at time.Time, ip *string) error
	Revoke(ctx context.Context, sessionID string, at time.Time, reason string) error
	RevokeAllForPrincipal(ctx context.Context, principalID string, at time.Time, reason string) (int, error)
	ListActiveByPrincipal(ctx context.Context, principalID string) ([]domain.Session, error)
	ListByPrincipalSince(ctx context.Context, principalID string, since time.Time) ([]domain.Session, error)
	StoreEvent(ctx context.Context, event domain.SessionEvent) error
	// LatestFingerprint returns the device fingerprint of the principal's most
	// recent session, or ErrNotFound when the principal has no session history.
	LatestFingerprint(ctx context.Context, principalID string) (*domain.Fingerprint, error)
}
