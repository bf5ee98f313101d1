package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/santhoshmp/learningplanner/internal/core/domain"
	"github.com/santhoshmp/learningplanner/internal/core/port"
	"github.com/santhoshmp/learningplanner/internal/infra/config"
	"github.com/santhoshmp/learningplanner/internal/repository"
)

var (
	// ErrSessionNotFound indicates the session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionRevoked indicates the session was revoked ahead of validation.
	ErrSessionRevoked = errors.New("session revoked")
	// ErrSessionExpired indicates the session elapsed its idle or absolute bound.
	ErrSessionExpired = errors.New("session expired")
	// ErrNotAuthorized indicates the caller lacks oversight of the target principal.
	ErrNotAuthorized = errors.New("not authorized")
)

// SessionService coordinates session validation and lifecycle.
type SessionService struct {
	cfg       config.SessionSettings
	sessions  port.SessionRepository
	tokens    port.TokenRepository
	anomalies *AnomalyDetector
	publisher port.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewSessionService constructs a SessionService.
func NewSessionService(
	cfg config.SessionSettings,
	sessions port.SessionRepository,
	tokens port.TokenRepository,
	anomalies *AnomalyDetector,
	publisher port.EventPublisher,
	logger *zap.Logger,
) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		cfg:       cfg,
		sessions:  sessions,
		tokens:    tokens,
		anomalies: anomalies,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *SessionService) WithClock(now func() time.Time) *SessionService {
	if now != nil {
		s.now = now
	}
	return s
}

// Validate checks a session against revocation and both timeout bounds, then
// slides the idle window. Expiry is detected lazily here: a session past its
// bound is revoked on first touch, so validation after a 25 minute gap on a
// child session fails even though no background job ran.
func (s *SessionService) Validate(ctx context.Context, sessionID string, ip *string) (*domain.Session, error) {
	at := s.now().UTC()

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	if session.IsRevoked() {
		s.recordValidationFailure(ctx, session)
		return nil, ErrSessionRevoked
	}

	if session.AbsoluteExpired(at) {
		return nil, s.expire(ctx, session, at, "max_duration")
	}
	if session.IdleExpired(at) {
		return nil, s.expire(ctx, session, at, "idle_timeout")
	}

	if err := s.sessions.Touch(ctx, sessionID, at, ip); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("touch session: %w", err)
	}
	session.Touch(at, ip)

	return session, nil
}

func (s *SessionService) expire(ctx context.Context, session *domain.Session, at time.Time, reason string) error {
	if err := s.sessions.Revoke(ctx, session.ID, at, reason); err != nil {
		return fmt.Errorf("expire session: %w", err)
	}
	if err := s.tokens.RevokeBySession(ctx, session.ID, at); err != nil {
		return fmt.Errorf("revoke session tokens: %w", err)
	}

	s.storeEvent(ctx, session.ID, "expired", at, nil, map[string]any{"reason": reason})
	s.publishRevoked(ctx, session, at, "system", reason)

	return ErrSessionExpired
}

// Revoke terminates a session. Revoking an already terminated session is a
// no-op so logout retries stay safe.
func (s *SessionService) Revoke(ctx context.Context, sessionID string, revokedBy, reason string) error {
	at := s.now().UTC()

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("load session: %w", err)
	}

	if session.IsRevoked() {
		return nil
	}

	if err := s.sessions.Revoke(ctx, sessionID, at, reason); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if err := s.tokens.RevokeBySession(ctx, sessionID, at); err != nil {
		return fmt.Errorf("revoke session tokens: %w", err)
	}

	s.storeEvent(ctx, sessionID, "revoked", at, nil, map[string]any{"reason": reason, "revoked_by": revokedBy})
	s.publishRevoked(ctx, session, at, revokedBy, reason)

	return nil
}

// RevokeAll terminates every active session of the principal and returns the
// number of sessions affected.
func (s *SessionService) RevokeAll(ctx context.Context, principalID, revokedBy, reason string) (int, error) {
	at := s.now().UTC()

	count, err := s.sessions.RevokeAllForPrincipal(ctx, principalID, at, reason)
	if err != nil {
		return 0, fmt.Errorf("revoke sessions: %w", err)
	}
	if _, err := s.tokens.RevokeAllForPrincipal(ctx, principalID, at); err != nil {
		return 0, fmt.Errorf("revoke tokens: %w", err)
	}

	s.logger.Info("all sessions revoked",
		zap.String("principal_id", principalID),
		zap.String("reason", reason),
		zap.Int("count", count),
	)

	return count, nil
}

// ListActive returns the principal's sessions that are active right now.
// Sessions past a timeout bound are filtered here even before lazy expiry
// persists their terminal state.
func (s *SessionService) ListActive(ctx context.Context, principalID string) ([]domain.Session, error) {
	at := s.now().UTC()

	sessions, err := s.sessions.ListActiveByPrincipal(ctx, principalID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	active := sessions[:0]
	for _, session := range sessions {
		if session.IsActive(at) {
			active = append(active, session)
		}
	}

	return active, nil
}

// History returns the principal's sessions inside the window, terminated ones
// included. A non-positive window falls back to the configured history window,
// then to thirty days.
func (s *SessionService) History(ctx context.Context, principalID string, window time.Duration) ([]domain.Session, error) {
	if window <= 0 {
		window = s.cfg.HistoryWindow
	}
	if window <= 0 {
		window = 30 * 24 * time.Hour
	}
	since := s.now().UTC().Add(-window)

	sessions, err := s.sessions.ListByPrincipalSince(ctx, principalID, since)
	if err != nil {
		return nil, fmt.Errorf("list session history: %w", err)
	}

	return sessions, nil
}

// recordValidationFailure feeds a failed validation on a child session into the
// anomaly window. Detector errors never mask the validation outcome.
func (s *SessionService) recordValidationFailure(ctx context.Context, session *domain.Session) {
	if s.anomalies == nil || session.Role != domain.RoleChild {
		return
	}
	if err := s.anomalies.RecordSignal(ctx, session.PrincipalID, domain.SignalFailedValidation); err != nil &&
		!errors.Is(err, ErrAnomalyThresholdExceeded) {
		s.logger.Error("record validation failure signal", zap.Error(err))
	}
}

func (s *SessionService) storeEvent(ctx context.Context, sessionID, kind string, at time.Time, ip *string, details map[string]any) {
	event := domain.SessionEvent{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Kind:      kind,
		At:        at,
		IP:        ip,
		Details:   details,
	}
	if err := s.sessions.StoreEvent(ctx, event); err != nil {
		s.logger.Error("store session event", zap.String("kind", kind), zap.Error(err))
	}
}

func (s *SessionService) publishRevoked(ctx context.Context, session *domain.Session, at time.Time, revokedBy, reason string) {
	if s.publisher == nil {
		return
	}
	event := domain.SessionRevokedEvent{
		EventID:     uuid.NewString(),
		SessionID:   session.ID,
		PrincipalID: session.PrincipalID,
		RevokedAt:   at,
		RevokedBy:   revokedBy,
		Reason:      reason,
		IPAddress:   session.IPLast,
	}
	if err := s.publisher.PublishSessionRevoked(ctx, event); err != nil {
		s.logger.Error("publish session revoked", zap.Error(err))
	}
}
