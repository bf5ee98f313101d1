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

// anomalyThreshold is the number of signals inside the sliding window that
// triggers protective revocation. The value is fixed: guardians rely on it
// behaving identically across deployments.
const anomalyThreshold = 5

// ErrAnomalyThresholdExceeded indicates protective revocation fired for the
// principal.
var ErrAnomalyThresholdExceeded = errors.New("anomaly threshold exceeded")

// AnomalyDetector accumulates suspicious signals per principal and revokes all
// sessions once the rolling threshold is reached.
type AnomalyDetector struct {
	cfg        config.AnomalySettings
	signals    port.AnomalySignalStore
	sessions   port.SessionRepository
	tokens     port.TokenRepository
	principals port.PrincipalRepository
	publisher  port.EventPublisher
	logger     *zap.Logger
	now        func() time.Time
}

// NewAnomalyDetector constructs an AnomalyDetector.
func NewAnomalyDetector(
	cfg config.AnomalySettings,
	signals port.AnomalySignalStore,
	sessions port.SessionRepository,
	tokens port.TokenRepository,
	principals port.PrincipalRepository,
	publisher port.EventPublisher,
	logger *zap.Logger,
) *AnomalyDetector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnomalyDetector{
		cfg:        cfg,
		signals:    signals,
		sessions:   sessions,
		tokens:     tokens,
		principals: principals,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (d *AnomalyDetector) WithClock(now func() time.Time) *AnomalyDetector {
	if now != nil {
		d.now = now
	}
	return d
}

// RecordSignal stores one suspicious signal and evaluates the rolling
// threshold. When the count reaches the threshold every session and refresh
// token of the principal is revoked and the guardian is notified. Returns
// ErrAnomalyThresholdExceeded when revocation fired.
func (d *AnomalyDetector) RecordSignal(ctx context.Context, principalID string, kind domain.AnomalySignalKind) error {
	at := d.now().UTC()

	if err := d.signals.TrimWindow(ctx, principalID, d.cfg.WindowDuration, at); err != nil {
		return fmt.Errorf("trim signal window: %w", err)
	}
	if err := d.signals.RecordSignal(ctx, principalID, kind, at); err != nil {
		return fmt.Errorf("record signal: %w", err)
	}

	count, err := d.signals.CountSignals(ctx, principalID, d.cfg.WindowDuration, at)
	if err != nil {
		return fmt.Errorf("count signals: %w", err)
	}

	d.logger.Debug("anomaly signal recorded",
		zap.String("principal_id", principalID),
		zap.String("kind", string(kind)),
		zap.Int("window_count", count),
	)

	if count < anomalyThreshold {
		return nil
	}

	return d.trip(ctx, principalID, kind, count, at)
}

func (d *AnomalyDetector) trip(ctx context.Context, principalID string, kind domain.AnomalySignalKind, count int, at time.Time) error {
	revoked, err := d.sessions.RevokeAllForPrincipal(ctx, principalID, at, "anomaly_threshold")
	if err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	if _, err := d.tokens.RevokeAllForPrincipal(ctx, principalID, at); err != nil {
		return fmt.Errorf("revoke tokens: %w", err)
	}

	d.logger.Warn("anomaly threshold reached, sessions revoked",
		zap.String("principal_id", principalID),
		zap.Int("signal_count", count),
		zap.Int("sessions_revoked", revoked),
	)

	d.notifyGuardian(ctx, principalID, kind, count, at)

	return ErrAnomalyThresholdExceeded
}

// notifyGuardian publishes the guardian notification. Publish failures are
// logged, not returned: revocation already happened and must not be rolled
// back by a messaging outage.
func (d *AnomalyDetector) notifyGuardian(ctx context.Context, principalID string, kind domain.AnomalySignalKind, count int, at time.Time) {
	principal, err := d.principals.GetByID(ctx, principalID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			d.logger.Error("lookup principal for notification", zap.Error(err))
		}
		return
	}
	if principal.GuardianID == nil {
		return
	}

	event := domain.GuardianNotificationEvent{
		EventID:     uuid.NewString(),
		ChildID:     principalID,
		GuardianID:  *principal.GuardianID,
		Kind:        "anomaly_revocation",
		Reason:      fmt.Sprintf("suspicious activity: %s", kind),
		OccurredAt:  at,
		SignalCount: count,
	}
	if err := d.publisher.PublishGuardianNotification(ctx, event); err != nil {
		d.logger.Error("publish guardian notification",
			zap.String("child_id", principalID),
			zap.Error(err),
		)
	}
}
