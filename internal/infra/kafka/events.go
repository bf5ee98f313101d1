package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/santhoshmp/learningplanner/internal/core/domain"
	"github.com/santhoshmp/learningplanner/internal/core/port"
	"github.com/santhoshmp/learningplanner/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka. The guardian
// notification sender and audit consumers subscribe downstream.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type eventEnvelope struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Payload   any               `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata: map[string]string{
			"service":     p.appCfg.Name,
			"environment": p.appCfg.Env,
		},
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishGuardianNotification publishes learningplanner.guardian.notification events.
func (p *EventPublisher) PublishGuardianNotification(ctx context.Context, event domain.GuardianNotificationEvent) error {
	payload := struct {
		ChildID     string         `json:"child_id"`
		GuardianID  string         `json:"guardian_id"`
		Kind        string         `json:"kind"`
		Reason      string         `json:"reason"`
		OccurredAt  time.Time      `json:"occurred_at"`
		SignalCount int            `json:"signal_count,omitempty"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}{
		ChildID:     event.ChildID,
		GuardianID:  event.GuardianID,
		Kind:        event.Kind,
		Reason:      event.Reason,
		OccurredAt:  event.OccurredAt.UTC(),
		SignalCount: event.SignalCount,
		Metadata:    event.Metadata,
	}

	return p.publish(ctx, event.EventID, "guardian.notification", event.OccurredAt, payload)
}

// PublishSessionRevoked publishes learningplanner.session.revoked events.
func (p *EventPublisher) PublishSessionRevoked(ctx context.Context, event domain.SessionRevokedEvent) error {
	payload := struct {
		SessionID   string         `json:"session_id"`
		PrincipalID string         `json:"principal_id"`
		RevokedAt   time.Time      `json:"revoked_at"`
		RevokedBy   string         `json:"revoked_by"`
		Reason      string         `json:"reason"`
		IPAddress   *string        `json:"ip_address,omitempty"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}{
		SessionID:   event.SessionID,
		PrincipalID: event.PrincipalID,
		RevokedAt:   event.RevokedAt.UTC(),
		RevokedBy:   event.RevokedBy,
		Reason:      event.Reason,
		IPAddress:   event.IPAddress,
		Metadata:    event.Metadata,
	}

	return p.publish(ctx, event.EventID, "session.revoked", event.RevokedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
