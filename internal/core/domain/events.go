package domain

import "time"

// AnomalySignalKind enumerates suspicious-activity indicators feeding the
// per-child rolling threshold.
type AnomalySignalKind string

const (
	SignalNewDevice        AnomalySignalKind = "new_device"
	SignalRapidSessions    AnomalySignalKind = "rapid_sessions"
	SignalOffHoursAccess   AnomalySignalKind = "off_hours_access"
	SignalFailedValidation AnomalySignalKind = "failed_validation"
)

// GuardianNotificationEvent is emitted when child activity requires guardian
// attention. Delivery is handled by an external consumer.
type GuardianNotificationEvent struct {
	EventID     string
	ChildID     string
	GuardianID  string
	Kind        string
	Reason      string
	OccurredAt  time.Time
	SignalCount int
	Metadata    map[string]any
}

// SessionRevokedEvent describes a session transition to its terminal state.
type SessionRevokedEvent struct {
	EventID     string
	SessionID   string
	PrincipalID string
	RevokedAt   time.Time
	RevokedBy   string
	Reason      string
	IPAddress   *string
	Metadata    map[string]any
}
