package domain

import "time"

// TimeoutPolicy bounds a session's idle and absolute lifetime.
type TimeoutPolicy struct {
	IdleTimeout time.Duration
	MaxDuration time.Duration
}

// Child sessions run on fixed, non-negotiable bounds. Adult bounds come from
// configuration; these constants are the floor for minors regardless of config.
const (
	ChildIdleTimeout = 20 * time.Minute
	ChildMaxDuration = 2 * time.Hour
)

// ChildTimeoutPolicy returns the fixed policy applied to child sessions.
func ChildTimeoutPolicy() TimeoutPolicy {
	return TimeoutPolicy{IdleTimeout: ChildIdleTimeout, MaxDuration: ChildMaxDuration}
}

// Session is a bounded-lifetime authorization grant tied to one principal and
// one device fingerprint.
type Session struct {
	ID             string
	PrincipalID    string
	Role           Role
	Fingerprint    Fingerprint
	IPFirst        *string
	IPLast         *string
	CreatedAt      time.Time
	LastActivityAt time.Time
	IdleTimeout    time.Duration
	MaxDuration    time.Duration
	RefreshTokenID *string
	RevokedAt      *time.Time
	RevokeReason   *string
}

// IsRevoked reports whether the session reached its terminal state explicitly.
func (s Session) IsRevoked() bool {
	return s.RevokedAt != nil
}

// IdleExpired reports whether the idle timeout elapsed since last activity.
func (s Session) IdleExpired(at time.Time) bool {
	if s.IdleTimeout <= 0 {
		return false
	}
	return !at.Before(s.LastActivityAt.Add(s.IdleTimeout))
}

// AbsoluteExpired reports whether the absolute duration cap elapsed since creation,
// regardless of activity.
func (s Session) AbsoluteExpired(at time.Time) bool {
	if s.MaxDuration <= 0 {
		return false
	}
	return !at.Before(s.CreatedAt.Add(s.MaxDuration))
}

// IsActive reports whether the session is neither revoked nor expired at the
// supplied moment.
func (s Session) IsActive(at time.Time) bool {
	if s.IsRevoked() {
		return false
	}
	return !s.IdleExpired(at) && !s.AbsoluteExpired(at)
}

// Touch records activity on the session.
func (s *Session) Touch(at time.Time, ip *string) {
	s.LastActivityAt = at
	if ip != nil {
		ipCopy := *ip
		if s.IPFirst == nil {
			s.IPFirst = &ipCopy
		}
		s.IPLast = &ipCopy
	}
}

// Revoke marks the session terminated. Returns true when the session changed state;
// revoking an already-revoked session is a no-op.
func (s *Session) Revoke(at time.Time, reason string) bool {
	if s.RevokedAt != nil {
		return false
	}
	s.RevokedAt = &at
	s.RevokeReason = &reason
	return true
}

// SessionEvent captures lifecycle changes for guardian-facing session history.
type SessionEvent struct {
	ID        string
	SessionID string
	Kind      string
	At        time.Time
	IP        *string
	Details   map[string]any
}
