package domain

import "time"

// RefreshToken is a single-use, hashed-at-rest rotation credential. Every
// successful refresh consumes the token and replaces it with a new one.
type RefreshToken struct {
	ID          string
	PrincipalID string
	SessionID   string
	TokenHash   string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	UsedAt      *time.Time
	RevokedAt   *time.Time
	RotatedFrom *string
}

// IsExpired reports whether the token has elapsed its validity window.
func (t RefreshToken) IsExpired(at time.Time) bool {
	return !t.ExpiresAt.After(at)
}

// IsActive reports whether the token can still be presented for rotation.
func (t RefreshToken) IsActive(at time.Time) bool {
	if t.RevokedAt != nil || t.UsedAt != nil {
		return false
	}
	return !t.IsExpired(at)
}

// MarkUsed records the moment the token was exchanged. Returns true if the token
// transitioned from unused to used.
func (t *RefreshToken) MarkUsed(at time.Time) bool {
	if t.UsedAt != nil {
		return false
	}
	atCopy := at
	t.UsedAt = &atCopy
	return true
}

// Revoke marks the token as revoked. Returns true when the state changed.
func (t *RefreshToken) Revoke(at time.Time) bool {
	if t.RevokedAt != nil {
		return false
	}
	atCopy := at
	t.RevokedAt = &atCopy
	return true
}
