package usecase

import (
	"time"

	"github.com/santhoshmp/learningplanner/internal/core/domain"
	"github.com/santhoshmp/learningplanner/internal/infra/config"
)

const (
	defaultAdultIdleTimeout = 12 * time.Hour
	defaultAdultMaxDuration = 30 * 24 * time.Hour
)

// PolicyForRole resolves the timeout policy applied to a new session. Child
// bounds are fixed in the domain package and never widen through
// configuration; adult bounds come from settings.
func PolicyForRole(role domain.Role, settings config.SessionSettings) domain.TimeoutPolicy {
	if role == domain.RoleChild {
		return domain.ChildTimeoutPolicy()
	}

	policy := domain.TimeoutPolicy{
		IdleTimeout: settings.AdultIdleTimeout,
		MaxDuration: settings.AdultMaxDuration,
	}
	if policy.IdleTimeout <= 0 {
		policy.IdleTimeout = defaultAdultIdleTimeout
	}
	if policy.MaxDuration <= 0 {
		policy.MaxDuration = defaultAdultMaxDuration
	}
	return policy
}
