package domain

import "time"

// Role distinguishes adult and child principals. Roles never change after creation.
type Role string

const (
	RoleAdult Role = "adult"
	RoleChild Role = "child"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleAdult || r == RoleChild
}

// Principal is an authenticated identity, adult or child.
type Principal struct {
	ID          string
	Role        Role
	Username    string
	Email       *string
	DisplayName string
	SecretHash  string
	GuardianID  *string
	IsActive    bool
	CreatedAt   time.Time
}

// IsChild reports whether the principal is governed by child session policy.
func (p Principal) IsChild() bool {
	return p.Role == RoleChild
}

// OverseenBy reports whether guardianID is allowed guardian oversight of this principal.
func (p Principal) OverseenBy(guardianID string) bool {
	if guardianID == "" {
		return false
	}
	return p.GuardianID != nil && *p.GuardianID == guardianID
}
