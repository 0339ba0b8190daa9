package domain

import (
	"errors"
	"time"
)

// User is the core user entity. A user record is created on the first accepted
// sign-in; Role is mutated only by the session reconciler (promotion to
// SUPERADMIN) or admin tooling.
type User struct {
	ID            string
	Email         string
	Name          string
	Role          GlobalRole
	EmailVerified *time.Time // nil until the email sign-in flow verifies the address
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// GlobalRole is the platform-wide role of a user. It is a closed enumeration;
// transitions happen only through the documented reconciliation path.
type GlobalRole string

const (
	GlobalRoleMember     GlobalRole = "MEMBER"
	GlobalRoleAdmin      GlobalRole = "ADMIN"
	GlobalRoleSuperadmin GlobalRole = "SUPERADMIN"
)

// Valid reports whether r is a known global role.
func (r GlobalRole) Valid() bool {
	switch r {
	case GlobalRoleMember, GlobalRoleAdmin, GlobalRoleSuperadmin:
		return true
	}
	return false
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Role == "" {
		u.Role = GlobalRoleMember
	}
	if !u.Role.Valid() {
		return errors.New("unknown global role")
	}
	return nil
}
