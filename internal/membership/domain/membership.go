package domain

import (
	"errors"
	"time"

	orgdomain "tenant-admin-plane/internal/organization/domain"
)

// Membership links a user to an organization with a role. A membership is
// either bound (UserID set) or pending (InvitedEmail set, no user yet);
// exactly one of the two is set at any time. Pending to bound is a one-way
// transition performed by the session reconciler.
type Membership struct {
	ID    string `json:"id"`
	OrgID string `json:"org_id"`
	// UserID is empty while pending; InvitedEmail is empty once bound.
	UserID       string    `json:"user_id,omitempty"`
	InvitedEmail string    `json:"invited_email,omitempty"`
	InvitedName  string    `json:"invited_name,omitempty"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// WithOrg is a membership joined with its organization, as stamped onto sessions
// and returned by list endpoints.
type WithOrg struct {
	Membership
	Organization orgdomain.Org `json:"organization"`
}

type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// Valid reports whether r is a known membership role.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

// Bound reports whether the membership has been claimed by a user.
func (m *Membership) Bound() bool { return m.UserID != "" }

// Pending reports whether the membership is an unclaimed email invitation.
func (m *Membership) Pending() bool { return m.UserID == "" && m.InvitedEmail != "" }

// Validate validates the membership for persistence. Returns an error describing the first validation failure.
func (m *Membership) Validate() error {
	if m.OrgID == "" {
		return errors.New("org_id is required")
	}
	if m.Role == "" {
		m.Role = RoleMember
	}
	if !m.Role.Valid() {
		return errors.New("unknown membership role")
	}
	if (m.UserID == "") == (m.InvitedEmail == "") {
		return errors.New("exactly one of user_id and invited_email must be set")
	}
	return nil
}
