package domain

import (
	membershipdomain "tenant-admin-plane/internal/membership/domain"
	userdomain "tenant-admin-plane/internal/user/domain"
)

// Session is the enriched session value returned by the reconciler. It is
// built fresh on every session read and never persisted; it is either fully
// enriched or the reconciliation fails.
type Session struct {
	User       SessionUser               `json:"user"`
	Membership *membershipdomain.WithOrg `json:"membership,omitempty"`
}

// SessionUser is the user sub-object of a session.
type SessionUser struct {
	ID    string                `json:"id"`
	Email string                `json:"email"`
	Name  string                `json:"name,omitempty"`
	Role  userdomain.GlobalRole `json:"role"`
}
