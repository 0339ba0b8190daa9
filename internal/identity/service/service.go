// Package service implements the sign-in gate and the session reconciler: the
// two decision points that admit principals and convert pending invitations
// into bound memberships and roles.
package service

import (
	"context"
	"errors"
	"strings"

	admininvitedomain "tenant-admin-plane/internal/admininvite/domain"
	membershipdomain "tenant-admin-plane/internal/membership/domain"
	userdomain "tenant-admin-plane/internal/user/domain"
)

// Sentinel errors for the sign-in and reconciliation flow; the handler maps
// them to HTTP responses.
var (
	// ErrUnsupportedAccountType indicates a deployment misconfiguration: the
	// identity provider handed us an account type this system cannot authorize.
	ErrUnsupportedAccountType = errors.New("unsupported account type")
	// ErrMissingSessionEmail indicates an identity-provider contract breach: a
	// session reached the reconciler without an authenticated email.
	ErrMissingSessionEmail = errors.New("session carries no email")
	// ErrUserNotFound indicates an identity-provider contract breach: a session
	// was materialized before its user record was created.
	ErrUserNotFound = errors.New("no user record for authenticated email")
	// ErrInconsistentSession indicates a data-integrity violation: a
	// non-superadmin user finished reconciliation with no membership.
	ErrInconsistentSession = errors.New("user has no admin role and no membership")
)

// InvitationLookup is the snapshot read of pending invitations for an email.
// Both results are read inside one transaction; a torn read could admit a user
// as ordinary while an admin invitation exists.
type InvitationLookup interface {
	LookupInvitations(ctx context.Context, email string) ([]*membershipdomain.Membership, *admininvitedomain.AdminInvitation, error)
}

// UserReader is the minimal user repository needed by the reconciler.
type UserReader interface {
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
}

// MembershipReader is the minimal membership repository needed by the reconciler.
type MembershipReader interface {
	ListBoundByUser(ctx context.Context, userID string) ([]*membershipdomain.WithOrg, error)
}

// InvitationConsumer performs the two transactional invitation-consumption
// writes. Implementations must be idempotent at the storage layer so two
// concurrent reconciliations for one email cannot double-promote or double-bind.
type InvitationConsumer interface {
	PromoteToSuperadmin(ctx context.Context, userID, invitationID string) error
	BindMemberships(ctx context.Context, userID string, membershipIDs []string) error
}

// CanonicalEmail returns the lower-cased, trimmed form of email used as the
// join key between invitations and users.
func CanonicalEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
