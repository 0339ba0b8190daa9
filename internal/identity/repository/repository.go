package repository

import (
	"context"
	"time"

	admininvitedomain "tenant-admin-plane/internal/admininvite/domain"
	"tenant-admin-plane/internal/identity/domain"
	membershipdomain "tenant-admin-plane/internal/membership/domain"
)

// Repository defines the transactional persistence operations of the sign-in
// and reconciliation flow. Grouped operations are atomic: all statements
// commit together or none do, and reads within a group observe one snapshot.
type Repository interface {
	// LookupInvitations returns all pending memberships invited for email and at
	// most one admin invitation for email, read from a single snapshot.
	LookupInvitations(ctx context.Context, email string) ([]*membershipdomain.Membership, *admininvitedomain.AdminInvitation, error)
	// PromoteToSuperadmin sets the user's role to SUPERADMIN and deletes the
	// consumed admin invitation in one transaction. Idempotent: an already
	// promoted user or an already deleted invitation is treated as satisfied.
	PromoteToSuperadmin(ctx context.Context, userID, invitationID string) error
	// BindMemberships claims the given pending memberships for the user in one
	// transaction: user_id is set, invited_email and invited_name are cleared.
	// Rows that are already bound are left untouched.
	BindMemberships(ctx context.Context, userID string, membershipIDs []string) error

	CreateVerificationToken(ctx context.Context, t *domain.VerificationToken) error
	// ConsumeVerificationToken deletes and returns the token for (identifier,
	// tokenHash), or nil if no such token exists.
	ConsumeVerificationToken(ctx context.Context, identifier, tokenHash string) (*domain.VerificationToken, error)
	// DeleteExpiredVerificationTokens removes tokens that expired before now and
	// returns how many were deleted.
	DeleteExpiredVerificationTokens(ctx context.Context, now time.Time) (int64, error)
}
