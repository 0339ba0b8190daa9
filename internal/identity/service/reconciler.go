package service

import (
	"context"

	"go.uber.org/zap"

	identitydomain "tenant-admin-plane/internal/identity/domain"
	membershipdomain "tenant-admin-plane/internal/membership/domain"
	userdomain "tenant-admin-plane/internal/user/domain"
)

// Reconciler enriches a session on every read: it promotes pending
// invitations into concrete grants and computes the session's role and
// membership. It is the only code path that mutates invitations.
type Reconciler struct {
	lookup      InvitationLookup
	users       UserReader
	memberships MembershipReader
	consumer    InvitationConsumer
	log         *zap.Logger
}

// NewReconciler returns a reconciler with the given dependencies.
func NewReconciler(lookup InvitationLookup, users UserReader, memberships MembershipReader, consumer InvitationConsumer, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{
		lookup:      lookup,
		users:       users,
		memberships: memberships,
		consumer:    consumer,
		log:         log,
	}
}

// Reconcile builds the enriched session for the authenticated email. It
// returns a fresh session value rather than mutating shared state; on any
// fatal condition no session is returned at all.
//
// An admin invitation takes priority over membership invitations: when both
// are pending, the user is promoted and the membership invitations are left
// untouched for a later read.
func (r *Reconciler) Reconcile(ctx context.Context, email string) (*identitydomain.Session, error) {
	email = CanonicalEmail(email)
	if email == "" {
		return nil, ErrMissingSessionEmail
	}

	pending, adminInvite, err := r.lookup.LookupInvitations(ctx, email)
	if err != nil {
		return nil, err
	}

	user, err := r.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	role := user.Role
	switch {
	case adminInvite != nil:
		if err := r.consumer.PromoteToSuperadmin(ctx, user.ID, adminInvite.ID); err != nil {
			return nil, err
		}
		role = userdomain.GlobalRoleSuperadmin
		r.log.Info("promoted user to superadmin",
			zap.String("user_id", user.ID),
			zap.String("invitation_id", adminInvite.ID))
	case len(pending) > 0:
		ids := make([]string, 0, len(pending))
		for _, m := range pending {
			if m.Pending() {
				ids = append(ids, m.ID)
			}
		}
		if err := r.consumer.BindMemberships(ctx, user.ID, ids); err != nil {
			return nil, err
		}
		r.log.Info("bound pending memberships",
			zap.String("user_id", user.ID),
			zap.Int("count", len(ids)))
	}

	bound, err := r.memberships.ListBoundByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	membership := selectMembership(bound)

	if role != userdomain.GlobalRoleSuperadmin && membership == nil {
		return nil, ErrInconsistentSession
	}

	return &identitydomain.Session{
		User: identitydomain.SessionUser{
			ID:    user.ID,
			Email: user.Email,
			Name:  user.Name,
			Role:  role,
		},
		Membership: membership,
	}, nil
}

// selectMembership picks the session membership when a user belongs to more
// than one organization. Current policy: the first membership in the store's
// stable order. Kept as its own function so the policy has a single home.
func selectMembership(bound []*membershipdomain.WithOrg) *membershipdomain.WithOrg {
	if len(bound) == 0 {
		return nil
	}
	return bound[0]
}
