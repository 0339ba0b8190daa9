package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	identitydomain "tenant-admin-plane/internal/identity/domain"
	userdomain "tenant-admin-plane/internal/user/domain"
)

// SignInRequest describes one authentication attempt as reported by the
// identity provider.
type SignInRequest struct {
	AccountType identitydomain.AccountType
	// ProfileEmail is the email claim from the OAuth profile, if any.
	ProfileEmail string
	// ProviderAccountID is the provider-scoped account identifier; for email
	// sign-in it is the address itself.
	ProviderAccountID string
	// ExistingUser is the persisted user record for this principal, if one has
	// already been materialized.
	ExistingUser *userdomain.User
}

// Gate decides accept/reject once per authentication attempt. It never
// mutates invitations or memberships: a sign-in aborted downstream (token
// issuance failure, abandoned request) must leave zero side effects.
type Gate struct {
	lookup InvitationLookup
	log    *zap.Logger
}

// NewGate returns a sign-in gate using the given invitation lookup.
func NewGate(lookup InvitationLookup, log *zap.Logger) *Gate {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gate{lookup: lookup, log: log}
}

// Authorize returns whether the principal may sign in. A returning user that
// is already verified for its path is trusted without an invitation lookup.
// An unsupported account type is a configuration error, not a rejection.
func (g *Gate) Authorize(ctx context.Context, req SignInRequest) (bool, error) {
	if u := req.ExistingUser; u != nil {
		switch req.AccountType {
		case identitydomain.AccountTypeOAuth:
			if u.Role != "" && !u.CreatedAt.IsZero() {
				return true, nil
			}
		case identitydomain.AccountTypeEmail:
			if u.EmailVerified != nil {
				return true, nil
			}
		}
	}

	var email string
	switch req.AccountType {
	case identitydomain.AccountTypeOAuth:
		email = CanonicalEmail(req.ProfileEmail)
	case identitydomain.AccountTypeEmail:
		email = CanonicalEmail(req.ProviderAccountID)
	default:
		return false, fmt.Errorf("%w: %q", ErrUnsupportedAccountType, req.AccountType)
	}

	if email == "" {
		g.log.Warn("sign-in profile carries no email claim",
			zap.String("account_type", string(req.AccountType)))
		return false, nil
	}

	memberships, adminInvite, err := g.lookup.LookupInvitations(ctx, email)
	if err != nil {
		return false, err
	}
	return len(memberships) > 0 || adminInvite != nil, nil
}
