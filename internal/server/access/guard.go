// Package access answers per-request authorization questions for the admin API.
package access

import (
	"context"
	"net/http"

	membershipdomain "tenant-admin-plane/internal/membership/domain"
	"tenant-admin-plane/internal/policy/engine"
	"tenant-admin-plane/internal/server/middleware"
	"tenant-admin-plane/internal/server/respond"
	userdomain "tenant-admin-plane/internal/user/domain"
)

// MembershipLister is the membership lookup the guard needs to resolve the
// subject's role within an organization.
type MembershipLister interface {
	ListBoundByUser(ctx context.Context, userID string) ([]*membershipdomain.WithOrg, error)
}

// Guard evaluates admin-access policy for the principal in the request context.
type Guard struct {
	evaluator   engine.Evaluator
	memberships MembershipLister
}

// NewGuard returns a guard backed by the given evaluator and membership lookup.
func NewGuard(evaluator engine.Evaluator, memberships MembershipLister) *Guard {
	return &Guard{evaluator: evaluator, memberships: memberships}
}

// Allow reports whether the principal may perform action, scoped to orgID when
// non-empty.
func (g *Guard) Allow(ctx context.Context, action, orgID string) (bool, error) {
	userID, _ := middleware.GetUserID(ctx)
	role, _ := middleware.GetRole(ctx)

	input := engine.AccessInput{
		SubjectID:   userID,
		SubjectRole: role,
		Action:      action,
		OrgID:       orgID,
	}
	if orgID != "" && role != string(userdomain.GlobalRoleSuperadmin) {
		bound, err := g.memberships.ListBoundByUser(ctx, userID)
		if err != nil {
			return false, err
		}
		for _, m := range bound {
			if m.OrgID == orgID {
				input.MembershipRole = string(m.Role)
				break
			}
		}
	}
	result, err := g.evaluator.EvaluateAccess(ctx, input)
	if err != nil {
		return false, err
	}
	return result.Allow, nil
}

// Require is the handler-side convenience: it writes the error response on
// denial and reports whether the request may proceed.
func (g *Guard) Require(w http.ResponseWriter, r *http.Request, action, orgID string) bool {
	ok, err := g.Allow(r.Context(), action, orgID)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "internal", "internal error")
		return false
	}
	if !ok {
		respond.Error(w, http.StatusForbidden, "forbidden", "insufficient privileges")
		return false
	}
	return true
}
