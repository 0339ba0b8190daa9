package access

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	membershipdomain "tenant-admin-plane/internal/membership/domain"
	"tenant-admin-plane/internal/policy/engine"
	"tenant-admin-plane/internal/server/middleware"
	userdomain "tenant-admin-plane/internal/user/domain"
)

type fakeEvaluator struct {
	lastInput engine.AccessInput
	allow     bool
	err       error
}

func (e *fakeEvaluator) EvaluateAccess(ctx context.Context, input engine.AccessInput) (engine.AccessResult, error) {
	e.lastInput = input
	if e.err != nil {
		return engine.AccessResult{}, e.err
	}
	return engine.AccessResult{Allow: e.allow}, nil
}

func (e *fakeEvaluator) HealthCheck(ctx context.Context) error { return nil }

type fakeMemberships struct {
	byUser map[string][]*membershipdomain.WithOrg
	calls  int
	err    error
}

func (f *fakeMemberships) ListBoundByUser(ctx context.Context, userID string) ([]*membershipdomain.WithOrg, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.byUser[userID], nil
}

func identityCtx(userID, role string) context.Context {
	return middleware.WithIdentity(context.Background(), userID, userID+"@x.com", role, "")
}

func TestAllow_ResolvesMembershipRole(t *testing.T) {
	eval := &fakeEvaluator{allow: true}
	memberships := &fakeMemberships{byUser: map[string][]*membershipdomain.WithOrg{
		"u1": {
			{Membership: membershipdomain.Membership{OrgID: "org-1", UserID: "u1", Role: membershipdomain.RoleAdmin}},
			{Membership: membershipdomain.Membership{OrgID: "org-2", UserID: "u1", Role: membershipdomain.RoleMember}},
		},
	}}
	g := NewGuard(eval, memberships)

	ok, err := g.Allow(identityCtx("u1", "MEMBER"), engine.ActionOrgWrite, "org-2")
	if err != nil || !ok {
		t.Fatalf("Allow = %v, %v", ok, err)
	}
	if eval.lastInput.MembershipRole != "MEMBER" {
		t.Errorf("membership role = %q, want MEMBER", eval.lastInput.MembershipRole)
	}
	if eval.lastInput.SubjectID != "u1" || eval.lastInput.OrgID != "org-2" {
		t.Errorf("input = %+v", eval.lastInput)
	}
}

func TestAllow_SuperadminSkipsMembershipLookup(t *testing.T) {
	eval := &fakeEvaluator{allow: true}
	memberships := &fakeMemberships{}
	g := NewGuard(eval, memberships)

	if ok, err := g.Allow(identityCtx("root", string(userdomain.GlobalRoleSuperadmin)), engine.ActionOrgWrite, "org-1"); err != nil || !ok {
		t.Fatalf("Allow = %v, %v", ok, err)
	}
	if memberships.calls != 0 {
		t.Errorf("membership lookup ran %d times, want 0", memberships.calls)
	}
}

func TestAllow_NonMemberHasNoRole(t *testing.T) {
	eval := &fakeEvaluator{allow: false}
	memberships := &fakeMemberships{byUser: map[string][]*membershipdomain.WithOrg{}}
	g := NewGuard(eval, memberships)

	ok, err := g.Allow(identityCtx("u1", "MEMBER"), engine.ActionOrgRead, "org-1")
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if ok {
		t.Error("expected denial")
	}
	if eval.lastInput.MembershipRole != "" {
		t.Errorf("membership role = %q, want empty", eval.lastInput.MembershipRole)
	}
}

func TestAllow_MembershipLookupError(t *testing.T) {
	g := NewGuard(&fakeEvaluator{allow: true}, &fakeMemberships{err: errors.New("db down")})
	if _, err := g.Allow(identityCtx("u1", "MEMBER"), engine.ActionOrgRead, "org-1"); err == nil {
		t.Error("expected error")
	}
}

func TestRequire_WritesDenialResponse(t *testing.T) {
	g := NewGuard(&fakeEvaluator{allow: false}, &fakeMemberships{})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/organizations", nil).WithContext(identityCtx("u1", "MEMBER"))
	if g.Require(rr, req, engine.ActionOrgRead, "") {
		t.Error("Require = true, want false")
	}
	if rr.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rr.Code)
	}
}

func TestRequire_EvaluatorErrorIsInternal(t *testing.T) {
	g := NewGuard(&fakeEvaluator{err: errors.New("compile failed")}, &fakeMemberships{})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/organizations", nil).WithContext(identityCtx("u1", "MEMBER"))
	if g.Require(rr, req, engine.ActionOrgRead, "") {
		t.Error("Require = true, want false")
	}
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
}
