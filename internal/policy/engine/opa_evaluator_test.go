package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"tenant-admin-plane/internal/policy/domain"
	"tenant-admin-plane/internal/policy/repository"
)

func TestOPAEvaluator_HealthCheck(t *testing.T) {
	// HealthCheck does not use the policy repo.
	e := NewOPAEvaluator(nil, nil)
	if err := e.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

// mockPolicyRepo implements repository.Repository for tests.
type mockPolicyRepo struct {
	policies map[string]*domain.AccessPolicy
	err      error
}

var _ repository.Repository = (*mockPolicyRepo)(nil)

func (m *mockPolicyRepo) GetByOrg(ctx context.Context, orgID string) (*domain.AccessPolicy, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.policies[orgID], nil
}

func (m *mockPolicyRepo) Upsert(ctx context.Context, p *domain.AccessPolicy) error { return nil }

func (m *mockPolicyRepo) Delete(ctx context.Context, orgID string) error { return nil }

func TestOPAEvaluator_SuperadminAllowedEverything(t *testing.T) {
	e := NewOPAEvaluator(&mockPolicyRepo{}, nil)
	ctx := context.Background()

	for _, action := range []string{ActionOrgRead, ActionOrgWrite, ActionMemberWrite, ActionUserRead, ActionUserWrite, ActionAdminInvite} {
		result, err := e.EvaluateAccess(ctx, AccessInput{
			SubjectID:   "u1",
			SubjectRole: "SUPERADMIN",
			Action:      action,
		})
		if err != nil {
			t.Fatalf("EvaluateAccess(%s): %v", action, err)
		}
		if !result.Allow {
			t.Errorf("superadmin denied %s", action)
		}
	}
}

func TestOPAEvaluator_MemberCanReadOwnOrg(t *testing.T) {
	e := NewOPAEvaluator(&mockPolicyRepo{}, nil)

	result, err := e.EvaluateAccess(context.Background(), AccessInput{
		SubjectID:      "u1",
		SubjectRole:    "MEMBER",
		Action:         ActionOrgRead,
		OrgID:          "org-1",
		MembershipRole: "MEMBER",
	})
	if err != nil {
		t.Fatalf("EvaluateAccess: %v", err)
	}
	if !result.Allow {
		t.Error("org member should be allowed org.read")
	}
}

func TestOPAEvaluator_MemberDeniedWrites(t *testing.T) {
	e := NewOPAEvaluator(&mockPolicyRepo{}, nil)
	ctx := context.Background()

	for _, action := range []string{ActionOrgWrite, ActionMemberWrite, ActionUserWrite, ActionAdminInvite} {
		result, err := e.EvaluateAccess(ctx, AccessInput{
			SubjectID:      "u1",
			SubjectRole:    "MEMBER",
			Action:         action,
			OrgID:          "org-1",
			MembershipRole: "MEMBER",
		})
		if err != nil {
			t.Fatalf("EvaluateAccess(%s): %v", action, err)
		}
		if result.Allow {
			t.Errorf("plain member allowed %s", action)
		}
	}
}

func TestOPAEvaluator_OwnerManagesOwnOrg(t *testing.T) {
	e := NewOPAEvaluator(&mockPolicyRepo{}, nil)
	ctx := context.Background()

	for _, role := range []string{"OWNER", "ADMIN"} {
		for _, action := range []string{ActionOrgWrite, ActionMemberWrite} {
			result, err := e.EvaluateAccess(ctx, AccessInput{
				SubjectID:      "u1",
				SubjectRole:    "MEMBER",
				Action:         action,
				OrgID:          "org-1",
				MembershipRole: role,
			})
			if err != nil {
				t.Fatalf("EvaluateAccess(%s, %s): %v", role, action, err)
			}
			if !result.Allow {
				t.Errorf("org %s denied %s", role, action)
			}
		}
	}
}

func TestOPAEvaluator_NonMemberDenied(t *testing.T) {
	e := NewOPAEvaluator(&mockPolicyRepo{}, nil)

	result, err := e.EvaluateAccess(context.Background(), AccessInput{
		SubjectID:   "u1",
		SubjectRole: "MEMBER",
		Action:      ActionOrgRead,
		OrgID:       "org-1",
	})
	if err != nil {
		t.Fatalf("EvaluateAccess: %v", err)
	}
	if result.Allow {
		t.Error("user without membership should be denied org.read")
	}
}

func TestOPAEvaluator_OrgOverride(t *testing.T) {
	// Override locks the org down to superadmins only.
	override := `package tap.admin_access

default allow = false

allow if {
	input.subject.role == "SUPERADMIN"
}
`
	repo := &mockPolicyRepo{policies: map[string]*domain.AccessPolicy{
		"org-1": {OrgID: "org-1", Rego: override, UpdatedAt: time.Now().UTC()},
	}}
	e := NewOPAEvaluator(repo, nil)
	ctx := context.Background()

	result, err := e.EvaluateAccess(ctx, AccessInput{
		SubjectID:      "u1",
		SubjectRole:    "MEMBER",
		Action:         ActionOrgRead,
		OrgID:          "org-1",
		MembershipRole: "OWNER",
	})
	if err != nil {
		t.Fatalf("EvaluateAccess: %v", err)
	}
	if result.Allow {
		t.Error("override should deny the org owner")
	}

	// Other orgs still get the default policy.
	result, err = e.EvaluateAccess(ctx, AccessInput{
		SubjectID:      "u1",
		SubjectRole:    "MEMBER",
		Action:         ActionOrgRead,
		OrgID:          "org-2",
		MembershipRole: "MEMBER",
	})
	if err != nil {
		t.Fatalf("EvaluateAccess: %v", err)
	}
	if !result.Allow {
		t.Error("default policy should apply to orgs without overrides")
	}
}

func TestOPAEvaluator_RepoErrorFallsBackToDefault(t *testing.T) {
	repo := &mockPolicyRepo{err: errors.New("database error")}
	e := NewOPAEvaluator(repo, nil)

	result, err := e.EvaluateAccess(context.Background(), AccessInput{
		SubjectID:      "u1",
		SubjectRole:    "MEMBER",
		Action:         ActionOrgRead,
		OrgID:          "org-1",
		MembershipRole: "MEMBER",
	})
	if err != nil {
		t.Fatalf("EvaluateAccess should not return error on repo error: %v", err)
	}
	if !result.Allow {
		t.Error("default policy should apply when the override cannot be loaded")
	}
}

func TestOPAEvaluator_InvalidOverrideDenies(t *testing.T) {
	repo := &mockPolicyRepo{policies: map[string]*domain.AccessPolicy{
		"org-1": {OrgID: "org-1", Rego: "package tap.admin_access\n\ninvalid syntax here\n"},
	}}
	e := NewOPAEvaluator(repo, nil)

	result, err := e.EvaluateAccess(context.Background(), AccessInput{
		SubjectID:      "u1",
		SubjectRole:    "MEMBER",
		Action:         ActionOrgRead,
		OrgID:          "org-1",
		MembershipRole: "OWNER",
	})
	if err != nil {
		t.Fatalf("EvaluateAccess should not return error on invalid policy: %v", err)
	}
	if result.Allow {
		t.Error("a broken override must deny, not fall open")
	}
}
