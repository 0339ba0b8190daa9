package engine

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"go.uber.org/zap"

	"tenant-admin-plane/internal/policy/repository"
)

const allowQuery = "data.tap.admin_access.allow"

// Platform default policy: superadmins may do anything, org owners and admins
// may read and manage their own organization, plain members may read it.
const defaultRegoPolicy = `package tap.admin_access

default allow = false

allow if {
	input.subject.role == "SUPERADMIN"
}

allow if {
	input.action == "org.read"
	input.membership.role != ""
}

allow if {
	input.action == "org.write"
	input.membership.role == "OWNER"
}

allow if {
	input.action == "org.write"
	input.membership.role == "ADMIN"
}

allow if {
	input.action == "member.write"
	input.membership.role == "OWNER"
}

allow if {
	input.action == "member.write"
	input.membership.role == "ADMIN"
}
`

// OPAEvaluator evaluates admin-access policy using OPA Rego. An org's stored
// override replaces the default module entirely for requests scoped to it.
type OPAEvaluator struct {
	policyRepo repository.Repository
	log        *zap.Logger
}

// NewOPAEvaluator returns an OPA-based access evaluator.
func NewOPAEvaluator(policyRepo repository.Repository, log *zap.Logger) *OPAEvaluator {
	if log == nil {
		log = zap.NewNop()
	}
	return &OPAEvaluator{policyRepo: policyRepo, log: log}
}

// HealthCheck verifies that the in-process OPA Rego engine can compile and
// evaluate the default policy. Does not call the policy repo or database.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	compiler, err := ast.CompileModules(map[string]string{"policy_0.rego": defaultRegoPolicy})
	if err != nil {
		return fmt.Errorf("compile default policy: %w", err)
	}
	rs, err := rego.New(
		rego.Query(allowQuery),
		rego.Compiler(compiler),
		rego.Input(buildInput(AccessInput{Action: ActionOrgRead})),
	).Eval(ctx)
	if err != nil {
		return fmt.Errorf("eval default policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return fmt.Errorf("policy query returned no result")
	}
	return nil
}

// EvaluateAccess answers the authorization question for input. Evaluation
// failures deny: a broken override must not open an organization up.
func (e *OPAEvaluator) EvaluateAccess(ctx context.Context, input AccessInput) (AccessResult, error) {
	module := defaultRegoPolicy
	if input.OrgID != "" && e.policyRepo != nil {
		override, err := e.policyRepo.GetByOrg(ctx, input.OrgID)
		if err != nil {
			e.log.Warn("failed to load org policy override, using default",
				zap.String("org_id", input.OrgID), zap.Error(err))
		} else if override != nil && override.Rego != "" {
			module = override.Rego
		}
	}

	compiler, err := ast.CompileModules(map[string]string{"policy_0.rego": module})
	if err != nil {
		e.log.Warn("policy compile failed, denying",
			zap.String("org_id", input.OrgID), zap.Error(err))
		return AccessResult{Allow: false}, nil
	}

	rs, err := rego.New(
		rego.Query(allowQuery),
		rego.Compiler(compiler),
		rego.Input(buildInput(input)),
	).Eval(ctx)
	if err != nil {
		e.log.Warn("policy evaluation failed, denying",
			zap.String("org_id", input.OrgID), zap.Error(err))
		return AccessResult{Allow: false}, nil
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return AccessResult{Allow: false}, nil
	}
	allow, _ := rs[0].Expressions[0].Value.(bool)
	return AccessResult{Allow: allow}, nil
}

func buildInput(in AccessInput) map[string]interface{} {
	return map[string]interface{}{
		"subject": map[string]interface{}{
			"id":   in.SubjectID,
			"role": in.SubjectRole,
		},
		"action": in.Action,
		"org": map[string]interface{}{
			"id": in.OrgID,
		},
		"membership": map[string]interface{}{
			"role": in.MembershipRole,
		},
	}
}
