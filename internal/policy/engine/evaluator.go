package engine

import "context"

// Actions checked by the admin API. The Rego input carries them verbatim.
const (
	ActionOrgRead     = "org.read"
	ActionOrgWrite    = "org.write"
	ActionMemberWrite = "member.write"
	ActionUserRead    = "user.read"
	ActionUserWrite   = "user.write"
	ActionAdminInvite = "admin.invite"
)

// AccessInput describes one authorization question: may this subject perform
// this action, possibly scoped to an organization it holds a membership in.
type AccessInput struct {
	SubjectID      string
	SubjectRole    string
	Action         string
	OrgID          string
	MembershipRole string
}

// AccessResult holds the result of an admin-access policy evaluation.
type AccessResult struct {
	Allow bool
}

// Evaluator answers admin-access questions using OPA or other engines.
type Evaluator interface {
	// EvaluateAccess evaluates the platform default policy, or the org's
	// override when one exists, against the given input.
	EvaluateAccess(ctx context.Context, input AccessInput) (AccessResult, error)
}
