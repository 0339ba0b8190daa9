package repository

import (
	"context"

	membershipdomain "tenant-admin-plane/internal/membership/domain"
	"tenant-admin-plane/internal/organization/domain"
	userdomain "tenant-admin-plane/internal/user/domain"
)

// OrgWithCount is an organization plus its membership count, for list views.
type OrgWithCount struct {
	domain.Org
	MembershipCount int64
}

// Member is a membership joined with its user (nil while pending), for the
// organization detail view.
type Member struct {
	membershipdomain.Membership
	User *userdomain.User
}

// OrgWithMembers is an organization with all of its memberships and their users.
type OrgWithMembers struct {
	domain.Org
	Members []*Member
}

// Repository defines persistence for organizations.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Org, error)
	// GetWithMembers returns the org with its memberships and their users, or nil if not found.
	GetWithMembers(ctx context.Context, id string) (*OrgWithMembers, error)
	// List returns organizations newest-first with membership counts, starting
	// after the cursor id when set.
	List(ctx context.Context, limit int32, cursor string) ([]*OrgWithCount, error)
	Create(ctx context.Context, o *domain.Org) error
	Update(ctx context.Context, o *domain.Org) error
	Delete(ctx context.Context, id string) error
}
