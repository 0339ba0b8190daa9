package repository

import (
	"context"

	membershipdomain "tenant-admin-plane/internal/membership/domain"
	"tenant-admin-plane/internal/user/domain"
)

// UserWithMemberships is a user joined with their memberships and organizations,
// as returned by the paginated list endpoint.
type UserWithMemberships struct {
	domain.User
	Memberships []*membershipdomain.WithOrg
}

// Repository defines persistence for users.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	// List returns users newest-first, starting after the cursor id when set.
	// limit+1 rows may be requested by the caller to compute the next cursor.
	List(ctx context.Context, limit int32, cursor string) ([]*UserWithMemberships, error)
	SetEmailVerified(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}
