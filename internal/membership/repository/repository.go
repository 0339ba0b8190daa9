package repository

import (
	"context"

	"tenant-admin-plane/internal/membership/domain"
)

// Repository defines persistence for memberships.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Membership, error)
	// Create persists a membership, bound or pending. The membership must have ID set.
	Create(ctx context.Context, m *domain.Membership) error
	Delete(ctx context.Context, id string) error
	// ListPending returns all memberships that have an invited email and no user yet.
	ListPending(ctx context.Context) ([]*domain.Membership, error)
	// ListBoundByUser returns the user's bound memberships with their organizations,
	// ordered by created_at then id.
	ListBoundByUser(ctx context.Context, userID string) ([]*domain.WithOrg, error)
}
