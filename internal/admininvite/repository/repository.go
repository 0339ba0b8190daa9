package repository

import (
	"context"

	"tenant-admin-plane/internal/admininvite/domain"
)

// Repository defines persistence for admin invitations.
type Repository interface {
	Create(ctx context.Context, a *domain.AdminInvitation) error
	List(ctx context.Context) ([]*domain.AdminInvitation, error)
	Delete(ctx context.Context, id string) error
}
