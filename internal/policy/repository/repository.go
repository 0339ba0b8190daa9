package repository

import (
	"context"

	"tenant-admin-plane/internal/policy/domain"
)

// Repository provides access-policy persistence.
type Repository interface {
	// GetByOrg returns the org's policy override, or nil when none exists.
	GetByOrg(ctx context.Context, orgID string) (*domain.AccessPolicy, error)
	// Upsert creates or replaces the org's policy override.
	Upsert(ctx context.Context, p *domain.AccessPolicy) error
	// Delete removes the org's policy override. Deleting a missing row is not an error.
	Delete(ctx context.Context, orgID string) error
}
