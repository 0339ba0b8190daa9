package repository

import (
	"context"
	"database/sql"

	"tenant-admin-plane/internal/admininvite/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an admin invitation repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the invitation to the database. The invitation must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AdminInvitation) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO admin_invitations (id, invited_email, created_at) VALUES ($1, $2, $3)",
		a.ID, a.InvitedEmail, a.CreatedAt)
	return err
}

// List returns all pending admin invitations, oldest first.
func (r *PostgresRepository) List(ctx context.Context) ([]*domain.AdminInvitation, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, invited_email, created_at FROM admin_invitations ORDER BY created_at, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.AdminInvitation
	for rows.Next() {
		var a domain.AdminInvitation
		if err := rows.Scan(&a.ID, &a.InvitedEmail, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// Delete removes the invitation. Deleting an already-deleted invitation is not an error.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM admin_invitations WHERE id = $1", id)
	return err
}
