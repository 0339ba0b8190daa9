package repository

import (
	"context"
	"database/sql"
	"errors"

	"tenant-admin-plane/internal/policy/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a policy repository that uses the given db for persistence.
func NewPostgresRepository(database *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: database}
}

func (r *PostgresRepository) GetByOrg(ctx context.Context, orgID string) (*domain.AccessPolicy, error) {
	var p domain.AccessPolicy
	err := r.db.QueryRowContext(ctx,
		"SELECT org_id, rego, updated_at FROM access_policies WHERE org_id = $1", orgID).
		Scan(&p.OrgID, &p.Rego, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, p *domain.AccessPolicy) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO access_policies (org_id, rego, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (org_id) DO UPDATE SET rego = EXCLUDED.rego, updated_at = EXCLUDED.updated_at`,
		p.OrgID, p.Rego, p.UpdatedAt)
	return err
}

func (r *PostgresRepository) Delete(ctx context.Context, orgID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM access_policies WHERE org_id = $1", orgID)
	return err
}
