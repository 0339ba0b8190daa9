package repository

import (
	"context"
	"database/sql"
	"errors"

	membershipdomain "tenant-admin-plane/internal/membership/domain"
	"tenant-admin-plane/internal/organization/domain"
	userdomain "tenant-admin-plane/internal/user/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an organization repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the organization for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Org, error) {
	var o domain.Org
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, created_at, updated_at FROM organizations WHERE id = $1", id).
		Scan(&o.ID, &o.Name, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

// GetWithMembers returns the organization with its memberships and their users,
// or nil if the organization does not exist.
func (r *PostgresRepository) GetWithMembers(ctx context.Context, id string) (*OrgWithMembers, error) {
	org, err := r.GetByID(ctx, id)
	if err != nil || org == nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT m.id, m.org_id, m.user_id, m.invited_email, m.invited_name, m.role, m.created_at,
		        u.id, u.email, u.name, u.role, u.email_verified, u.created_at, u.updated_at
		 FROM memberships m
		 LEFT JOIN users u ON u.id = m.user_id
		 WHERE m.org_id = $1
		 ORDER BY m.created_at, m.id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := &OrgWithMembers{Org: *org}
	for rows.Next() {
		var (
			m            membershipdomain.Membership
			userID       sql.NullString
			invitedEmail sql.NullString
			invitedName  sql.NullString
			role         string

			uID       sql.NullString
			uEmail    sql.NullString
			uName     sql.NullString
			uRole     sql.NullString
			uVerified sql.NullTime
			uCreated  sql.NullTime
			uUpdated  sql.NullTime
		)
		if err := rows.Scan(&m.ID, &m.OrgID, &userID, &invitedEmail, &invitedName, &role, &m.CreatedAt,
			&uID, &uEmail, &uName, &uRole, &uVerified, &uCreated, &uUpdated); err != nil {
			return nil, err
		}
		m.UserID = userID.String
		m.InvitedEmail = invitedEmail.String
		m.InvitedName = invitedName.String
		m.Role = membershipdomain.Role(role)
		member := &Member{Membership: m}
		if uID.Valid {
			u := &userdomain.User{
				ID:        uID.String,
				Email:     uEmail.String,
				Name:      uName.String,
				Role:      userdomain.GlobalRole(uRole.String),
				CreatedAt: uCreated.Time,
				UpdatedAt: uUpdated.Time,
			}
			if uVerified.Valid {
				t := uVerified.Time
				u.EmailVerified = &t
			}
			member.User = u
		}
		out.Members = append(out.Members, member)
	}
	return out, rows.Err()
}

// List returns organizations newest-first with membership counts.
// When cursor is non-empty, only organizations created before the cursor org are returned.
func (r *PostgresRepository) List(ctx context.Context, limit int32, cursor string) ([]*OrgWithCount, error) {
	query := `SELECT o.id, o.name, o.created_at, o.updated_at, COUNT(m.id)
		 FROM organizations o
		 LEFT JOIN memberships m ON m.org_id = o.id
		 GROUP BY o.id
		 ORDER BY o.created_at DESC, o.id DESC LIMIT $1`
	args := []any{limit}
	if cursor != "" {
		query = `SELECT o.id, o.name, o.created_at, o.updated_at, COUNT(m.id)
		 FROM organizations o
		 LEFT JOIN memberships m ON m.org_id = o.id
		 WHERE (o.created_at, o.id) < (SELECT created_at, id FROM organizations WHERE id = $2)
		 GROUP BY o.id
		 ORDER BY o.created_at DESC, o.id DESC LIMIT $1`
		args = append(args, cursor)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*OrgWithCount
	for rows.Next() {
		var o OrgWithCount
		if err := rows.Scan(&o.ID, &o.Name, &o.CreatedAt, &o.UpdatedAt, &o.MembershipCount); err != nil {
			return nil, err
		}
		out = append(out, &o)
	}
	return out, rows.Err()
}

// Create persists the organization to the database. The org must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, o *domain.Org) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO organizations (id, name, created_at, updated_at) VALUES ($1, $2, $3, $4)",
		o.ID, o.Name, o.CreatedAt, o.UpdatedAt)
	return err
}

// Update updates the organization's name and updated_at.
func (r *PostgresRepository) Update(ctx context.Context, o *domain.Org) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE organizations SET name = $2, updated_at = $3 WHERE id = $1",
		o.ID, o.Name, o.UpdatedAt)
	return err
}

// Delete removes the organization. Memberships cascade at the database level.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM organizations WHERE id = $1", id)
	return err
}
