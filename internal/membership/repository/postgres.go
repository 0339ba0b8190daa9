package repository

import (
	"context"
	"database/sql"
	"errors"

	"tenant-admin-plane/internal/membership/domain"
	orgdomain "tenant-admin-plane/internal/organization/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a membership repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const membershipColumns = "id, org_id, user_id, invited_email, invited_name, role, created_at"

// GetByID returns the membership for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Membership, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+membershipColumns+" FROM memberships WHERE id = $1", id)
	m, err := scanMembership(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

// Create persists the membership to the database. The membership must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, m *domain.Membership) error {
	userID := sql.NullString{String: m.UserID, Valid: m.UserID != ""}
	invitedEmail := sql.NullString{String: m.InvitedEmail, Valid: m.InvitedEmail != ""}
	invitedName := sql.NullString{String: m.InvitedName, Valid: m.InvitedName != ""}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO memberships (id, org_id, user_id, invited_email, invited_name, role, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.OrgID, userID, invitedEmail, invitedName, string(m.Role), m.CreatedAt)
	return err
}

// Delete removes the membership.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM memberships WHERE id = $1", id)
	return err
}

// ListPending returns all memberships that still reference an invited email.
func (r *PostgresRepository) ListPending(ctx context.Context) ([]*domain.Membership, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+membershipColumns+" FROM memberships WHERE user_id IS NULL ORDER BY created_at, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListBoundByUser returns the user's bound memberships with organizations, in stable order.
func (r *PostgresRepository) ListBoundByUser(ctx context.Context, userID string) ([]*domain.WithOrg, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT m.id, m.org_id, m.user_id, m.invited_email, m.invited_name, m.role, m.created_at,
		        o.id, o.name, o.created_at, o.updated_at
		 FROM memberships m
		 JOIN organizations o ON o.id = m.org_id
		 WHERE m.user_id = $1
		 ORDER BY m.created_at, m.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.WithOrg
	for rows.Next() {
		var (
			mo           domain.WithOrg
			uid          sql.NullString
			invitedEmail sql.NullString
			invitedName  sql.NullString
			role         string
			org          orgdomain.Org
		)
		if err := rows.Scan(&mo.ID, &mo.OrgID, &uid, &invitedEmail, &invitedName, &role, &mo.CreatedAt,
			&org.ID, &org.Name, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, err
		}
		mo.UserID = uid.String
		mo.InvitedEmail = invitedEmail.String
		mo.InvitedName = invitedName.String
		mo.Role = domain.Role(role)
		mo.Organization = org
		out = append(out, &mo)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMembership(row rowScanner) (*domain.Membership, error) {
	var (
		m            domain.Membership
		userID       sql.NullString
		invitedEmail sql.NullString
		invitedName  sql.NullString
		role         string
	)
	if err := row.Scan(&m.ID, &m.OrgID, &userID, &invitedEmail, &invitedName, &role, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.UserID = userID.String
	m.InvitedEmail = invitedEmail.String
	m.InvitedName = invitedName.String
	m.Role = domain.Role(role)
	return &m, nil
}
