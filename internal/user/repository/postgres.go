package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	membershipdomain "tenant-admin-plane/internal/membership/domain"
	orgdomain "tenant-admin-plane/internal/organization/domain"
	"tenant-admin-plane/internal/user/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = "id, email, name, role, email_verified, created_at, updated_at"

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
	return scanUser(row)
}

// GetByEmail returns the user with the given email, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", email)
	return scanUser(row)
}

// Create persists the user to the database. The user must have ID set; it is not assigned by this method.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	name := sql.NullString{String: u.Name, Valid: u.Name != ""}
	var verified sql.NullTime
	if u.EmailVerified != nil {
		verified = sql.NullTime{Time: *u.EmailVerified, Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, role, email_verified, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Email, name, string(u.Role), verified, u.CreatedAt, u.UpdatedAt)
	return err
}

// List returns users newest-first with their memberships and organizations.
// When cursor is non-empty, only users created before the cursor user are returned.
func (r *PostgresRepository) List(ctx context.Context, limit int32, cursor string) ([]*UserWithMemberships, error) {
	query := "SELECT " + userColumns + " FROM users ORDER BY created_at DESC, id DESC LIMIT $1"
	args := []any{limit}
	if cursor != "" {
		query = "SELECT " + userColumns + ` FROM users
		 WHERE (created_at, id) < (SELECT created_at, id FROM users WHERE id = $2)
		 ORDER BY created_at DESC, id DESC LIMIT $1`
		args = append(args, cursor)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*UserWithMemberships
	ids := make([]string, 0)
	for rows.Next() {
		u, err := scanUserRows(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, &UserWithMemberships{User: *u})
		ids = append(ids, u.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return users, nil
	}

	byUser := make(map[string]*UserWithMemberships, len(users))
	for _, u := range users {
		byUser[u.ID] = u
	}
	mrows, err := r.db.QueryContext(ctx,
		`SELECT m.id, m.org_id, m.user_id, m.invited_email, m.invited_name, m.role, m.created_at,
		        o.id, o.name, o.created_at, o.updated_at
		 FROM memberships m
		 JOIN organizations o ON o.id = m.org_id
		 WHERE m.user_id = ANY($1)
		 ORDER BY m.created_at, m.id`, ids)
	if err != nil {
		return nil, err
	}
	defer mrows.Close()
	for mrows.Next() {
		mo, err := scanMembershipWithOrg(mrows)
		if err != nil {
			return nil, err
		}
		if u, ok := byUser[mo.UserID]; ok {
			u.Memberships = append(u.Memberships, mo)
		}
	}
	return users, mrows.Err()
}

// SetEmailVerified stamps email_verified with the current time if not already set.
func (r *PostgresRepository) SetEmailVerified(ctx context.Context, id string) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		"UPDATE users SET email_verified = $2, updated_at = $2 WHERE id = $1 AND email_verified IS NULL",
		id, now)
	return err
}

// Delete removes the user. Memberships cascade at the database level.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row *sql.Row) (*domain.User, error) {
	u, err := scanUserRows(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func scanUserRows(row rowScanner) (*domain.User, error) {
	var (
		u        domain.User
		name     sql.NullString
		role     string
		verified sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Email, &name, &role, &verified, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Name = name.String
	u.Role = domain.GlobalRole(role)
	if verified.Valid {
		t := verified.Time
		u.EmailVerified = &t
	}
	return &u, nil
}

func scanMembershipWithOrg(row rowScanner) (*membershipdomain.WithOrg, error) {
	var (
		mo           membershipdomain.WithOrg
		userID       sql.NullString
		invitedEmail sql.NullString
		invitedName  sql.NullString
		role         string
		org          orgdomain.Org
	)
	if err := row.Scan(&mo.ID, &mo.OrgID, &userID, &invitedEmail, &invitedName, &role, &mo.CreatedAt,
		&org.ID, &org.Name, &org.CreatedAt, &org.UpdatedAt); err != nil {
		return nil, err
	}
	mo.UserID = userID.String
	mo.InvitedEmail = invitedEmail.String
	mo.InvitedName = invitedName.String
	mo.Role = membershipdomain.Role(role)
	mo.Organization = org
	return &mo, nil
}
