package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	admininvitedomain "tenant-admin-plane/internal/admininvite/domain"
	"tenant-admin-plane/internal/db"
	"tenant-admin-plane/internal/identity/domain"
	membershipdomain "tenant-admin-plane/internal/membership/domain"
	userdomain "tenant-admin-plane/internal/user/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an identity repository that uses the given db for persistence.
func NewPostgresRepository(database *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: database}
}

// LookupInvitations reads pending memberships and the admin invitation for email
// inside one read-only repeatable-read transaction, so the reconciler acts on a
// consistent view of both.
func (r *PostgresRepository) LookupInvitations(ctx context.Context, email string) ([]*membershipdomain.Membership, *admininvitedomain.AdminInvitation, error) {
	var (
		memberships []*membershipdomain.Membership
		invite      *admininvitedomain.AdminInvitation
	)
	err := db.InTx(ctx, r.db, true, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT id, org_id, user_id, invited_email, invited_name, role, created_at
			 FROM memberships WHERE invited_email = $1 ORDER BY created_at, id`, email)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				m            membershipdomain.Membership
				userID       sql.NullString
				invitedEmail sql.NullString
				invitedName  sql.NullString
				role         string
			)
			if err := rows.Scan(&m.ID, &m.OrgID, &userID, &invitedEmail, &invitedName, &role, &m.CreatedAt); err != nil {
				return err
			}
			m.UserID = userID.String
			m.InvitedEmail = invitedEmail.String
			m.InvitedName = invitedName.String
			m.Role = membershipdomain.Role(role)
			memberships = append(memberships, &m)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		var a admininvitedomain.AdminInvitation
		err = tx.QueryRowContext(ctx,
			`SELECT id, invited_email, created_at FROM admin_invitations
			 WHERE invited_email = $1 ORDER BY created_at, id LIMIT 1`, email).
			Scan(&a.ID, &a.InvitedEmail, &a.CreatedAt)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}
		invite = &a
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return memberships, invite, nil
}

// PromoteToSuperadmin upgrades the user and deletes the consumed invitation atomically.
// Both statements are conditioned so a concurrent or repeated run is a no-op.
func (r *PostgresRepository) PromoteToSuperadmin(ctx context.Context, userID, invitationID string) error {
	now := time.Now().UTC()
	return db.InTx(ctx, r.db, false, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"UPDATE users SET role = $2, updated_at = $3 WHERE id = $1 AND role <> $2",
			userID, string(userdomain.GlobalRoleSuperadmin), now); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM admin_invitations WHERE id = $1", invitationID)
		return err
	})
}

// BindMemberships claims all given pending memberships for the user atomically.
// Already-bound rows are skipped rather than overwritten.
func (r *PostgresRepository) BindMemberships(ctx context.Context, userID string, membershipIDs []string) error {
	if len(membershipIDs) == 0 {
		return nil
	}
	return db.InTx(ctx, r.db, false, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE memberships SET user_id = $1, invited_email = NULL, invited_name = NULL
			 WHERE id = ANY($2) AND user_id IS NULL`, userID, membershipIDs)
		return err
	})
}

// CreateVerificationToken stores the token digest for an email sign-in attempt.
func (r *PostgresRepository) CreateVerificationToken(ctx context.Context, t *domain.VerificationToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO verification_tokens (identifier, token_hash, expires_at, created_at)
		 VALUES ($1, $2, $3, $4)`,
		t.Identifier, t.TokenHash, t.ExpiresAt, t.CreatedAt)
	return err
}

// ConsumeVerificationToken deletes and returns the matching token, or nil when
// absent. Delete-and-return makes each token single-use even under concurrent
// callback requests.
func (r *PostgresRepository) ConsumeVerificationToken(ctx context.Context, identifier, tokenHash string) (*domain.VerificationToken, error) {
	var t domain.VerificationToken
	err := r.db.QueryRowContext(ctx,
		`DELETE FROM verification_tokens WHERE identifier = $1 AND token_hash = $2
		 RETURNING identifier, token_hash, expires_at, created_at`, identifier, tokenHash).
		Scan(&t.Identifier, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// DeleteExpiredVerificationTokens removes tokens whose expiry is before now.
func (r *PostgresRepository) DeleteExpiredVerificationTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM verification_tokens WHERE expires_at < $1", now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
