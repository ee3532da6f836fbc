package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitalpages/server/internal/domain/users"
)

type UserRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

const userColumns = `id, name, email, password_hash, role, active,
       two_factor_enabled, two_factor_secret, backup_code_hashes,
       last_login_at, created_at, updated_at`

func (r *UserRepository) CreateUser(ctx context.Context, user users.User) (users.User, error) {
	q := pick(r.pool, r.tx)
	_, err := q.Exec(ctx, `
INSERT INTO admin_users (id, name, email, password_hash, role, active,
                         two_factor_enabled, two_factor_secret, backup_code_hashes,
                         created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`, user.ID, user.Name, user.Email, user.PasswordHash, user.Role, user.Active,
		user.TwoFactorEnabled, user.TwoFactorSecret, user.BackupCodeHashes,
		user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return users.User{}, users.ErrEmailTaken
		}
		return users.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetUser(ctx context.Context, id string) (users.User, error) {
	q := pick(r.pool, r.tx)
	row := q.QueryRow(ctx, `SELECT `+userColumns+` FROM admin_users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (users.User, error) {
	q := pick(r.pool, r.tx)
	row := q.QueryRow(ctx, `SELECT `+userColumns+` FROM admin_users WHERE lower(email) = lower($1)`, email)
	return scanUser(row)
}

func (r *UserRepository) UpdateUser(ctx context.Context, user users.User) error {
	q := pick(r.pool, r.tx)
	var lastLogin *time.Time
	if !user.LastLoginAt.IsZero() {
		lastLogin = &user.LastLoginAt
	}
	tag, err := q.Exec(ctx, `
UPDATE admin_users
   SET name = $2,
       email = $3,
       password_hash = $4,
       role = $5,
       active = $6,
       two_factor_enabled = $7,
       two_factor_secret = $8,
       backup_code_hashes = $9,
       last_login_at = $10,
       updated_at = $11
 WHERE id = $1
`, user.ID, user.Name, user.Email, user.PasswordHash, user.Role, user.Active,
		user.TwoFactorEnabled, user.TwoFactorSecret, user.BackupCodeHashes,
		lastLogin, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return users.ErrEmailTaken
		}
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return users.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) DeleteUser(ctx context.Context, id string) error {
	q := pick(r.pool, r.tx)
	tag, err := q.Exec(ctx, `DELETE FROM admin_users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return users.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) ListUsers(ctx context.Context, filters users.ListFilters) ([]users.User, int, error) {
	q := pick(r.pool, r.tx)

	where := ` WHERE 1=1`
	args := []any{}
	if filters.Active != nil {
		args = append(args, *filters.Active)
		where += fmt.Sprintf(" AND active = $%d", len(args))
	}
	if filters.Role != "" {
		args = append(args, filters.Role)
		where += fmt.Sprintf(" AND role = $%d", len(args))
	}

	var total int
	if err := q.QueryRow(ctx, `SELECT count(*) FROM admin_users`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, filters.Offset)
	query := `SELECT ` + userColumns + ` FROM admin_users` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var result []users.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return result, total, nil
}

func (r *UserRepository) CreateInvitation(ctx context.Context, invitation users.Invitation) (users.Invitation, error) {
	q := pick(r.pool, r.tx)
	_, err := q.Exec(ctx, `
INSERT INTO invitations (id, user_id, token_hash, email, expires_at, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, invitation.ID, invitation.UserID, invitation.TokenHash, invitation.Email,
		invitation.ExpiresAt, invitation.CreatedBy, invitation.CreatedAt)
	if err != nil {
		return users.Invitation{}, fmt.Errorf("create invitation: %w", err)
	}
	return invitation, nil
}

func (r *UserRepository) GetInvitationByTokenHash(ctx context.Context, tokenHash string) (users.Invitation, error) {
	q := pick(r.pool, r.tx)
	row := q.QueryRow(ctx, `
SELECT id, user_id, token_hash, email, expires_at, accepted_at, created_by, created_at
  FROM invitations
 WHERE token_hash = $1
`, tokenHash)

	var inv users.Invitation
	var acceptedAt *time.Time
	if err := row.Scan(&inv.ID, &inv.UserID, &inv.TokenHash, &inv.Email,
		&inv.ExpiresAt, &acceptedAt, &inv.CreatedBy, &inv.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return users.Invitation{}, users.ErrInvalidToken
		}
		return users.Invitation{}, fmt.Errorf("get invitation: %w", err)
	}
	if acceptedAt != nil {
		inv.AcceptedAt = *acceptedAt
	}
	return inv, nil
}

func (r *UserRepository) MarkInvitationAccepted(ctx context.Context, id string) error {
	q := pick(r.pool, r.tx)
	tag, err := q.Exec(ctx, `UPDATE invitations SET accepted_at = now() WHERE id = $1 AND accepted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("mark invitation accepted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return users.ErrInvalidToken
	}
	return nil
}

func scanUser(row pgx.Row) (users.User, error) {
	var user users.User
	var lastLogin *time.Time
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.Active,
		&user.TwoFactorEnabled,
		&user.TwoFactorSecret,
		&user.BackupCodeHashes,
		&lastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return users.User{}, users.ErrUserNotFound
		}
		return users.User{}, fmt.Errorf("scan user: %w", err)
	}
	if lastLogin != nil {
		user.LastLoginAt = *lastLogin
	}
	return user, nil
}
