// internal/db/users.go
package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ivanrubin10/fulbojubilados/internal/models"
)

const userColumns = `id, email, name, nickname, avatar_url, is_admin, is_whitelisted, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.Nickname,
		&u.AvatarURL,
		&u.IsAdmin,
		&u.IsWhitelisted,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

type CreateUserParams struct {
	ID            string
	Email         string
	Name          string
	AvatarURL     string
	IsAdmin       bool
	IsWhitelisted bool
}

// CreateUser inserts a new user row. First logins are auto-whitelisted by the
// caller setting IsWhitelisted.
func (q *Queries) CreateUser(ctx context.Context, params CreateUserParams) (models.User, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, name, avatar_url, is_admin, is_whitelisted)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING `+userColumns,
		params.ID, params.Email, params.Name, params.AvatarURL, params.IsAdmin, params.IsWhitelisted,
	)
	return scanUser(row)
}

func (q *Queries) GetUserByID(ctx context.Context, id string) (models.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (q *Queries) ListUsers(ctx context.Context) ([]models.User, error) {
	return q.listUsers(ctx, `SELECT `+userColumns+` FROM users ORDER BY name, id`)
}

func (q *Queries) ListWhitelistedUsers(ctx context.Context) ([]models.User, error) {
	return q.listUsers(ctx, `SELECT `+userColumns+` FROM users WHERE is_whitelisted = 1 ORDER BY name, id`)
}

// ListActiveUsers returns whitelisted non-admin users, the population that
// votes and is expected at games.
func (q *Queries) ListActiveUsers(ctx context.Context) ([]models.User, error) {
	return q.listUsers(ctx, `SELECT `+userColumns+` FROM users WHERE is_whitelisted = 1 AND is_admin = 0 ORDER BY name, id`)
}

func (q *Queries) ListAdmins(ctx context.Context) ([]models.User, error) {
	return q.listUsers(ctx, `SELECT `+userColumns+` FROM users WHERE is_admin = 1 ORDER BY name, id`)
}

func (q *Queries) listUsers(ctx context.Context, query string, args ...any) ([]models.User, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUserProfile refreshes the provider-owned profile fields on login.
func (q *Queries) UpdateUserProfile(ctx context.Context, id, email, name, avatarURL string) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE users
		SET email = ?, name = ?, avatar_url = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		email, name, avatarURL, id,
	)
	return err
}

type UpdateUserFlagsParams struct {
	ID            string
	IsAdmin       bool
	IsWhitelisted bool
}

func (q *Queries) UpdateUserFlags(ctx context.Context, params UpdateUserFlagsParams) (models.User, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE users
		SET is_admin = ?, is_whitelisted = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
		RETURNING `+userColumns,
		params.IsAdmin, params.IsWhitelisted, params.ID,
	)
	return scanUser(row)
}

func (q *Queries) UpdateUserNickname(ctx context.Context, id, nickname string) (models.User, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE users
		SET nickname = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
		RETURNING `+userColumns,
		nickname, id,
	)
	return scanUser(row)
}

// DeleteUser hard-deletes a user. Only used by admin test cleanup.
func (q *Queries) DeleteUser(ctx context.Context, id string) error {
	result, err := q.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UserEmails resolves the email addresses for the given user IDs, skipping
// unknown IDs.
func (q *Queries) UserEmails(ctx context.Context, ids []string) ([]string, error) {
	emails := make([]string, 0, len(ids))
	for _, id := range ids {
		user, err := q.GetUserByID(ctx, id)
		if err != nil {
			if err == sql.ErrNoRows {
				continue
			}
			return nil, fmt.Errorf("load user %s: %w", id, err)
		}
		if user.Email != "" {
			emails = append(emails, user.Email)
		}
	}
	return emails, nil
}
