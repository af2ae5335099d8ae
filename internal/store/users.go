package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/countries-api-service/internal/model"
)

func (p *Postgres) CreateUser(ctx context.Context, user *model.User) error {
	err := p.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, is_admin)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, user.Username, user.Email, user.PasswordHash, user.IsAdmin).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if mapped := mapError(err); mapped == ErrDuplicate {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

const userColumns = `id, username, email, password_hash, is_admin, created_at, last_login`

func (p *Postgres) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return p.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (p *Postgres) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return p.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return p.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (p *Postgres) GetUserByUsernameOrEmail(ctx context.Context, identifier string) (*model.User, error) {
	return p.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1 OR email = $1`, identifier)
}

func (p *Postgres) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := p.pool.Exec(ctx, `UPDATE users SET last_login = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("update last_login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) scanUser(ctx context.Context, query string, args ...interface{}) (*model.User, error) {
	var user model.User
	err := p.pool.QueryRow(ctx, query, args...).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.IsAdmin, &user.CreatedAt, &user.LastLogin,
	)
	if err != nil {
		if mapped := mapError(err); mapped == ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}
