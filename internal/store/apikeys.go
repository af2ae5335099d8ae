package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/countries-api-service/internal/model"
)

func (p *Postgres) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	// name is nullable, pass nil when empty
	var name interface{}
	if key.Name != "" {
		name = key.Name
	}

	err := p.pool.QueryRow(ctx, `
		INSERT INTO api_keys (user_id, key_hash, key_prefix, name, is_active, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, key.UserID, key.KeyHash, key.KeyPrefix, name, key.IsActive, key.ExpiresAt).
		Scan(&key.ID, &key.CreatedAt)
	if err != nil {
		if mapped := mapError(err); mapped == ErrDuplicate {
			return ErrDuplicate
		}
		return fmt.Errorf("insert api_key: %w", err)
	}
	return nil
}

const apiKeyColumns = `id, user_id, key_hash, key_prefix, name, is_active, created_at, expires_at, last_used_at`

func (p *Postgres) GetAPIKeyByID(ctx context.Context, id uuid.UUID) (*model.APIKey, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("query api_key: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ErrNotFound
	}
	return scanAPIKeyFromRow(rows)
}

func (p *Postgres) ListAPIKeysByUser(ctx context.Context, userID uuid.UUID) ([]*model.APIKey, error) {
	return p.listAPIKeys(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (p *Postgres) ListActiveAPIKeys(ctx context.Context) ([]*model.APIKey, error) {
	return p.listAPIKeys(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE is_active ORDER BY created_at DESC`)
}

func (p *Postgres) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := p.pool.Exec(ctx, `UPDATE api_keys SET last_used_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("update api_key last_used_at: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) DeactivateAPIKey(ctx context.Context, id uuid.UUID) error {
	tag, err := p.pool.Exec(ctx, `UPDATE api_keys SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate api_key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) SetAPIKeyExpiry(ctx context.Context, id uuid.UUID, expiresAt *time.Time) error {
	tag, err := p.pool.Exec(ctx, `UPDATE api_keys SET expires_at = $1 WHERE id = $2`, expiresAt, id)
	if err != nil {
		return fmt.Errorf("set api_key expiry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) listAPIKeys(ctx context.Context, query string, args ...interface{}) ([]*model.APIKey, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list api_keys: %w", err)
	}
	defer rows.Close()

	var keys []*model.APIKey
	for rows.Next() {
		key, err := scanAPIKeyFromRow(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func scanAPIKeyFromRow(rows pgx.Rows) (*model.APIKey, error) {
	var key model.APIKey
	var name *string

	err := rows.Scan(
		&key.ID, &key.UserID, &key.KeyHash, &key.KeyPrefix,
		&name, &key.IsActive, &key.CreatedAt, &key.ExpiresAt, &key.LastUsedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan api_key: %w", err)
	}
	if name != nil {
		key.Name = *name
	}
	return &key, nil
}
