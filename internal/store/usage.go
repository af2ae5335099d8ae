package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/countries-api-service/internal/model"
)

func (p *Postgres) CreateUsageEvent(ctx context.Context, event *model.UsageEvent) error {
	err := p.pool.QueryRow(ctx, `
		INSERT INTO usage_events (
			api_key_id, endpoint, method, status_code,
			response_time_ms, ip_address, user_agent
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`,
		event.APIKeyID, event.Endpoint, event.Method, event.StatusCode,
		event.ResponseTimeMs, nullString(event.IPAddress), nullString(event.UserAgent),
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert usage_event: %w", err)
	}
	return nil
}

func (p *Postgres) UpdateUsageEventStatus(ctx context.Context, id uuid.UUID, statusCode int) error {
	tag, err := p.pool.Exec(ctx, `UPDATE usage_events SET status_code = $1 WHERE id = $2`, statusCode, id)
	if err != nil {
		return fmt.Errorf("update usage_event status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) ListUsageEventsByKey(ctx context.Context, apiKeyID uuid.UUID, page, perPage int) ([]*model.UsageEvent, int, error) {
	var total int
	err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM usage_events WHERE api_key_id = $1`, apiKeyID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count usage_events: %w", err)
	}

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	offset := (page - 1) * perPage

	rows, err := p.pool.Query(ctx, `
		SELECT id, api_key_id, endpoint, method, status_code,
		       response_time_ms, ip_address, user_agent, created_at
		FROM usage_events WHERE api_key_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, apiKeyID, perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list usage_events: %w", err)
	}
	defer rows.Close()

	var events []*model.UsageEvent
	for rows.Next() {
		var ev model.UsageEvent
		var ip, ua *string
		err := rows.Scan(
			&ev.ID, &ev.APIKeyID, &ev.Endpoint, &ev.Method, &ev.StatusCode,
			&ev.ResponseTimeMs, &ip, &ua, &ev.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan usage_event: %w", err)
		}
		if ip != nil {
			ev.IPAddress = *ip
		}
		if ua != nil {
			ev.UserAgent = *ua
		}
		events = append(events, &ev)
	}
	return events, total, rows.Err()
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
