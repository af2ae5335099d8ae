package model

import (
	"time"

	"github.com/google/uuid"
)

// UsageEvent is the audit record of one authenticated API-key request.
// The status code is written optimistically at authentication time and
// patched once with the handler's final status.
type UsageEvent struct {
	ID             uuid.UUID `json:"id"`
	APIKeyID       uuid.UUID `json:"api_key_id"`
	Endpoint       string    `json:"endpoint"`
	Method         string    `json:"method"`
	StatusCode     int       `json:"status_code"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	IPAddress      string    `json:"ip_address,omitempty"`
	UserAgent      string    `json:"user_agent,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
