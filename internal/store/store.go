package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/countries-api-service/internal/model"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// UserStore defines operations for user account management.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByUsernameOrEmail(ctx context.Context, identifier string) (*model.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// APIKeyStore defines operations for API key management.
type APIKeyStore interface {
	CreateAPIKey(ctx context.Context, key *model.APIKey) error
	GetAPIKeyByID(ctx context.Context, id uuid.UUID) (*model.APIKey, error)
	ListAPIKeysByUser(ctx context.Context, userID uuid.UUID) ([]*model.APIKey, error)
	ListActiveAPIKeys(ctx context.Context) ([]*model.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error
	DeactivateAPIKey(ctx context.Context, id uuid.UUID) error
	SetAPIKeyExpiry(ctx context.Context, id uuid.UUID, expiresAt *time.Time) error
}

// UsageStore defines operations for usage event accounting.
type UsageStore interface {
	CreateUsageEvent(ctx context.Context, event *model.UsageEvent) error
	UpdateUsageEventStatus(ctx context.Context, id uuid.UUID, statusCode int) error
	ListUsageEventsByKey(ctx context.Context, apiKeyID uuid.UUID, page, perPage int) ([]*model.UsageEvent, int, error)
}

// Store combines all stores.
type Store interface {
	UserStore
	APIKeyStore
	UsageStore
}
