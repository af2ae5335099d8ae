package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/countries-api-service/internal/model"
	"github.com/countries-api-service/internal/store"
)

const (
	keyByteLen           = 16
	keyPrefixDisplayLen  = 12
	defaultExpiresInDays = 365
	maxExpiresInDays     = 3650

	createKeyAttempts = 3
)

// APIKeyService manages the lifecycle of API keys: generation, bcrypt
// verification, revocation and expiry extension.
type APIKeyService struct {
	store store.Store
	now   func() time.Time
}

// NewAPIKeyService creates a new API key service.
func NewAPIKeyService(s store.Store) *APIKeyService {
	return &APIKeyService{store: s, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *APIKeyService) WithNow(now func() time.Time) *APIKeyService {
	s.now = now
	return s
}

// CreatedKey is the result of key creation. RawKey is shown exactly once;
// only its bcrypt hash is stored.
type CreatedKey struct {
	Key    *model.APIKey
	RawKey string
}

// Create generates a new key for the user. expiresInDays defaults to 365
// when zero and must be between 1 and 3650.
func (s *APIKeyService) Create(ctx context.Context, userID uuid.UUID, name string, expiresInDays int) (*CreatedKey, error) {
	if expiresInDays == 0 {
		expiresInDays = defaultExpiresInDays
	}
	if expiresInDays < 1 || expiresInDays > maxExpiresInDays {
		return nil, NewBadRequest("invalid_request",
			fmt.Sprintf("Expiration days must be between 1 and %d", maxExpiresInDays))
	}

	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NewNotFound("not_found", "User not found")
		}
		log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to load key owner")
		return nil, NewInternal("internal_error", "Failed to create API key")
	}

	expiresAt := s.now().UTC().AddDate(0, 0, expiresInDays)

	// Raw keys are random, so a hash collision is effectively impossible,
	// but the unique constraint on key_hash still gets a few retries.
	for attempt := 0; attempt < createKeyAttempts; attempt++ {
		raw, err := generateRawKey()
		if err != nil {
			log.Error().Err(err).Msg("failed to generate api key")
			return nil, NewInternal("internal_error", "Failed to create API key")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
		if err != nil {
			log.Error().Err(err).Msg("failed to hash api key")
			return nil, NewInternal("internal_error", "Failed to create API key")
		}

		key := &model.APIKey{
			UserID:    userID,
			KeyHash:   string(hash),
			KeyPrefix: raw[:keyPrefixDisplayLen],
			Name:      name,
			IsActive:  true,
			ExpiresAt: &expiresAt,
		}
		err = s.store.CreateAPIKey(ctx, key)
		if errors.Is(err, store.ErrDuplicate) {
			continue
		}
		if err != nil {
			log.Error().Err(err).Msg("failed to store api key")
			return nil, NewInternal("internal_error", "Failed to create API key")
		}
		return &CreatedKey{Key: key, RawKey: raw}, nil
	}
	return nil, NewInternal("internal_error", "Failed to create API key")
}

// Validate resolves a raw key to its record. Candidates are limited to
// active keys; bcrypt comparison walks them until one matches. A revoked
// or unknown key is indistinguishable from the caller's point of view.
func (s *APIKeyService) Validate(ctx context.Context, rawKey string) (*model.APIKey, error) {
	if rawKey == "" {
		return nil, NewUnauthorized("invalid_api_key", "Invalid API key")
	}

	candidates, err := s.store.ListActiveAPIKeys(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list active api keys")
		return nil, NewInternal("internal_error", "Failed to validate API key")
	}

	for _, key := range candidates {
		if bcrypt.CompareHashAndPassword([]byte(key.KeyHash), []byte(rawKey)) != nil {
			continue
		}
		if !key.IsValid(s.now()) {
			return nil, NewUnauthorized("api_key_expired", "API key is expired or inactive")
		}

		now := s.now().UTC()
		if err := s.store.UpdateAPIKeyLastUsed(ctx, key.ID, now); err != nil {
			log.Error().Err(err).Str("key_id", key.ID.String()).Msg("failed to update api key last_used_at")
		} else {
			key.LastUsedAt = &now
		}
		return key, nil
	}
	return nil, NewUnauthorized("invalid_api_key", "Invalid API key")
}

// List returns the user's keys, newest first. Raw key material is never
// recoverable from a listing.
func (s *APIKeyService) List(ctx context.Context, userID uuid.UUID) ([]*model.APIKey, error) {
	keys, err := s.store.ListAPIKeysByUser(ctx, userID)
	if err != nil {
		log.Error().Err(err).Msg("failed to list api keys")
		return nil, NewInternal("internal_error", "Failed to list API keys")
	}
	return keys, nil
}

// Revoke deactivates the key. Revoking an already revoked key succeeds.
func (s *APIKeyService) Revoke(ctx context.Context, userID, keyID uuid.UUID) error {
	key, err := s.getOwnedKey(ctx, userID, keyID)
	if err != nil {
		return err
	}
	if !key.IsActive {
		return nil
	}
	if err := s.store.DeactivateAPIKey(ctx, keyID); err != nil {
		log.Error().Err(err).Str("key_id", keyID.String()).Msg("failed to revoke api key")
		return NewInternal("internal_error", "Failed to revoke API key")
	}
	return nil
}

// Extend adds days to the key's expiry, counting from the current expiry
// when one is set and from now otherwise. Revoked keys stay revoked.
func (s *APIKeyService) Extend(ctx context.Context, userID, keyID uuid.UUID, expiresInDays int) (*model.APIKey, error) {
	if expiresInDays == 0 {
		expiresInDays = defaultExpiresInDays
	}
	if expiresInDays < 1 || expiresInDays > maxExpiresInDays {
		return nil, NewBadRequest("invalid_request",
			fmt.Sprintf("Expiration days must be between 1 and %d", maxExpiresInDays))
	}

	key, err := s.getOwnedKey(ctx, userID, keyID)
	if err != nil {
		return nil, err
	}

	base := s.now().UTC()
	if key.ExpiresAt != nil {
		base = key.ExpiresAt.UTC()
	}
	expiresAt := base.AddDate(0, 0, expiresInDays)
	if err := s.store.SetAPIKeyExpiry(ctx, keyID, &expiresAt); err != nil {
		log.Error().Err(err).Str("key_id", keyID.String()).Msg("failed to extend api key")
		return nil, NewInternal("internal_error", "Failed to extend API key")
	}
	key.ExpiresAt = &expiresAt
	return key, nil
}

// Usage returns the key's usage events, newest first, after an ownership
// check.
func (s *APIKeyService) Usage(ctx context.Context, userID, keyID uuid.UUID, page, perPage int) ([]*model.UsageEvent, int, error) {
	if _, err := s.getOwnedKey(ctx, userID, keyID); err != nil {
		return nil, 0, err
	}
	events, total, err := s.store.ListUsageEventsByKey(ctx, keyID, page, perPage)
	if err != nil {
		log.Error().Err(err).Str("key_id", keyID.String()).Msg("failed to list usage events")
		return nil, 0, NewInternal("internal_error", "Failed to list usage")
	}
	return events, total, nil
}

func (s *APIKeyService) getOwnedKey(ctx context.Context, userID, keyID uuid.UUID) (*model.APIKey, error) {
	key, err := s.store.GetAPIKeyByID(ctx, keyID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NewNotFound("not_found", "API key not found")
		}
		log.Error().Err(err).Str("key_id", keyID.String()).Msg("failed to load api key")
		return nil, NewInternal("internal_error", "Failed to load API key")
	}
	if key.UserID != userID {
		return nil, NewForbidden("forbidden", "API key belongs to another user")
	}
	return key, nil
}

// generateRawKey returns a fresh key of the form "ck_" + 32 hex chars.
func generateRawKey() (string, error) {
	buf := make([]byte, keyByteLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "ck_" + hex.EncodeToString(buf), nil
}
