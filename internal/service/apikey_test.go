package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/countries-api-service/internal/model"
	"github.com/countries-api-service/internal/store"
)

func newTestAPIKeyService() (*APIKeyService, *store.Memory) {
	mem := store.NewMemory()
	return NewAPIKeyService(mem), mem
}

func seedUser(t *testing.T, mem *store.Memory, username string) uuid.UUID {
	t.Helper()
	user := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$2a$10$fakefakefakefakefakefa",
	}
	if err := mem.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser() error: %v", err)
	}
	return user.ID
}

func TestCreateAPIKey(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the raw key once", func(t *testing.T) {
		svc, mem := newTestAPIKeyService()
		userID := seedUser(t, mem, "alice")

		created, err := svc.Create(ctx, userID, "ci", 30)
		if err != nil {
			t.Fatalf("Create() error: %v", err)
		}
		if !strings.HasPrefix(created.RawKey, "ck_") {
			t.Errorf("raw key = %q, want ck_ prefix", created.RawKey)
		}
		if len(created.RawKey) != 3+2*keyByteLen {
			t.Errorf("raw key length = %d, want %d", len(created.RawKey), 3+2*keyByteLen)
		}
		if created.Key.KeyHash == created.RawKey {
			t.Error("key stored in plaintext")
		}
		if created.Key.KeyPrefix != created.RawKey[:keyPrefixDisplayLen] {
			t.Errorf("prefix = %q, want %q", created.Key.KeyPrefix, created.RawKey[:keyPrefixDisplayLen])
		}
		if !created.Key.IsActive {
			t.Error("new key should be active")
		}
	})

	t.Run("defaults expiry to a year", func(t *testing.T) {
		svc, mem := newTestAPIKeyService()
		userID := seedUser(t, mem, "alice")
		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		svc.WithNow(func() time.Time { return now })

		created, err := svc.Create(ctx, userID, "", 0)
		if err != nil {
			t.Fatalf("Create() error: %v", err)
		}
		want := now.AddDate(0, 0, defaultExpiresInDays)
		if created.Key.ExpiresAt == nil || !created.Key.ExpiresAt.Equal(want) {
			t.Errorf("expires at = %v, want %v", created.Key.ExpiresAt, want)
		}
	})

	t.Run("bounds expiry", func(t *testing.T) {
		svc, mem := newTestAPIKeyService()
		userID := seedUser(t, mem, "alice")

		if _, err := svc.Create(ctx, userID, "", 3651); err == nil {
			t.Error("expected error for 3651 days")
		}
		if _, err := svc.Create(ctx, userID, "", -1); err == nil {
			t.Error("expected error for negative days")
		}
		if _, err := svc.Create(ctx, userID, "", 3650); err != nil {
			t.Errorf("Create(3650 days) error: %v", err)
		}
	})

	t.Run("unknown account", func(t *testing.T) {
		svc, mem := newTestAPIKeyService()

		_, err := svc.Create(ctx, uuid.New(), "orphan", 30)
		assertServiceError(t, err, ErrNotFound, "User not found")

		keys, listErr := mem.ListActiveAPIKeys(ctx)
		if listErr != nil {
			t.Fatalf("ListActiveAPIKeys() error: %v", listErr)
		}
		if len(keys) != 0 {
			t.Errorf("len(keys) = %d, want no key for a nonexistent account", len(keys))
		}
	})
}

func TestValidateAPIKey(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves a valid key", func(t *testing.T) {
		svc, mem := newTestAPIKeyService()
		userID := seedUser(t, mem, "alice")
		created := mustCreateKey(t, svc, userID, 30)

		key, err := svc.Validate(ctx, created.RawKey)
		if err != nil {
			t.Fatalf("Validate() error: %v", err)
		}
		if key.ID != created.Key.ID {
			t.Errorf("resolved key id = %s, want %s", key.ID, created.Key.ID)
		}
		if key.LastUsedAt == nil {
			t.Error("expected last used to be recorded")
		}
	})

	t.Run("picks the right key among several", func(t *testing.T) {
		svc, mem := newTestAPIKeyService()
		first := mustCreateKey(t, svc, seedUser(t, mem, "alice"), 30)
		second := mustCreateKey(t, svc, seedUser(t, mem, "bob"), 30)

		key, err := svc.Validate(ctx, second.RawKey)
		if err != nil {
			t.Fatalf("Validate() error: %v", err)
		}
		if key.ID != second.Key.ID {
			t.Errorf("resolved key id = %s, want %s", key.ID, second.Key.ID)
		}
		if key.ID == first.Key.ID {
			t.Error("resolved the wrong key")
		}
	})

	t.Run("rejects an unknown key", func(t *testing.T) {
		svc, mem := newTestAPIKeyService()
		mustCreateKey(t, svc, seedUser(t, mem, "alice"), 30)

		_, err := svc.Validate(ctx, "ck_00000000000000000000000000000000")
		assertServiceError(t, err, ErrUnauthorized, "Invalid API key")
	})

	t.Run("rejects an empty key", func(t *testing.T) {
		svc, _ := newTestAPIKeyService()

		_, err := svc.Validate(ctx, "")
		assertServiceError(t, err, ErrUnauthorized, "Invalid API key")
	})

	t.Run("revoked key reads as unknown", func(t *testing.T) {
		svc, mem := newTestAPIKeyService()
		userID := seedUser(t, mem, "alice")
		created := mustCreateKey(t, svc, userID, 30)

		if err := svc.Revoke(ctx, userID, created.Key.ID); err != nil {
			t.Fatalf("Revoke() error: %v", err)
		}
		_, err := svc.Validate(ctx, created.RawKey)
		assertServiceError(t, err, ErrUnauthorized, "Invalid API key")
	})

	t.Run("expired key is rejected", func(t *testing.T) {
		svc, mem := newTestAPIKeyService()
		userID := seedUser(t, mem, "alice")
		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		svc.WithNow(func() time.Time { return now })

		created := mustCreateKey(t, svc, userID, 1)

		svc.WithNow(func() time.Time { return now.AddDate(0, 0, 2) })
		_, err := svc.Validate(ctx, created.RawKey)
		assertServiceError(t, err, ErrUnauthorized, "API key is expired or inactive")
	})
}

func TestRevokeAPIKey(t *testing.T) {
	ctx := context.Background()

	t.Run("is idempotent", func(t *testing.T) {
		svc, mem := newTestAPIKeyService()
		userID := seedUser(t, mem, "alice")
		created := mustCreateKey(t, svc, userID, 30)

		if err := svc.Revoke(ctx, userID, created.Key.ID); err != nil {
			t.Fatalf("first Revoke() error: %v", err)
		}
		if err := svc.Revoke(ctx, userID, created.Key.ID); err != nil {
			t.Fatalf("second Revoke() error: %v", err)
		}

		key, err := mem.GetAPIKeyByID(ctx, created.Key.ID)
		if err != nil {
			t.Fatalf("GetAPIKeyByID() error: %v", err)
		}
		if key.IsActive {
			t.Error("key should be inactive after revoke")
		}
	})

	t.Run("rejects another user's key", func(t *testing.T) {
		svc, mem := newTestAPIKeyService()
		created := mustCreateKey(t, svc, seedUser(t, mem, "alice"), 30)

		err := svc.Revoke(ctx, uuid.New(), created.Key.ID)
		assertServiceError(t, err, ErrForbidden, "")
	})

	t.Run("unknown key", func(t *testing.T) {
		svc, mem := newTestAPIKeyService()
		userID := seedUser(t, mem, "alice")

		err := svc.Revoke(ctx, userID, uuid.New())
		assertServiceError(t, err, ErrNotFound, "")
	})
}

func TestExtendAPIKey(t *testing.T) {
	ctx := context.Background()

	t.Run("adds days to the current expiry", func(t *testing.T) {
		svc, mem := newTestAPIKeyService()
		userID := seedUser(t, mem, "alice")
		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		svc.WithNow(func() time.Time { return now })

		created := mustCreateKey(t, svc, userID, 1)

		key, err := svc.Extend(ctx, userID, created.Key.ID, 90)
		if err != nil {
			t.Fatalf("Extend() error: %v", err)
		}
		want := now.AddDate(0, 0, 1).AddDate(0, 0, 90)
		if key.ExpiresAt == nil || !key.ExpiresAt.Equal(want) {
			t.Errorf("expires at = %v, want %v", key.ExpiresAt, want)
		}
	})

	t.Run("bounds expiry", func(t *testing.T) {
		svc, mem := newTestAPIKeyService()
		userID := seedUser(t, mem, "alice")
		created := mustCreateKey(t, svc, userID, 30)

		_, err := svc.Extend(ctx, userID, created.Key.ID, 3651)
		assertServiceError(t, err, ErrBadRequest, "")
	})

	t.Run("rejects another user's key", func(t *testing.T) {
		svc, mem := newTestAPIKeyService()
		created := mustCreateKey(t, svc, seedUser(t, mem, "alice"), 30)

		_, err := svc.Extend(ctx, uuid.New(), created.Key.ID, 90)
		assertServiceError(t, err, ErrForbidden, "")
	})
}

func TestListAPIKeys(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestAPIKeyService()
	userID := seedUser(t, mem, "alice")
	otherID := seedUser(t, mem, "bob")

	mustCreateKey(t, svc, userID, 30)
	mustCreateKey(t, svc, userID, 30)
	mustCreateKey(t, svc, otherID, 30)

	keys, err := svc.List(ctx, userID)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("len(keys) = %d, want 2", len(keys))
	}
}

func TestKeyUsage(t *testing.T) {
	ctx := context.Background()

	t.Run("returns events for an owned key", func(t *testing.T) {
		svc, mem := newTestAPIKeyService()
		userID := seedUser(t, mem, "alice")
		created := mustCreateKey(t, svc, userID, 30)

		for i := 0; i < 3; i++ {
			ev := &model.UsageEvent{
				APIKeyID:   created.Key.ID,
				Endpoint:   "/api/countries",
				Method:     "GET",
				StatusCode: 200,
			}
			if err := mem.CreateUsageEvent(ctx, ev); err != nil {
				t.Fatalf("CreateUsageEvent() error: %v", err)
			}
		}

		events, total, err := svc.Usage(ctx, userID, created.Key.ID, 1, 20)
		if err != nil {
			t.Fatalf("Usage() error: %v", err)
		}
		if total != 3 || len(events) != 3 {
			t.Errorf("total = %d, len(events) = %d, want 3 and 3", total, len(events))
		}
	})

	t.Run("rejects another user's key", func(t *testing.T) {
		svc, mem := newTestAPIKeyService()
		created := mustCreateKey(t, svc, seedUser(t, mem, "alice"), 30)

		_, _, err := svc.Usage(ctx, uuid.New(), created.Key.ID, 1, 20)
		assertServiceError(t, err, ErrForbidden, "")
	})
}

func mustCreateKey(t *testing.T, svc *APIKeyService, userID uuid.UUID, days int) *CreatedKey {
	t.Helper()
	created, err := svc.Create(context.Background(), userID, "test", days)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	return created
}
