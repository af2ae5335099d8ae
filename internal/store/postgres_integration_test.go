//go:build integration

package store

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/countries-api-service/internal/model"
)

func TestPostgresUserLifecycleIntegration(t *testing.T) {
	ctx := context.Background()
	pg := setupIntegrationStore(t)

	user := &model.User{
		Username:     "integration-user",
		Email:        "integration@example.com",
		PasswordHash: "$2a$10$fakefakefakefakefakefa",
	}
	if err := pg.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.ID == uuid.Nil {
		t.Fatal("expected generated user ID")
	}

	dup := &model.User{
		Username:     "integration-user",
		Email:        "other@example.com",
		PasswordHash: "$2a$10$fakefakefakefakefakefa",
	}
	if err := pg.CreateUser(ctx, dup); err != ErrDuplicate {
		t.Fatalf("expected ErrDuplicate for username, got %v", err)
	}

	byName, err := pg.GetUserByUsernameOrEmail(ctx, "integration-user")
	if err != nil {
		t.Fatalf("get by username: %v", err)
	}
	if byName.ID != user.ID {
		t.Fatalf("unexpected id from username lookup: got %s want %s", byName.ID, user.ID)
	}

	byEmail, err := pg.GetUserByUsernameOrEmail(ctx, "integration@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if byEmail.ID != user.ID {
		t.Fatalf("unexpected id from email lookup: got %s want %s", byEmail.ID, user.ID)
	}

	loginAt := time.Now().UTC().Truncate(time.Millisecond)
	if err := pg.UpdateLastLogin(ctx, user.ID, loginAt); err != nil {
		t.Fatalf("update last login: %v", err)
	}
	updated, err := pg.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("get updated user: %v", err)
	}
	if updated.LastLogin == nil || !updated.LastLogin.Equal(loginAt) {
		t.Fatalf("unexpected last_login: %v", updated.LastLogin)
	}
}

func TestPostgresAPIKeyLifecycleIntegration(t *testing.T) {
	ctx := context.Background()
	pg := setupIntegrationStore(t)

	user := createIntegrationUser(t, pg, "key-owner")

	expires := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Millisecond)
	key := &model.APIKey{
		UserID:    user.ID,
		KeyHash:   fmt.Sprintf("hash-%s", uuid.NewString()),
		KeyPrefix: "ck_abcdef123456...",
		Name:      "integration-key",
		IsActive:  true,
		ExpiresAt: &expires,
	}
	if err := pg.CreateAPIKey(ctx, key); err != nil {
		t.Fatalf("create api key: %v", err)
	}
	if key.ID == uuid.Nil {
		t.Fatal("expected generated API key ID")
	}

	active, err := pg.ListActiveAPIKeys(ctx)
	if err != nil {
		t.Fatalf("list active keys: %v", err)
	}
	if len(active) != 1 || active[0].ID != key.ID {
		t.Fatalf("unexpected active keys: %#v", active)
	}

	usedAt := time.Now().UTC().Truncate(time.Millisecond)
	if err := pg.UpdateAPIKeyLastUsed(ctx, key.ID, usedAt); err != nil {
		t.Fatalf("update last used: %v", err)
	}

	if err := pg.DeactivateAPIKey(ctx, key.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	revoked, err := pg.GetAPIKeyByID(ctx, key.ID)
	if err != nil {
		t.Fatalf("get revoked key: %v", err)
	}
	if revoked.IsActive {
		t.Fatal("expected key to be inactive")
	}
	if revoked.LastUsedAt == nil || !revoked.LastUsedAt.Equal(usedAt) {
		t.Fatalf("unexpected last_used_at: %v", revoked.LastUsedAt)
	}

	active, err = pg.ListActiveAPIKeys(ctx)
	if err != nil {
		t.Fatalf("list active keys after revoke: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected no active keys, got %d", len(active))
	}

	byUser, err := pg.ListAPIKeysByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("list keys by user: %v", err)
	}
	if len(byUser) != 1 {
		t.Fatalf("expected 1 key for user, got %d", len(byUser))
	}
}

func TestPostgresUsageEventsIntegration(t *testing.T) {
	ctx := context.Background()
	pg := setupIntegrationStore(t)

	user := createIntegrationUser(t, pg, "usage-owner")
	key := &model.APIKey{
		UserID:    user.ID,
		KeyHash:   fmt.Sprintf("hash-%s", uuid.NewString()),
		KeyPrefix: "ck_xyz987654321...",
		IsActive:  true,
	}
	if err := pg.CreateAPIKey(ctx, key); err != nil {
		t.Fatalf("create api key: %v", err)
	}

	event := &model.UsageEvent{
		APIKeyID:       key.ID,
		Endpoint:       "/api/v1/countries",
		Method:         http.MethodGet,
		StatusCode:     http.StatusOK,
		ResponseTimeMs: 12,
		IPAddress:      "192.0.2.10",
		UserAgent:      "integration-test/1.0",
	}
	if err := pg.CreateUsageEvent(ctx, event); err != nil {
		t.Fatalf("create usage event: %v", err)
	}
	if event.ID == uuid.Nil {
		t.Fatal("expected generated usage event ID")
	}

	if err := pg.UpdateUsageEventStatus(ctx, event.ID, http.StatusBadGateway); err != nil {
		t.Fatalf("update usage event status: %v", err)
	}

	events, total, err := pg.ListUsageEventsByKey(ctx, key.ID, 1, 20)
	if err != nil {
		t.Fatalf("list usage events: %v", err)
	}
	if total != 1 || len(events) != 1 {
		t.Fatalf("unexpected usage events: total=%d len=%d", total, len(events))
	}
	if events[0].StatusCode != http.StatusBadGateway {
		t.Fatalf("unexpected patched status: %d", events[0].StatusCode)
	}
}

func createIntegrationUser(t *testing.T, pg *Postgres, username string) *model.User {
	t.Helper()
	user := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$2a$10$fakefakefakefakefakefa",
	}
	if err := pg.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func setupIntegrationStore(t *testing.T) *Postgres {
	t.Helper()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}

	migrationsDir := repoMigrationsDir(t)
	m, err := migrate.New("file://"+migrationsDir, databaseURL)
	if err != nil {
		t.Fatalf("init migrate: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("apply migrations: %v", err)
	}
	if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
		t.Fatalf("close migrator: source=%v database=%v", srcErr, dbErr)
	}

	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := pool.Ping(context.Background()); err != nil {
		t.Fatalf("ping pg: %v", err)
	}

	if _, err := pool.Exec(context.Background(), `TRUNCATE TABLE usage_events, api_keys, users RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}

	return NewPostgres(pool)
}

func repoMigrationsDir(t *testing.T) string {
	t.Helper()

	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("failed to resolve test file path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return filepath.Join(root, "migrations")
}
