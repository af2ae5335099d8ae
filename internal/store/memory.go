package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/countries-api-service/internal/model"
)

// Memory is an in-memory Store with the same uniqueness semantics as the
// Postgres implementation. It backs unit tests and local development.
type Memory struct {
	mu     sync.RWMutex
	users  map[uuid.UUID]*model.User
	keys   map[uuid.UUID]*model.APIKey
	events map[uuid.UUID]*model.UsageEvent
}

func NewMemory() *Memory {
	return &Memory{
		users:  make(map[uuid.UUID]*model.User),
		keys:   make(map[uuid.UUID]*model.APIKey),
		events: make(map[uuid.UUID]*model.UsageEvent),
	}
}

// Ping always succeeds; the memory store has no backing connection.
func (m *Memory) Ping(_ context.Context) error {
	return nil
}

func (m *Memory) CreateUser(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == user.Username || u.Email == user.Email {
			return ErrDuplicate
		}
	}

	user.ID = uuid.New()
	user.CreatedAt = time.Now().UTC()
	m.users[user.ID] = copyUser(user)
	return nil
}

func (m *Memory) GetUserByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

func (m *Memory) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	return m.findUser(func(u *model.User) bool { return u.Username == username })
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	return m.findUser(func(u *model.User) bool { return u.Email == email })
}

func (m *Memory) GetUserByUsernameOrEmail(_ context.Context, identifier string) (*model.User, error) {
	return m.findUser(func(u *model.User) bool {
		return u.Username == identifier || u.Email == identifier
	})
}

func (m *Memory) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	t := at
	u.LastLogin = &t
	return nil
}

func (m *Memory) CreateAPIKey(_ context.Context, key *model.APIKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range m.keys {
		if k.KeyHash == key.KeyHash {
			return ErrDuplicate
		}
	}

	key.ID = uuid.New()
	key.CreatedAt = time.Now().UTC()
	m.keys[key.ID] = copyAPIKey(key)
	return nil
}

func (m *Memory) GetAPIKeyByID(_ context.Context, id uuid.UUID) (*model.APIKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	k, ok := m.keys[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyAPIKey(k), nil
}

func (m *Memory) ListAPIKeysByUser(_ context.Context, userID uuid.UUID) ([]*model.APIKey, error) {
	return m.listKeys(func(k *model.APIKey) bool { return k.UserID == userID })
}

func (m *Memory) ListActiveAPIKeys(_ context.Context) ([]*model.APIKey, error) {
	return m.listKeys(func(k *model.APIKey) bool { return k.IsActive })
}

func (m *Memory) UpdateAPIKeyLastUsed(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, ok := m.keys[id]
	if !ok {
		return ErrNotFound
	}
	t := at
	k.LastUsedAt = &t
	return nil
}

func (m *Memory) DeactivateAPIKey(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, ok := m.keys[id]
	if !ok {
		return ErrNotFound
	}
	k.IsActive = false
	return nil
}

func (m *Memory) SetAPIKeyExpiry(_ context.Context, id uuid.UUID, expiresAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, ok := m.keys[id]
	if !ok {
		return ErrNotFound
	}
	if expiresAt == nil {
		k.ExpiresAt = nil
	} else {
		t := *expiresAt
		k.ExpiresAt = &t
	}
	return nil
}

func (m *Memory) CreateUsageEvent(_ context.Context, event *model.UsageEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	event.ID = uuid.New()
	event.CreatedAt = time.Now().UTC()
	ev := *event
	m.events[event.ID] = &ev
	return nil
}

func (m *Memory) UpdateUsageEventStatus(_ context.Context, id uuid.UUID, statusCode int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ev, ok := m.events[id]
	if !ok {
		return ErrNotFound
	}
	ev.StatusCode = statusCode
	return nil
}

func (m *Memory) ListUsageEventsByKey(_ context.Context, apiKeyID uuid.UUID, page, perPage int) ([]*model.UsageEvent, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var events []*model.UsageEvent
	for _, ev := range m.events {
		if ev.APIKeyID == apiKeyID {
			e := *ev
			events = append(events, &e)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].CreatedAt.After(events[j].CreatedAt) })

	total := len(events)
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return events[start:end], total, nil
}

func (m *Memory) findUser(match func(*model.User) bool) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if match(u) {
			return copyUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) listKeys(match func(*model.APIKey) bool) ([]*model.APIKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []*model.APIKey
	for _, k := range m.keys {
		if match(k) {
			keys = append(keys, copyAPIKey(k))
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].CreatedAt.After(keys[j].CreatedAt) })
	return keys, nil
}

func copyUser(u *model.User) *model.User {
	c := *u
	if u.LastLogin != nil {
		t := *u.LastLogin
		c.LastLogin = &t
	}
	return &c
}

func copyAPIKey(k *model.APIKey) *model.APIKey {
	c := *k
	if k.ExpiresAt != nil {
		t := *k.ExpiresAt
		c.ExpiresAt = &t
	}
	if k.LastUsedAt != nil {
		t := *k.LastUsedAt
		c.LastUsedAt = &t
	}
	return &c
}
