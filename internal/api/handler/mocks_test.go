package handler_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/docmark/docmark/internal/store"
	"github.com/docmark/docmark/pkg/models"
)

// mockStore is an in-memory store.Store for handler tests.
type mockStore struct {
	mu      sync.Mutex
	users   map[uuid.UUID]*models.User
	keys    map[uuid.UUID]*models.APIKey
	pingErr error
	failErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		users: make(map[uuid.UUID]*models.User),
		keys:  make(map[uuid.UUID]*models.APIKey),
	}
}

func (m *mockStore) Ping(_ context.Context) error { return m.pingErr }

func (m *mockStore) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	for _, u := range m.users {
		if u.Email == user.Email {
			return store.ErrDuplicateKey
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockStore) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (m *mockStore) ListUsers(_ context.Context) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *mockStore) SetUserStatus(_ context.Context, id uuid.UUID, status models.EntityStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.Status = status
	return nil
}

func (m *mockStore) CreateAPIKey(_ context.Context, key *models.APIKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.keys[key.ID] = key
	return nil
}

func (m *mockStore) GetAPIKeysByPrefix(_ context.Context, prefix string) ([]*models.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.APIKey
	for _, k := range m.keys {
		if k.KeyPrefix == prefix && k.Status == models.StatusActive {
			out = append(out, k)
		}
	}
	return out, nil
}

func (m *mockStore) ListAPIKeys(_ context.Context) ([]*models.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.APIKey, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, k)
	}
	return out, nil
}

func (m *mockStore) SetAPIKeyStatus(_ context.Context, id uuid.UUID, status models.EntityStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.keys[id]
	if !ok {
		return store.ErrNotFound
	}
	k.Status = status
	return nil
}

func (m *mockStore) UpdateAPIKeyLastUsed(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if k, ok := m.keys[id]; ok {
		now := time.Now().UTC()
		k.LastUsedAt = &now
	}
	return nil
}

func (m *mockStore) InsertAuditEvent(_ context.Context, _ *models.AuditEvent) error { return nil }

// mockCache records deletes so eviction can be asserted.
type mockCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deleted []string
	pingErr error
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte)}
}

func (m *mockCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mockCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *mockCache) Ping(_ context.Context) error { return m.pingErr }
func (m *mockCache) Close() error                 { return nil }

// mockRecorder captures audit events for assertions.
type mockRecorder struct {
	mu     sync.Mutex
	events []models.AuditEvent
}

func (m *mockRecorder) Record(event models.AuditEvent) {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
}

func (m *mockRecorder) all() []models.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.AuditEvent(nil), m.events...)
}

func (m *mockRecorder) byAction(action models.AuditAction) []models.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AuditEvent
	for _, e := range m.events {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

func decodeJSON(w *httptest.ResponseRecorder, v any) error {
	return json.Unmarshal(w.Body.Bytes(), v)
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	data, ok := body["data"].(map[string]any)
	require.True(t, ok, "response has no data object: %s", w.Body.String())
	return data
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok, "response has no error object: %s", w.Body.String())
	return errObj
}
