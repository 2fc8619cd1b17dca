package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
	ttl  map[string]time.Duration
	err  error
}

func newMemStore() *memStore {
	return &memStore{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (m *memStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = fmt.Sprint(value)
	m.ttl[key] = ttl
	return nil
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *memStore) GetDel(ctx context.Context, key string) (string, error) {
	val, err := m.Get(ctx, key)
	if err == nil {
		m.mu.Lock()
		delete(m.data, key)
		m.mu.Unlock()
	}
	return val, err
}

func (m *memStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memStore) AccessSessionKey(accessID string) string {
	return "sess:" + accessID
}

func TestGenerateStoresDigestOnly(t *testing.T) {
	store := newMemStore()
	manager := newManager(store, time.Hour)
	userID := uuid.New()

	token, err := manager.Generate(context.Background(), userID, "access-123")
	require.NoError(t, err)

	raw := store.data["sess:access-123"]
	assert.NotContains(t, raw, token)
	var stored entry
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, userID, stored.UserID)
	assert.Equal(t, digest(token), stored.Digest)
	assert.Equal(t, time.Hour, store.ttl["sess:access-123"])
}

func TestRotateIssuesNewSessionOnce(t *testing.T) {
	store := newMemStore()
	manager := newManager(store, time.Hour)
	ctx := context.Background()
	userID := uuid.New()

	token, err := manager.Generate(ctx, userID, "access-1")
	require.NoError(t, err)

	rotation, err := manager.Rotate(ctx, "access-1", token)
	require.NoError(t, err)
	assert.Equal(t, userID, rotation.UserID)
	assert.NotEqual(t, token, rotation.RefreshToken)
	assert.NotContains(t, store.data, "sess:access-1")
	assert.Contains(t, store.data, "sess:"+rotation.AccessID)

	_, err = manager.Rotate(ctx, "access-1", token)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken, "a rotated token must not work twice")

	_, err = manager.Rotate(ctx, rotation.AccessID, rotation.RefreshToken)
	assert.NoError(t, err)
}

func TestRotateWithWrongTokenEndsSession(t *testing.T) {
	store := newMemStore()
	manager := newManager(store, time.Hour)
	ctx := context.Background()

	token, err := manager.Generate(ctx, uuid.New(), "access-1")
	require.NoError(t, err)

	_, err = manager.Rotate(ctx, "access-1", "guess")
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = manager.Rotate(ctx, "access-1", token)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	live, err := manager.HasSession(ctx, "access-1")
	require.NoError(t, err)
	assert.False(t, live)
}

func TestRotateRejectsCorruptEntryAndBlankInput(t *testing.T) {
	store := newMemStore()
	manager := newManager(store, time.Hour)
	ctx := context.Background()

	store.data["sess:access-1"] = "{not json"
	_, err := manager.Rotate(ctx, "access-1", "token")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = manager.Rotate(ctx, " ", "token")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	_, err = manager.Rotate(ctx, "access-1", "")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRotateSurfacesStoreFailures(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("connection reset")
	manager := newManager(store, time.Hour)

	_, err := manager.Rotate(context.Background(), "access-1", "token")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRevokeAndHasSession(t *testing.T) {
	manager := newManager(newMemStore(), time.Hour)
	ctx := context.Background()

	_, err := manager.Generate(ctx, uuid.New(), "access-1")
	require.NoError(t, err)
	live, err := manager.HasSession(ctx, "access-1")
	require.NoError(t, err)
	assert.True(t, live)

	require.NoError(t, manager.Revoke(ctx, "access-1"))
	live, err = manager.HasSession(ctx, "access-1")
	require.NoError(t, err)
	assert.False(t, live)

	assert.Error(t, manager.Revoke(ctx, ""))
}

func TestGenerateRequiresIdentifiers(t *testing.T) {
	manager := newManager(newMemStore(), time.Hour)
	_, err := manager.Generate(context.Background(), uuid.New(), " ")
	assert.Error(t, err)
	_, err = manager.Generate(context.Background(), uuid.Nil, "access")
	assert.Error(t, err)
}

func TestNewManagerRequiresClient(t *testing.T) {
	_, err := NewManager(nil, config.JWTConfig{})
	assert.Error(t, err)
}
