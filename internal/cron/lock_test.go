package cron

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLeaseStore struct {
	values map[string]string
	ttls   map[string]time.Duration
	delErr error
}

func newFakeLeaseStore() *fakeLeaseStore {
	return &fakeLeaseStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeLeaseStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value.(string)
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeLeaseStore) DelIfValue(_ context.Context, key, value string) (bool, error) {
	if f.delErr != nil {
		return false, f.delErr
	}
	if f.values[key] != value {
		return false, nil
	}
	delete(f.values, key)
	return true, nil
}

const testLockKey = "sf:lock:cron-worker:test"

func TestRedisLockAcquireRelease(t *testing.T) {
	store := newFakeLeaseStore()
	ctx := context.Background()
	first, err := NewRedisLock(store, testLockKey, 0)
	require.NoError(t, err)
	second, err := NewRedisLock(store, testLockKey, 0)
	require.NoError(t, err)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, defaultLockTTL, store.ttls[testLockKey])
	assert.Contains(t, store.values[testLockKey], "/")

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, second.Release(ctx))
	assert.Contains(t, store.values, testLockKey)

	require.NoError(t, first.Release(ctx))
	assert.NotContains(t, store.values, testLockKey)
}

func TestRedisLockReleaseLeavesForeignHolder(t *testing.T) {
	store := newFakeLeaseStore()
	ctx := context.Background()
	lock, err := NewRedisLock(store, "k", time.Minute)
	require.NoError(t, err)

	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// lease expired and another worker took it
	store.values["k"] = "other-host/abcd1234"
	require.NoError(t, lock.Release(ctx))
	assert.Equal(t, "other-host/abcd1234", store.values["k"])

	// second release is a no-op
	require.NoError(t, lock.Release(ctx))
}

func TestRedisLockReleaseSurfacesStoreError(t *testing.T) {
	store := newFakeLeaseStore()
	store.delErr = errors.New("conn reset")
	lock, err := NewRedisLock(store, "k", time.Minute)
	require.NoError(t, err)
	_, err = lock.Acquire(context.Background())
	require.NoError(t, err)

	err = lock.Release(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "conn reset"))
}

func TestNewRedisLockValidates(t *testing.T) {
	_, err := NewRedisLock(nil, "k", 0)
	assert.Error(t, err)
	_, err = NewRedisLock(newFakeLeaseStore(), "", 0)
	assert.Error(t, err)
}
