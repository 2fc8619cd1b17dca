// Package idempotency keeps Pub/Sub consumers from handling a redelivered
// event twice. Markers live in redis under
// sf:idempotency:evt:processed:<consumer>:<event_id>.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrInProgress means another delivery of the same event holds the lease.
var ErrInProgress = errors.New("event is being handled by another delivery")

const (
	markerProcessing = "processing"
	markerDone       = "done"
	// DefaultLease bounds how long a crashed handler blocks redelivery.
	DefaultLease = 5 * time.Minute
)

type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Manager claims an event with a short processing lease, then replaces it
// with a done marker kept for ttl.
type Manager struct {
	store Store
	ttl   time.Duration
	lease time.Duration
}

func NewManager(store Store, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	lease := DefaultLease
	if ttl > 0 && ttl < lease {
		lease = ttl
	}
	return &Manager{store: store, ttl: ttl, lease: lease}, nil
}

// Once runs fn the first time consumer sees eventID and reports whether it
// ran. A failing fn releases the claim so redelivery can retry; a duplicate
// arriving mid-flight gets ErrInProgress.
func (m *Manager) Once(ctx context.Context, consumer string, eventID uuid.UUID, fn func(context.Context) error) (bool, error) {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	claimed, err := m.store.SetNX(ctx, key, markerProcessing, m.lease)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	if !claimed {
		return false, m.existing(ctx, key)
	}

	if err := fn(ctx); err != nil {
		if delErr := m.store.Del(ctx, key); delErr != nil {
			return true, errors.Join(err, fmt.Errorf("release %s: %w", key, delErr))
		}
		return true, err
	}
	if err := m.store.Set(ctx, key, markerDone, m.ttl); err != nil {
		return true, fmt.Errorf("mark %s done: %w", key, err)
	}
	return true, nil
}

// existing is nil when the event is finished and ErrInProgress otherwise.
func (m *Manager) existing(ctx context.Context, key string) error {
	state, err := m.store.Get(ctx, key)
	switch {
	case errors.Is(err, redis.Nil):
		// released between SETNX and GET; the holder failed
		return ErrInProgress
	case err != nil:
		return fmt.Errorf("read %s: %w", key, err)
	case state == markerDone:
		return nil
	}
	return ErrInProgress
}

// Forget drops the marker so the event can be handled again.
func (m *Manager) Forget(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) key(consumer string, eventID uuid.UUID) (string, error) {
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return m.store.IdempotencyKey("evt:processed:"+consumer, eventID.String()), nil
}
