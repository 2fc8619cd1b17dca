package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type memoryStore struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.data[key] = value.(string)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	return true, m.Set(ctx, key, value, ttl)
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "test:idem:" + scope + ":" + id
}

func orderRequest(body, key, userID string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req.WithContext(WithUserID(req.Context(), userID))
}

type countingHandler struct {
	calls  int
	status func(call int) int
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.calls++
	status := http.StatusCreated
	if h.status != nil {
		status = h.status(h.calls)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"data":{"order_number":"ORD-1"}}`))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env responses.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error.Code
}

func TestIdempotentRequiresKeyWhenPolicySaysSo(t *testing.T) {
	h := &countingHandler{}
	rec := httptest.NewRecorder()
	Idempotent(newMemoryStore(), MoneyReplay.MustHaveKey(), nil)(h).ServeHTTP(rec, orderRequest(`{}`, "", "u1"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, h.calls)
}

func TestIdempotentOptionalKeyPassesThrough(t *testing.T) {
	h := &countingHandler{}
	mw := Idempotent(newMemoryStore(), ShortReplay, nil)(h)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, orderRequest(`{}`, "", "u1"))
		assert.Equal(t, http.StatusCreated, rec.Code)
	}
	assert.Equal(t, 2, h.calls)
}

func TestIdempotentReplaysCompletedResponse(t *testing.T) {
	store := newMemoryStore()
	h := &countingHandler{}
	mw := Idempotent(store, MoneyReplay, nil)(h)

	first := httptest.NewRecorder()
	mw.ServeHTTP(first, orderRequest(`{"address_id":"a"}`, "k1", "u1"))
	require.Equal(t, http.StatusCreated, first.Code)

	replay := httptest.NewRecorder()
	mw.ServeHTTP(replay, orderRequest(`{"address_id":"a"}`, "k1", "u1"))

	assert.Equal(t, 1, h.calls)
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "application/json", replay.Header().Get("Content-Type"))
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, first.Body.String(), replay.Body.String())

	key := store.IdempotencyKey("u1|POST|/api/v1/orders", "k1")
	assert.Equal(t, MoneyReplay.TTL, store.ttls[key])
}

func TestIdempotentRejectsDifferentBody(t *testing.T) {
	h := &countingHandler{}
	mw := Idempotent(newMemoryStore(), MoneyReplay, nil)(h)
	mw.ServeHTTP(httptest.NewRecorder(), orderRequest(`{"address_id":"a"}`, "k1", "u1"))

	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, orderRequest(`{"address_id":"b"}`, "k1", "u1"))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeIdempotency), errorCode(t, rec))
	assert.Equal(t, 1, h.calls)
}

func TestIdempotentRejectsDuplicateInFlight(t *testing.T) {
	store := newMemoryStore()
	var inner *httptest.ResponseRecorder
	var mw http.Handler
	outer := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// the same key arrives again before the first request finishes
		inner = httptest.NewRecorder()
		mw.ServeHTTP(inner, orderRequest(`{"address_id":"a"}`, "k1", "u1"))
		w.WriteHeader(http.StatusCreated)
	})
	mw = Idempotent(store, MoneyReplay, nil)(outer)

	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, orderRequest(`{"address_id":"a"}`, "k1", "u1"))

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, inner)
	assert.Equal(t, http.StatusConflict, inner.Code)
	assert.Equal(t, string(pkgerrors.CodeConflict), errorCode(t, inner))
}

func TestIdempotentScopesKeysPerUser(t *testing.T) {
	h := &countingHandler{}
	mw := Idempotent(newMemoryStore(), MoneyReplay, nil)(h)
	mw.ServeHTTP(httptest.NewRecorder(), orderRequest(`{}`, "same", "u1"))
	mw.ServeHTTP(httptest.NewRecorder(), orderRequest(`{}`, "same", "u2"))
	assert.Equal(t, 2, h.calls)
}

func TestIdempotentReleasesKeyOnServerError(t *testing.T) {
	store := newMemoryStore()
	h := &countingHandler{status: func(call int) int {
		if call == 1 {
			return http.StatusServiceUnavailable
		}
		return http.StatusCreated
	}}
	mw := Idempotent(store, MoneyReplay, nil)(h)

	mw.ServeHTTP(httptest.NewRecorder(), orderRequest(`{}`, "retry", "u1"))
	assert.Empty(t, store.data)

	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, orderRequest(`{}`, "retry", "u1"))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 2, h.calls)
}

func TestIdempotentKeepsClientErrors(t *testing.T) {
	h := &countingHandler{status: func(int) int { return http.StatusUnprocessableEntity }}
	mw := Idempotent(newMemoryStore(), MoneyReplay, nil)(h)

	mw.ServeHTTP(httptest.NewRecorder(), orderRequest(`{}`, "k", "u1"))
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, orderRequest(`{}`, "k", "u1"))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, 1, h.calls)
}

func TestIdempotentRejectsOversizedKey(t *testing.T) {
	h := &countingHandler{}
	rec := httptest.NewRecorder()
	Idempotent(newMemoryStore(), ShortReplay, nil)(h).ServeHTTP(rec, orderRequest(`{}`, strings.Repeat("k", 300), "u1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, h.calls)
}

func TestIdempotentNilStoreIsPassThrough(t *testing.T) {
	h := &countingHandler{}
	rec := httptest.NewRecorder()
	Idempotent(nil, MoneyReplay.MustHaveKey(), nil)(h).ServeHTTP(rec, orderRequest(`{}`, "", "u1"))
	assert.Equal(t, http.StatusCreated, rec.Code)
}
