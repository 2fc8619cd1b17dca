package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	idempotencyHeader = "Idempotency-Key"
	// inFlightTTL bounds how long a crashed request can block its key.
	inFlightTTL       = time.Minute
	maxKeyLength      = 255
)

var (
	// ShortReplay covers ordinary creates such as signup or add-to-cart.
	ShortReplay = IdempotencyPolicy{TTL: 24 * time.Hour}
	// MoneyReplay covers order placement and payment, where a duplicate costs money.
	MoneyReplay = IdempotencyPolicy{TTL: 7 * 24 * time.Hour}
)

// IdempotencyStore is the redis surface the middleware needs.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

type IdempotencyPolicy struct {
	TTL time.Duration
	// Required rejects requests that omit the header.
	Required bool
}

func (p IdempotencyPolicy) MustHaveKey() IdempotencyPolicy {
	p.Required = true
	return p
}

// storedResponse is kept per (user, method, path, key). A record without a
// Status is a reservation held by a request still running.
type storedResponse struct {
	RequestHash string `json:"request_hash"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Idempotent replays the first completed response for a repeated
// Idempotency-Key. A reused key with a different body is rejected, as is a
// duplicate that arrives while the original is still running. 5xx responses
// release the key so the client can retry.
func Idempotent(store IdempotencyStore, policy IdempotencyPolicy, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			switch {
			case clientKey == "" && policy.Required:
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			case clientKey == "":
				next.ServeHTTP(w, r)
				return
			case len(clientKey) > maxKeyLength:
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key too long"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			key := store.IdempotencyKey(idempotencyScope(r), clientKey)
			hash := requestHash(body)

			reserved, err := reserve(ctx, store, key, hash)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			if !reserved {
				replayOrReject(ctx, store, key, hash, w, logg)
				return
			}

			capture := &bodyCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			if capture.status() >= http.StatusInternalServerError {
				if err := store.Del(ctx, key); err != nil && logg != nil {
					logg.Error(ctx, "release idempotency key", err)
				}
				return
			}
			record, _ := json.Marshal(storedResponse{
				RequestHash: hash,
				Status:      capture.status(),
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.buf.Bytes(),
			})
			if err := store.Set(ctx, key, string(record), policy.TTL); err != nil && logg != nil {
				logg.Error(ctx, "persist idempotency record", err)
			}
		})
	}
}

func reserve(ctx context.Context, store IdempotencyStore, key, hash string) (bool, error) {
	marker, _ := json.Marshal(storedResponse{RequestHash: hash})
	ok, err := store.SetNX(ctx, key, string(marker), inFlightTTL)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key")
	}
	return ok, nil
}

func replayOrReject(ctx context.Context, store IdempotencyStore, key, hash string, w http.ResponseWriter, logg *logger.Logger) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		// released between SETNX and GET; the original failed
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this Idempotency-Key failed, retry"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency record"))
		return
	}
	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode idempotency record"))
		return
	}
	switch {
	case stored.RequestHash != hash:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "Idempotency-Key reused with a different request body"))
	case stored.Status == 0:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this Idempotency-Key is still in progress"))
	default:
		if stored.ContentType != "" {
			w.Header().Set("Content-Type", stored.ContentType)
		}
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(stored.Status)
		_, _ = w.Write(stored.Body)
	}
}

// idempotencyScope ties a key to the caller and the concrete resource path,
// so two users (or two orders) never share a record.
func idempotencyScope(r *http.Request) string {
	user := UserIDFromContext(r.Context())
	if user == "" {
		user = "anon"
	}
	return user + "|" + r.Method + "|" + strings.TrimSuffix(r.URL.Path, "/")
}

func requestHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

type bodyCapture struct {
	http.ResponseWriter
	code int
	buf  bytes.Buffer
}

func (c *bodyCapture) WriteHeader(code int) {
	if c.code == 0 {
		c.code = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *bodyCapture) Write(b []byte) (int, error) {
	if c.code == 0 {
		c.code = http.StatusOK
	}
	c.buf.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *bodyCapture) status() int {
	if c.code == 0 {
		return http.StatusOK
	}
	return c.code
}
