// Package session keeps the refresh half of a login in Redis, keyed by the
// access token's jti. Only a SHA-256 digest of each refresh token is stored.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	redisclient "github.com/angelmondragon/storefront-backend/pkg/redis"
)

const refreshTokenBytes = 32

var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	errMissingAccessID     = errors.New("access id is required")
)

type store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	GetDel(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AccessSessionKey(accessID string) string
}

type entry struct {
	UserID   uuid.UUID `json:"user_id"`
	Digest   string    `json:"digest"`
	IssuedAt time.Time `json:"issued_at"`
}

// Rotation is the outcome of a successful refresh.
type Rotation struct {
	UserID       uuid.UUID
	AccessID     string
	RefreshToken string
}

// AccessSessionChecker is what the auth middleware needs to reject tokens
// whose session was revoked.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

type Manager struct {
	store store
	ttl   time.Duration
	now   func() time.Time
}

// NewManager requires the refresh TTL to outlive the access TTL, otherwise
// an access token could never be refreshed.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	ttl := cfg.RefreshTokenTTL()
	accessTTL := time.Duration(cfg.ExpirationMinutes) * time.Minute
	if ttl <= accessTTL {
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, accessTTL)
	}
	return newManager(client, ttl), nil
}

func newManager(s store, ttl time.Duration) *Manager {
	return &Manager{store: s, ttl: ttl, now: time.Now}
}

// Generate opens a session for accessID and returns its refresh token.
func (m *Manager) Generate(ctx context.Context, userID uuid.UUID, accessID string) (string, error) {
	if strings.TrimSpace(accessID) == "" {
		return "", errMissingAccessID
	}
	if userID == uuid.Nil {
		return "", errors.New("user id is required")
	}
	return m.open(ctx, userID, accessID)
}

// Rotate consumes the session of oldAccessID and opens a new one. The old
// entry is removed before the token is compared, so a refresh token works at
// most once and a wrong guess ends the session.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, provided string) (Rotation, error) {
	if strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(provided) == "" {
		return Rotation{}, ErrInvalidRefreshToken
	}
	raw, err := m.store.GetDel(ctx, m.store.AccessSessionKey(oldAccessID))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return Rotation{}, ErrInvalidRefreshToken
		}
		return Rotation{}, fmt.Errorf("load session: %w", err)
	}
	var stored entry
	if err := json.Unmarshal([]byte(raw), &stored); err != nil || stored.UserID == uuid.Nil {
		return Rotation{}, ErrInvalidRefreshToken
	}
	if subtle.ConstantTimeCompare([]byte(stored.Digest), []byte(digest(provided))) != 1 {
		return Rotation{}, ErrInvalidRefreshToken
	}

	next := NewAccessID()
	token, err := m.open(ctx, stored.UserID, next)
	if err != nil {
		return Rotation{}, err
	}
	return Rotation{UserID: stored.UserID, AccessID: next, RefreshToken: token}, nil
}

// Revoke ends the session behind accessID. Unknown ids are not an error.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return errMissingAccessID
	}
	return m.store.Del(ctx, m.store.AccessSessionKey(accessID))
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, errMissingAccessID
	}
	_, err := m.store.Get(ctx, m.store.AccessSessionKey(accessID))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redislib.Nil):
		return false, nil
	default:
		return false, err
	}
}

// NewAccessID mints the JWT jti, which doubles as the session key.
func NewAccessID() string {
	return uuid.NewString()
}

func (m *Manager) open(ctx context.Context, userID uuid.UUID, accessID string) (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	payload, err := json.Marshal(entry{UserID: userID, Digest: digest(token), IssuedAt: m.now().UTC()})
	if err != nil {
		return "", fmt.Errorf("encoding session: %w", err)
	}
	if err := m.store.Set(ctx, m.store.AccessSessionKey(accessID), string(payload), m.ttl); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
