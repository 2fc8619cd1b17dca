package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Only the email field is needed from the body; larger payloads are left to
// the handler to reject.
const maxEmailProbeBytes = 64 << 10

// RateLimiterStore counts hits per scope in fixed windows.
type RateLimiterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (pkgredis.RateDecision, error)
}

// RateLimitPolicy throttles one auth endpoint per client IP and per email.
// A zero limit disables that dimension.
type RateLimitPolicy struct {
	Name     string
	Window   time.Duration
	PerIP    int
	PerEmail int
}

func (p RateLimitPolicy) enabled() bool {
	return p.Window > 0 && (p.PerIP > 0 || p.PerEmail > 0)
}

// AuthRateLimit rejects signup and login bursts with 429 and Retry-After.
// Emails are hashed before they become part of a Redis key or a log line.
func AuthRateLimit(policy RateLimitPolicy, store RateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || !policy.enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if policy.PerIP > 0 {
				if ip := clientIP(r); ip != "" {
					if !check(ctx, w, logg, store, policy, "ip", ip, policy.PerIP) {
						return
					}
				}
			}

			if policy.PerEmail > 0 {
				body, err := io.ReadAll(io.LimitReader(r.Body, maxEmailProbeBytes))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
					return
				}
				r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), r.Body))
				if email := emailFromBody(body); email != "" {
					if !check(ctx, w, logg, store, policy, "email", hashEmail(email), policy.PerEmail) {
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// check counts one hit and writes the rejection itself; false means the
// request is done.
func check(ctx context.Context, w http.ResponseWriter, logg *logger.Logger, store RateLimiterStore, policy RateLimitPolicy, dimension, subject string, limit int) bool {
	scope := policy.Name + ":" + dimension + ":" + subject
	decision, err := store.FixedWindowAllow(ctx, scope, int64(limit), policy.Window)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiter unavailable"))
		return false
	}
	if decision.Allowed {
		return true
	}

	retryAfter := decision.ResetIn
	if retryAfter <= 0 {
		retryAfter = policy.Window
	}
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"policy":    policy.Name,
			"dimension": dimension,
			"subject":   subject,
			"attempts":  decision.Count,
			"limit":     limit,
		}), "auth.rate_limited")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
	return false
}

// clientIP trusts the first X-Forwarded-For hop; the API runs behind a load
// balancer that overwrites the header.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func emailFromBody(body []byte) string {
	var probe struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(body, &probe) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(probe.Email))
}

func hashEmail(email string) string {
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:12])
}
