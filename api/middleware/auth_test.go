package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "storefront", ExpirationMinutes: 60}

func TestBearerToken(t *testing.T) {
	cases := map[string]struct {
		header string
		token  string
		ok     bool
	}{
		"bearer":           {"Bearer abc.def", "abc.def", true},
		"lowercase scheme": {"bearer abc.def", "abc.def", true},
		"padded":           {"  Bearer   abc.def  ", "abc.def", true},
		"empty":            {"", "", false},
		"scheme only":      {"Bearer ", "", false},
		"basic":            {"Basic dXNlcjpwYXNz", "", false},
		"raw token":        {"abc.def", "", false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", tc.header)
			token, err := BearerToken(req)
			if tc.ok {
				require.NoError(t, err)
				assert.Equal(t, tc.token, token)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestAuthAdmitsLiveSession(t *testing.T) {
	userID := uuid.New()
	sessions := &stubSessions{live: true}

	var seen string
	resp := serveAuth(t, sessions, "Bearer "+mintTestToken(t, userID, time.Now()), func(r *http.Request) {
		seen = UserIDFromContext(r.Context())
	})

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, userID.String(), seen)
	assert.Len(t, sessions.asked, 1)
}

func TestAuthRejections(t *testing.T) {
	valid := mintTestToken(t, uuid.New(), time.Now())
	expired := mintTestToken(t, uuid.New(), time.Now().Add(-2*time.Hour))

	cases := []struct {
		name     string
		header   string
		sessions *stubSessions
		status   int
		code     string
	}{
		{"missing header", "", &stubSessions{live: true}, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"garbage token", "Bearer not-a-jwt", &stubSessions{live: true}, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"expired token", "Bearer " + expired, &stubSessions{live: true}, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"revoked session", "Bearer " + valid, &stubSessions{live: false}, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"session store down", "Bearer " + valid, &stubSessions{err: errors.New("redis down")}, http.StatusServiceUnavailable, "DEPENDENCY_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := serveAuth(t, tc.sessions, tc.header, func(*http.Request) {
				t.Fatal("handler must not run")
			})
			assert.Equal(t, tc.status, resp.Code)

			var body responses.ErrorEnvelope
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body.Error.Code)
		})
	}
}

func TestAuthWithoutSessionChecker(t *testing.T) {
	handler := Auth(testJWT, nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+mintTestToken(t, uuid.New(), time.Now()))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusNoContent, resp.Code)
}

func serveAuth(t *testing.T, sessions *stubSessions, header string, inspect func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	handler := Auth(testJWT, sessions, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inspect(r)
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func mintTestToken(t *testing.T, userID uuid.UUID, issuedAt time.Time) string {
	t.Helper()
	token, err := auth.MintAccessToken(testJWT, issuedAt, auth.AccessTokenPayload{
		UserID: userID,
		Email:  "shopper@example.com",
		JTI:    session.NewAccessID(),
	})
	require.NoError(t, err)
	return token
}

type stubSessions struct {
	live  bool
	err   error
	asked []string
}

func (s *stubSessions) HasSession(_ context.Context, accessID string) (bool, error) {
	s.asked = append(s.asked, accessID)
	if s.err != nil {
		return false, s.err
	}
	return s.live, nil
}
