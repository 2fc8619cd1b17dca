package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/users"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type stubAuthService struct {
	tokens    *auth.TokenResponse
	profile   *users.UserDTO
	err       error
	signup    auth.SignupRequest
	refresh   auth.RefreshRequest
	revokedID string
}

func (s *stubAuthService) Signup(ctx context.Context, req auth.SignupRequest) (*auth.TokenResponse, error) {
	s.signup = req
	return s.tokens, s.err
}

func (s *stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.TokenResponse, error) {
	return s.tokens, s.err
}

func (s *stubAuthService) Logout(ctx context.Context, accessID string) error {
	s.revokedID = accessID
	return s.err
}

func (s *stubAuthService) Refresh(ctx context.Context, req auth.RefreshRequest) (*auth.TokenResponse, error) {
	s.refresh = req
	return s.tokens, s.err
}

func (s *stubAuthService) Profile(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	return s.profile, s.err
}

func TestAuthSignupReturnsCreated(t *testing.T) {
	svc := &stubAuthService{tokens: &auth.TokenResponse{AccessToken: "a", RefreshToken: "r"}}
	body := `{"email":"new@example.com","password":"longenough","first_name":"New","last_name":"Shopper"}`

	resp := httptest.NewRecorder()
	AuthSignup(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", strings.NewReader(body)))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if svc.signup.Email != "new@example.com" {
		t.Fatalf("request not forwarded: %+v", svc.signup)
	}
	var tokens auth.TokenResponse
	decodeData(t, resp, &tokens)
	if tokens.AccessToken != "a" || tokens.RefreshToken != "r" {
		t.Fatalf("unexpected tokens %+v", tokens)
	}
}

func TestAuthSignupValidatesPassword(t *testing.T) {
	svc := &stubAuthService{}
	body := `{"email":"new@example.com","password":"short","first_name":"New","last_name":"Shopper"}`

	resp := httptest.NewRecorder()
	AuthSignup(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", strings.NewReader(body)))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if env := decodeError(t, resp); !strings.Contains(string(env.Error.Details), "password") {
		t.Fatalf("expected password field error, got %s", env.Error.Details)
	}
}

func TestAuthLoginInvalidCredentials(t *testing.T) {
	svc := &stubAuthService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}
	body := `{"email":"a@example.com","password":"wrong-password"}`

	resp := httptest.NewRecorder()
	AuthLogin(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body)))

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if env := decodeError(t, resp); env.Error.Message != "invalid credentials" {
		t.Fatalf("unexpected message %q", env.Error.Message)
	}
}

func TestAuthLoginRejectsUnknownFields(t *testing.T) {
	resp := httptest.NewRecorder()
	body := `{"email":"a@example.com","password":"x","role":"admin"}`
	AuthLogin(&stubAuthService{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body)))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAuthLogoutRevokesSessionFromToken(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "storefront", ExpirationMinutes: 1}
	token, err := pkgAuth.MintAccessToken(cfg, time.Now().Add(-time.Hour), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		JTI:    "session-1",
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	svc := &stubAuthService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	AuthLogout(svc, cfg, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.revokedID != "session-1" {
		t.Fatalf("expected session-1 revoked, got %q", svc.revokedID)
	}
}

func TestAuthLogoutRequiresBearer(t *testing.T) {
	resp := httptest.NewRecorder()
	AuthLogout(&stubAuthService{}, config.JWTConfig{Secret: "secret"}, nil).
		ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil))

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRefreshForwardsBearerToken(t *testing.T) {
	svc := &stubAuthService{tokens: &auth.TokenResponse{AccessToken: "new", RefreshToken: "rotated"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`{"refresh_token":"old"}`))
	req.Header.Set("Authorization", "Bearer expired-access")
	resp := httptest.NewRecorder()
	AuthRefresh(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.refresh.AccessToken != "expired-access" || svc.refresh.RefreshToken != "old" {
		t.Fatalf("unexpected refresh request %+v", svc.refresh)
	}
}

func TestMeRequiresUserContext(t *testing.T) {
	resp := httptest.NewRecorder()
	Me(&stubAuthService{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestMeReturnsProfile(t *testing.T) {
	userID := uuid.New()
	svc := &stubAuthService{profile: &users.UserDTO{ID: userID, Email: "me@example.com"}}

	resp := httptest.NewRecorder()
	Me(svc, nil).ServeHTTP(resp, newRequest(http.MethodGet, "/api/v1/me", nil, userID, nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var profile users.UserDTO
	decodeData(t, resp, &profile)
	if profile.ID != userID {
		t.Fatalf("unexpected profile %+v", profile)
	}
}

func TestAuthEndpointsWithoutService(t *testing.T) {
	handlers := map[string]http.HandlerFunc{
		"signup":  AuthSignup(nil, nil),
		"login":   AuthLogin(nil, nil),
		"refresh": AuthRefresh(nil, nil),
		"logout":  AuthLogout(nil, config.JWTConfig{}, nil),
		"me":      Me(nil, nil),
	}
	for name, h := range handlers {
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/auth/"+name, strings.NewReader(`{}`)))
		if resp.Code != http.StatusInternalServerError {
			t.Fatalf("%s: expected 500 got %d", name, resp.Code)
		}
	}
}

func TestAuthRefreshRequiresBearer(t *testing.T) {
	svc := &stubAuthService{}
	resp := httptest.NewRecorder()
	AuthRefresh(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`{"refresh_token":"old"}`)))

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if svc.refresh.RefreshToken != "" {
		t.Fatalf("service should not be called without a bearer token")
	}
}
