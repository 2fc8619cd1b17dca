package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// AuthSignup opens an account and logs the new user in.
func AuthSignup(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return endpoint(logg, "auth", svc != nil, http.StatusCreated, func(r *http.Request) (any, error) {
		body, err := bind[auth.SignupRequest](r)
		if err != nil {
			return nil, err
		}
		return svc.Signup(r.Context(), body)
	})
}

func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return endpoint(logg, "auth", svc != nil, http.StatusOK, func(r *http.Request) (any, error) {
		body, err := bind[auth.LoginRequest](r)
		if err != nil {
			return nil, err
		}
		return svc.Login(r.Context(), body)
	})
}

// AuthRefresh pairs the refresh token in the body with the (possibly
// expired) access token from the Authorization header.
func AuthRefresh(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return endpoint(logg, "auth", svc != nil, http.StatusOK, func(r *http.Request) (any, error) {
		body, err := bind[auth.RefreshRequest](r)
		if err != nil {
			return nil, err
		}
		if body.AccessToken, err = middleware.BearerToken(r); err != nil {
			return nil, err
		}
		return svc.Refresh(r.Context(), body)
	})
}

// AuthLogout revokes the session named by the token's jti. Expired tokens
// are accepted so a client can always sign out.
func AuthLogout(svc auth.Service, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return endpoint(logg, "auth", svc != nil, http.StatusOK, func(r *http.Request) (any, error) {
		token, err := middleware.BearerToken(r)
		if err != nil {
			return nil, err
		}
		claims, err := pkgAuth.ParseAccessTokenAllowExpired(cfg, token)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
		}
		if claims.ID == "" {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
		}
		if err := svc.Logout(r.Context(), claims.ID); err != nil {
			return nil, err
		}
		return map[string]string{"status": "logged_out"}, nil
	})
}

// Me returns the authenticated user's profile.
func Me(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return endpoint(logg, "auth", svc != nil, http.StatusOK, func(r *http.Request) (any, error) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			return nil, err
		}
		return svc.Profile(r.Context(), userID)
	})
}
