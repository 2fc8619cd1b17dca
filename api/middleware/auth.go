package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing bearer credentials")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing bearer credentials")
	}
	return token, nil
}

// Auth admits requests whose access token verifies and whose session is
// still live. A nil checker skips the session lookup.
func Auth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := authenticate(r, cfg, sessions)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			userID := claims.UserID.String()
			ctx := WithUserID(r.Context(), userID)
			if logg != nil {
				ctx = logg.WithUserID(ctx, userID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(r *http.Request, cfg config.JWTConfig, sessions session.AccessSessionChecker) (*pkgAuth.AccessTokenClaims, error) {
	token, err := BearerToken(r)
	if err != nil {
		return nil, err
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	switch {
	case pkgAuth.IsExpired(err):
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "access token expired")
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token")
	case claims.SessionID() == "":
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "access token has no session")
	}
	if sessions == nil {
		return claims, nil
	}
	if err := checkSession(r.Context(), sessions, claims.SessionID()); err != nil {
		return nil, err
	}
	return claims, nil
}

func checkSession(ctx context.Context, sessions session.AccessSessionChecker, id string) error {
	live, err := sessions.HasSession(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "session lookup failed")
	}
	if !live {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "session revoked or expired")
	}
	return nil
}
