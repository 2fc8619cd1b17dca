package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type AccessTokenPayload struct {
	UserID uuid.UUID
	Email  string
	// JTI doubles as the session id; a fresh one is generated when empty.
	JTI string
}

// AccessTokenClaims is the JWT body. The registered jti is the session id
// checked against redis on every authenticated request.
type AccessTokenClaims struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email,omitempty"`
	jwt.RegisteredClaims
}

func (c *AccessTokenClaims) SessionID() string {
	return c.ID
}
