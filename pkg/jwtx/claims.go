package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token lifetimes. Access tokens stay short because they cannot be
// revoked once issued; refresh tokens carry the long tail.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Claims is the self-contained access-token payload. The server never stores
// access tokens; everything a resource check needs rides in here, and the
// holder's identity is re-validated against the directory on each request.
type Claims struct {
	jwt.RegisteredClaims

	// Email of the authenticated principal.
	Email string `json:"email,omitempty"`

	// Role name, expanded into permissions through the role catalog.
	Role string `json:"role,omitempty"`

	// Kind distinguishes staff users from tenants. Tenants carry no
	// expandable role.
	Kind string `json:"kind,omitempty"`
}

// NewAccessClaims builds minimally-correct claims for an access token.
func NewAccessClaims(subject, email, role, kind, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        newJTI(),
		},
		Email: email,
		Role:  role,
		Kind:  kind,
	}
}

// newJTI returns a URL-safe random identifier for the "jti" claim.
func newJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
