package jwtx

import (
	"crypto/ed25519"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verification failure kinds. Callers branch on these: an expired token means
// the holder should refresh, anything else means re-authenticate.
var (
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrInvalidSig = errors.New("jwtx: invalid signature")
	ErrExpired    = errors.New("jwtx: token expired")
	ErrIssuer     = errors.New("jwtx: issuer mismatch")
)

// Verifier validates Ed25519-signed access tokens. Verification is pure
// computation against the in-memory public key; it takes no locks and does
// no I/O.
type Verifier struct {
	pub    ed25519.PublicKey
	issuer string
	leeway time.Duration
}

// NewVerifier builds a verifier for tokens signed by the matching Signer.
// A small leeway absorbs clock skew between issuing and verifying hosts.
func NewVerifier(pub ed25519.PublicKey, issuer string, leeway time.Duration) *Verifier {
	return &Verifier{pub: pub, issuer: issuer, leeway: leeway}
}

// Verify parses and validates the token string, returning its claims.
// Failures are reported as exactly one of ErrExpired, ErrInvalidSig,
// ErrIssuer, or ErrMalformed; expiry is checked so that a tampered-AND-stale
// token surfaces as invalid, not merely expired.
func (v *Verifier) Verify(tokenStr string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithLeeway(v.leeway),
	)

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return v.pub, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Claims{}, ErrMalformed
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrInvalidSig
		case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
			return Claims{}, ErrExpired
		default:
			return Claims{}, ErrInvalidSig
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Claims{}, ErrInvalidSig
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return Claims{}, ErrIssuer
	}

	return *claims, nil
}
