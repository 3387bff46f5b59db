package jwtx

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Signer signs access tokens with an Ed25519 key. The service runs a single
// signing key; rotation means restarting with a new PEM, which naturally
// invalidates outstanding access tokens within one TTL.
type Signer struct {
	kid string
	key ed25519.PrivateKey
	pub ed25519.PublicKey
}

// NewSignerFromPEM loads an Ed25519 private key in PKCS8 PEM form.
func NewSignerFromPEM(kid string, pemKey []byte) (*Signer, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("jwtx: invalid PEM for Ed25519 key")
	}
	if block.Type != "PRIVATE KEY" {
		return nil, fmt.Errorf("jwtx: expected PRIVATE KEY, got %q (Ed25519 requires PKCS8)", block.Type)
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("jwtx: parse PKCS8: %w", err)
	}

	key, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("jwtx: not an Ed25519 private key")
	}

	return &Signer{
		kid: kid,
		key: key,
		pub: key.Public().(ed25519.PublicKey),
	}, nil
}

// NewEphemeralSigner generates a fresh Ed25519 keypair. Tokens signed with an
// ephemeral key do not survive a process restart.
func NewEphemeralSigner(kid string) (*Signer, error) {
	pub, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("jwtx: generate key: %w", err)
	}
	return &Signer{kid: kid, key: key, pub: pub}, nil
}

// MarshalPKCS8PEM encodes the signer's private key for persistence.
func (s *Signer) MarshalPKCS8PEM() ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(s.key)
	if err != nil {
		return nil, fmt.Errorf("jwtx: marshal PKCS8: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// KID returns the key identifier embedded in token headers.
func (s *Signer) KID() string { return s.kid }

// PublicKey returns the verification half of the signing key.
func (s *Signer) PublicKey() ed25519.PublicKey { return s.pub }

// Sign serializes the claims into a signed JWT string.
func (s *Signer) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}
