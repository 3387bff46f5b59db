package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"
)

// Opaque token sizes in bytes before encoding.
const (
	// TokenSize128 provides 128 bits of entropy.
	TokenSize128 = 16
	// TokenSize256 provides 256 bits of entropy. Use this for refresh tokens.
	TokenSize256 = 32
)

// GenerateToken returns a cryptographically random opaque token of the given
// byte length, base64url encoded without padding. The token carries no
// structure; holders can only prove possession by presenting it.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("cryptox: token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: read random: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// FingerprintToken returns the deterministic SHA-256 fingerprint of a token,
// base64url encoded. Stores hold fingerprints rather than token values so a
// leaked database cannot be replayed against the service.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// GenerateNumericCode returns a zero-padded numeric code of the given length,
// drawn uniformly from [0, 10^length). Used for one-time passcodes delivered
// over email, where the short length is compensated by a strict attempt
// budget on validation.
func GenerateNumericCode(length int) (string, error) {
	if length <= 0 || length > 18 {
		return "", fmt.Errorf("cryptox: code length out of range: %d", length)
	}

	max := big.NewInt(1)
	for range length {
		max.Mul(max, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("cryptox: read random: %w", err)
	}

	code := n.String()
	if pad := length - len(code); pad > 0 {
		code = strings.Repeat("0", pad) + code
	}
	return code, nil
}
