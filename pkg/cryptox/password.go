package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters. These follow the OWASP minimum recommendation for
// interactive logins.
const (
	argonMemory      = 19 * 1024 // KiB
	argonIterations  = 2
	argonParallelism = 1
	argonKeyLength   = 32
	argonSaltLength  = 16
)

var ErrPasswordMismatch = errors.New("cryptox: password does not match")

// HashPassword derives a PHC-format Argon2id hash from the password and the
// process-wide pepper. Hashing is always an explicit call site; nothing hashes
// passwords implicitly on persistence.
func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("cryptox: read random: %w", err)
	}

	hash := argon2.IDKey(
		[]byte(password+GetPepper()),
		salt,
		argonIterations,
		argonMemory,
		argonParallelism,
		argonKeyLength,
	)

	return fmt.Sprintf(
		"$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		argonMemory,
		argonIterations,
		argonParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifyPassword compares a candidate password against a PHC-format Argon2id
// hash in constant time. Parameters are read from the hash itself so old
// hashes keep verifying after parameter bumps.
func VerifyPassword(password, encodedHash string) error {
	var (
		mem, iters uint32
		par        uint8
		b64Salt    string
		b64Hash    string
	)

	// PHC layout: $argon2id$v=19$m=X,t=Y,p=Z$salt$hash
	_, err := fmt.Sscanf(encodedHash, "$argon2id$v=19$m=%d,t=%d,p=%d$", &mem, &iters, &par)
	if err != nil {
		return fmt.Errorf("cryptox: malformed hash parameters: %w", err)
	}

	parts := splitPHC(encodedHash)
	if len(parts) != 6 {
		return errors.New("cryptox: malformed hash: expected 6 segments")
	}
	b64Salt, b64Hash = parts[4], parts[5]

	salt, err := base64.RawStdEncoding.DecodeString(b64Salt)
	if err != nil {
		return fmt.Errorf("cryptox: malformed salt: %w", err)
	}
	want, err := base64.RawStdEncoding.DecodeString(b64Hash)
	if err != nil {
		return fmt.Errorf("cryptox: malformed hash: %w", err)
	}

	got := argon2.IDKey(
		[]byte(password+GetPepper()),
		salt,
		iters,
		mem,
		par,
		uint32(len(want)), // #nosec G115
	)

	if subtle.ConstantTimeCompare(got, want) != 1 {
		return ErrPasswordMismatch
	}
	return nil
}

func splitPHC(s string) []string {
	parts := make([]string, 0, 6)
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '$' {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
