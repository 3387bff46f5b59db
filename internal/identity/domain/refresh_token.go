package domain

import "time"

// RefreshToken is the stored record backing an opaque refresh token. One
// owner may hold several at once (one per device); logout revokes them all.
// Revocation is monotonic: a revoked token is never resurrected.
type RefreshToken struct {
	ID         string
	OwnerID    string
	TokenHash  string // base64url SHA-256 fingerprint of the opaque token
	Revoked    bool
	ExpiresAt  time.Time
	CreatedAt  time.Time
	LastUsedAt time.Time
}
