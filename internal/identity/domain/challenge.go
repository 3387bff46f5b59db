package domain

import "time"

// Purpose tags why a challenge exists. The store enforces at most one live
// challenge per (email, purpose) pair.
type Purpose string

const (
	PurposeRegistration      Purpose = "registration"
	PurposePasswordReset     Purpose = "password_reset"
	PurposeEmailVerification Purpose = "email_verification"
	PurposeLogin             Purpose = "login"
)

// Valid reports whether p is one of the known purposes. Purposes arrive from
// transport layers as strings, so membership is validated at the edge.
func (p Purpose) Valid() bool {
	switch p {
	case PurposeRegistration, PurposePasswordReset, PurposeEmailVerification, PurposeLogin:
		return true
	}
	return false
}

// Challenge is a stored one-time-passcode challenge. The code itself is never
// persisted, only its fingerprint. A challenge dies in exactly one of three
// ways: consumed on a correct submission, deleted when the attempt budget is
// exhausted, or swept after expiry.
type Challenge struct {
	ID          string
	Email       string
	Purpose     Purpose
	CodeHash    string // base64url SHA-256 fingerprint of the numeric code
	Attempts    int
	MaxAttempts int
	ExpiresAt   time.Time
	CreatedAt   time.Time
	LastUsedAt  time.Time
}

// Exhausted reports whether the attempt budget has been used up.
func (c Challenge) Exhausted() bool {
	return c.Attempts >= c.MaxAttempts
}

// Expired reports whether the challenge is past its validity window at now.
// Validation relies on this comparison alone, never on sweeper timing.
func (c Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
