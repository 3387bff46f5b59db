package service

import "errors"

// Failure kinds surfaced by the services. Transport layers map these onto
// status codes; the audit trail keeps the precise kind even where the HTTP
// response collapses to a generic signal.
var (
	ErrChallengeNotFound = errors.New("challenge_not_found")
	ErrCodeMismatch      = errors.New("code_mismatch")
	ErrChallengeExpired  = errors.New("challenge_expired")
	ErrTooManyAttempts   = errors.New("too_many_attempts")

	ErrRefreshNotFound = errors.New("refresh_token_not_found")
	ErrRefreshRevoked  = errors.New("refresh_token_revoked")
	ErrRefreshExpired  = errors.New("refresh_token_expired")

	ErrInvalidToken       = errors.New("invalid_token")
	ErrTokenExpired       = errors.New("token_expired")
	ErrInactiveIdentity   = errors.New("inactive_identity")
	ErrRoleDenied         = errors.New("role_denied")
	ErrPermissionDenied   = errors.New("permission_denied")
	ErrDeliveryFailed     = errors.New("delivery_failed")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrIdentityExists     = errors.New("identity_exists")
	ErrInvalidPurpose     = errors.New("invalid_purpose")

	ErrRoleExists   = errors.New("role_exists")
	ErrRoleNotFound = errors.New("role_not_found")
)
