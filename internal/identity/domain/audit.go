package domain

import "time"

// AuditKind names a security-relevant event.
type AuditKind string

const (
	AuditAuthSuccess       AuditKind = "auth_success"
	AuditAuthFailure       AuditKind = "auth_failure"
	AuditChallengeIssued   AuditKind = "challenge_issued"
	AuditChallengeConsumed AuditKind = "challenge_consumed"
	AuditChallengeRejected AuditKind = "challenge_rejected"
	AuditIdentityCreated   AuditKind = "identity_created"
	AuditTokenIssued       AuditKind = "token_issued"
	AuditTokenRotated      AuditKind = "token_rotated"
	AuditTokensRevoked     AuditKind = "tokens_revoked"
	AuditPasswordReset     AuditKind = "password_reset"
	AuditAccessDenied      AuditKind = "access_denied"
)

// Audit outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// AuditEvent records one security-relevant occurrence. Recording is
// fire-and-forget: a failed write never fails the operation that produced
// the event.
type AuditEvent struct {
	ID         string
	Kind       AuditKind
	IdentityID string // empty for pre-identity events such as failed logins
	Email      string
	Outcome    string
	Message    string
	Metadata   map[string]string
	CreatedAt  time.Time
}
