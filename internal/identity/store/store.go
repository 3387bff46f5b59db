package store

import (
	"context"
	"errors"
	"time"

	"github.com/cobaltleaf/doorman/internal/identity/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers implement it and
// expose sub-repositories to keep concerns separated. Records vanishing
// between a read and a follow-up write (e.g. a sweep deleting an expired
// challenge mid-validation) surface as ErrNotFound, never as corruption.
type Store interface {
	Challenges() Challenges
	RefreshTokens() RefreshTokens
	Identities() Identities
	Roles() Roles
	AuditEvents() AuditEvents

	ApplyMigrations() error

	// Tx starts a read/write transaction scoped Store. The caller MUST
	// Commit() or Rollback() the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn inside a transaction, committing on nil and rolling
	// back on error. Preferred over Tx for multi-step operations.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the underlying connection is alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Challenges interface {
	// UpsertChallenge atomically replaces any existing challenge for the
	// same (email, purpose) pair, resetting the attempt counter. There is
	// never more than one live challenge per pair.
	UpsertChallenge(ctx context.Context, c domain.Challenge) error

	// GetChallenge returns the live challenge for (email, purpose).
	GetChallenge(ctx context.Context, email string, purpose domain.Purpose) (domain.Challenge, error)

	// IncrementChallengeAttempts bumps the attempt counter by one and
	// returns the new count. The increment happens inside the database so
	// concurrent wrong guesses serialize instead of overwriting each other.
	IncrementChallengeAttempts(ctx context.Context, id string) (int, error)

	// ConsumeChallenge deletes the challenge by id. ErrNotFound means
	// another request consumed it first; exactly one concurrent correct
	// submission wins.
	ConsumeChallenge(ctx context.Context, id string) error

	// DeleteExpiredChallenges removes challenges past expiry or past their
	// attempt budget (housekeeping).
	DeleteExpiredChallenges(ctx context.Context) error
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the record by token fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// TouchRefreshToken bumps last_used_at after a successful rotation.
	TouchRefreshToken(ctx context.Context, id string, usedAt time.Time) error

	// RevokeAllOwnerRefreshTokens marks every non-revoked token of the
	// owner revoked. Idempotent; revocation never un-happens.
	RevokeAllOwnerRefreshTokens(ctx context.Context, ownerID string) error

	// DeleteExpiredRefreshTokens removes expired or revoked rows
	// (housekeeping).
	DeleteExpiredRefreshTokens(ctx context.Context) error
}

type Identities interface {
	// GetIdentityByEmail looks up a principal by normalized email.
	GetIdentityByEmail(ctx context.Context, email string) (domain.Identity, error)

	// GetIdentityByID looks up a principal by id.
	GetIdentityByID(ctx context.Context, id string) (domain.Identity, error)

	// CreateIdentity inserts a new principal (id provided by the app via
	// ULID). Returns ErrAlreadyExists on an email collision.
	CreateIdentity(ctx context.Context, ident domain.Identity) error

	// UpdatePasswordHash sets the password hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, id string, newHash string) error

	// UpdateLastLogin records a successful authentication time.
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error

	// SetActive toggles whether the principal may authenticate.
	SetActive(ctx context.Context, id string, active bool) error
}

type Roles interface {
	// GetRoleByName fetches a role and its flattened permissions.
	GetRoleByName(ctx context.Context, name string) (domain.Role, error)

	// ListRoles returns all roles.
	ListRoles(ctx context.Context) ([]domain.Role, error)

	// CreateRole inserts a new role (id is ULID).
	CreateRole(ctx context.Context, r domain.Role) error

	// UpdateRolePermissions replaces a role's permission set.
	UpdateRolePermissions(ctx context.Context, roleID string, permissions []string) error
}

type AuditEvents interface {
	// AppendAuditEvent writes one event. Append-only.
	AppendAuditEvent(ctx context.Context, e domain.AuditEvent) error

	// ListAuditEventsByEmail returns recent events for an email, newest
	// first, capped at limit.
	ListAuditEventsByEmail(ctx context.Context, email string, limit int) ([]domain.AuditEvent, error)

	// DeleteAuditEventsBefore prunes events older than cutoff
	// (housekeeping, 30 day retention by default).
	DeleteAuditEventsBefore(ctx context.Context, cutoff time.Time) error
}
