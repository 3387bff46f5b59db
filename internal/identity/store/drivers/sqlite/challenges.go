package sqlite

import (
	"context"
	"time"

	"github.com/cobaltleaf/doorman/internal/identity/domain"
	"github.com/cobaltleaf/doorman/internal/identity/store"
)

type challengesRepo struct {
	db dbtx
}

// The upsert keys on (email, purpose) so issuing a new code atomically
// replaces any prior challenge for the pair and resets its attempt counter.
const upsertChallengeSQL = `
INSERT INTO challenges (id, email, purpose, code_hash, attempts, max_attempts, expires_at, created_at, last_used_at)
VALUES (?, ?, ?, ?, 0, ?, ?, ?, ?)
ON CONFLICT (email, purpose) DO UPDATE SET
    id           = excluded.id,
    code_hash    = excluded.code_hash,
    attempts     = 0,
    max_attempts = excluded.max_attempts,
    expires_at   = excluded.expires_at,
    created_at   = excluded.created_at,
    last_used_at = excluded.last_used_at`

func (r *challengesRepo) UpsertChallenge(ctx context.Context, c domain.Challenge) error {
	_, err := r.db.ExecContext(ctx, upsertChallengeSQL,
		c.ID, c.Email, string(c.Purpose), c.CodeHash,
		c.MaxAttempts, c.ExpiresAt.UTC(), c.CreatedAt.UTC(), c.LastUsedAt.UTC(),
	)
	return err
}

const getChallengeSQL = `
SELECT id, email, purpose, code_hash, attempts, max_attempts, expires_at, created_at, last_used_at
FROM challenges
WHERE email = ? AND purpose = ?`

func (r *challengesRepo) GetChallenge(ctx context.Context, email string, purpose domain.Purpose) (domain.Challenge, error) {
	var c domain.Challenge
	var p string
	err := r.db.QueryRowContext(ctx, getChallengeSQL, email, string(purpose)).Scan(
		&c.ID, &c.Email, &p, &c.CodeHash,
		&c.Attempts, &c.MaxAttempts, &c.ExpiresAt, &c.CreatedAt, &c.LastUsedAt,
	)
	if err != nil {
		return domain.Challenge{}, mapNotFound(err)
	}
	c.Purpose = domain.Purpose(p)
	return c, nil
}

// The increment runs inside the database and RETURNING hands back the new
// count, so concurrent wrong guesses serialize instead of losing updates.
const incrementChallengeAttemptsSQL = `
UPDATE challenges
SET attempts = attempts + 1, last_used_at = ?
WHERE id = ?
RETURNING attempts`

func (r *challengesRepo) IncrementChallengeAttempts(ctx context.Context, id string) (int, error) {
	var attempts int
	err := r.db.QueryRowContext(ctx, incrementChallengeAttemptsSQL, time.Now().UTC(), id).Scan(&attempts)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return attempts, nil
}

// ConsumeChallenge deletes the row and reports ErrNotFound when another
// request got there first. At most one concurrent consume succeeds.
func (r *challengesRepo) ConsumeChallenge(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM challenges WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *challengesRepo) DeleteExpiredChallenges(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM challenges WHERE expires_at <= ? OR attempts >= max_attempts`,
		time.Now().UTC(),
	)
	return err
}
