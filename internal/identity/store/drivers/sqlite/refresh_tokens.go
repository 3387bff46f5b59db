package sqlite

import (
	"context"
	"time"

	"github.com/cobaltleaf/doorman/internal/identity/domain"
)

type refreshTokensRepo struct {
	db dbtx
}

const createRefreshTokenSQL = `
INSERT INTO refresh_tokens (id, owner_id, token_hash, revoked, expires_at, created_at, last_used_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.db.ExecContext(ctx, createRefreshTokenSQL,
		t.ID, t.OwnerID, t.TokenHash, t.Revoked,
		t.ExpiresAt.UTC(), t.CreatedAt.UTC(), t.LastUsedAt.UTC(),
	)
	return mapConstraint(err)
}

const getRefreshTokenByHashSQL = `
SELECT id, owner_id, token_hash, revoked, expires_at, created_at, last_used_at
FROM refresh_tokens
WHERE token_hash = ?`

func (r *refreshTokensRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error) {
	var t domain.RefreshToken
	err := r.db.QueryRowContext(ctx, getRefreshTokenByHashSQL, hash).Scan(
		&t.ID, &t.OwnerID, &t.TokenHash, &t.Revoked,
		&t.ExpiresAt, &t.CreatedAt, &t.LastUsedAt,
	)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	return t, nil
}

func (r *refreshTokensRepo) TouchRefreshToken(ctx context.Context, id string, usedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET last_used_at = ? WHERE id = ?`,
		usedAt.UTC(), id,
	)
	return err
}

// Revocation only ever flips FALSE to TRUE; re-running on an already-revoked
// set is a no-op.
func (r *refreshTokensRepo) RevokeAllOwnerRefreshTokens(ctx context.Context, ownerID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE WHERE owner_id = ? AND revoked = FALSE`,
		ownerID,
	)
	return err
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at <= ? OR revoked = TRUE`,
		time.Now().UTC(),
	)
	return err
}
