package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/cobaltleaf/doorman/internal/identity/domain"
)

type identitiesRepo struct {
	db dbtx
}

const identityColumns = `id, email, kind, role, active, password_hash, created_at, updated_at, last_login_at`

func scanIdentity(row *sql.Row) (domain.Identity, error) {
	var ident domain.Identity
	var kind string
	var lastLogin sql.NullTime
	err := row.Scan(
		&ident.ID, &ident.Email, &kind, &ident.Role, &ident.Active,
		&ident.PasswordHash, &ident.CreatedAt, &ident.UpdatedAt, &lastLogin,
	)
	if err != nil {
		return domain.Identity{}, mapNotFound(err)
	}
	ident.Kind = domain.Kind(kind)
	ident.LastLoginAt = mapNullTimePtr(lastLogin)
	return ident, nil
}

func (r *identitiesRepo) GetIdentityByEmail(ctx context.Context, email string) (domain.Identity, error) {
	return scanIdentity(r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE email = ?`, email))
}

func (r *identitiesRepo) GetIdentityByID(ctx context.Context, id string) (domain.Identity, error) {
	return scanIdentity(r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = ?`, id))
}

const createIdentitySQL = `
INSERT INTO identities (id, email, kind, role, active, password_hash, created_at, updated_at, last_login_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (r *identitiesRepo) CreateIdentity(ctx context.Context, ident domain.Identity) error {
	_, err := r.db.ExecContext(ctx, createIdentitySQL,
		ident.ID, ident.Email, string(ident.Kind), ident.Role, ident.Active,
		ident.PasswordHash, ident.CreatedAt.UTC(), ident.UpdatedAt.UTC(),
		mapOptionalTime(ident.LastLoginAt),
	)
	return mapConstraint(err)
}

func (r *identitiesRepo) UpdatePasswordHash(ctx context.Context, id string, newHash string) error {
	return r.execOne(ctx,
		`UPDATE identities SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, time.Now().UTC(), id)
}

func (r *identitiesRepo) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.execOne(ctx,
		`UPDATE identities SET last_login_at = ?, updated_at = ? WHERE id = ?`,
		at.UTC(), time.Now().UTC(), id)
}

func (r *identitiesRepo) SetActive(ctx context.Context, id string, active bool) error {
	return r.execOne(ctx,
		`UPDATE identities SET active = ?, updated_at = ? WHERE id = ?`,
		active, time.Now().UTC(), id)
}

// execOne runs an update that must touch exactly one row.
func (r *identitiesRepo) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return mapNotFound(sql.ErrNoRows)
	}
	return nil
}
