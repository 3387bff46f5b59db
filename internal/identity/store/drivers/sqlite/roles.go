package sqlite

import (
	"context"
	"time"

	"github.com/cobaltleaf/doorman/internal/identity/domain"
)

type rolesRepo struct {
	db dbtx
}

const getRoleByNameSQL = `
SELECT id, name, permissions, created_at, updated_at
FROM roles
WHERE name = ?`

func (r *rolesRepo) GetRoleByName(ctx context.Context, name string) (domain.Role, error) {
	var role domain.Role
	var perms string
	err := r.db.QueryRowContext(ctx, getRoleByNameSQL, name).Scan(
		&role.ID, &role.Name, &perms, &role.CreatedAt, &role.UpdatedAt,
	)
	if err != nil {
		return domain.Role{}, mapNotFound(err)
	}
	role.Permissions = splitPermissions(perms)
	return role, nil
}

func (r *rolesRepo) ListRoles(ctx context.Context) ([]domain.Role, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, permissions, created_at, updated_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		var role domain.Role
		var perms string
		if err := rows.Scan(&role.ID, &role.Name, &perms, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		role.Permissions = splitPermissions(perms)
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *rolesRepo) CreateRole(ctx context.Context, role domain.Role) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO roles (id, name, permissions, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		role.ID, role.Name, joinPermissions(role.Permissions),
		role.CreatedAt.UTC(), role.UpdatedAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *rolesRepo) UpdateRolePermissions(ctx context.Context, roleID string, permissions []string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE roles SET permissions = ?, updated_at = ? WHERE id = ?`,
		joinPermissions(permissions), time.Now().UTC(), roleID,
	)
	return err
}
