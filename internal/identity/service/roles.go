package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cobaltleaf/doorman/internal/identity/domain"
	"github.com/cobaltleaf/doorman/internal/identity/store"
	"github.com/cobaltleaf/doorman/pkg/idx"
)

// RolesService manages the role catalog that authorization resolves
// permissions from. The catalog is seeded by migration; this service covers
// operator changes on top of the seeds.
type RolesService struct {
	Store store.Store
}

// List returns every role with its flattened permission set.
func (s *RolesService) List(ctx context.Context) ([]domain.Role, error) {
	roles, err := s.Store.Roles().ListRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

// Create adds a new role. Role names are unique; a collision reports
// ErrRoleExists.
func (s *RolesService) Create(ctx context.Context, name string, permissions []string) (domain.Role, error) {
	now := time.Now().UTC()
	role := domain.Role{
		ID:          idx.New().String(),
		Name:        name,
		Permissions: permissions,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.Store.Roles().CreateRole(ctx, role); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Role{}, ErrRoleExists
		}
		return domain.Role{}, fmt.Errorf("create role: %w", err)
	}

	// Re-read so the caller sees the stored (deduplicated) permission set.
	return s.Store.Roles().GetRoleByName(ctx, name)
}

// UpdatePermissions replaces a role's permission set. Identities holding the
// role pick up the change on their next permission resolution; issued access
// tokens are unaffected since they carry only the role name.
func (s *RolesService) UpdatePermissions(ctx context.Context, name string, permissions []string) (domain.Role, error) {
	role, err := s.Store.Roles().GetRoleByName(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Role{}, ErrRoleNotFound
		}
		return domain.Role{}, fmt.Errorf("load role: %w", err)
	}

	if err := s.Store.Roles().UpdateRolePermissions(ctx, role.ID, permissions); err != nil {
		return domain.Role{}, fmt.Errorf("update role permissions: %w", err)
	}

	return s.Store.Roles().GetRoleByName(ctx, name)
}
