package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/cobaltleaf/doorman/internal/identity/domain"
	"github.com/cobaltleaf/doorman/internal/identity/store"
	"github.com/cobaltleaf/doorman/pkg/jwtx"
)

// AuthzService answers "who is calling" and "may they do this". Token
// verification is pure computation; the directory re-check on every
// Authenticate is what makes deactivation take effect before token expiry.
type AuthzService struct {
	Verifier *jwtx.Verifier
	Store    store.Store
}

// Authenticate verifies an access token and returns the live identity it
// names. A cryptographically valid token for a deactivated or deleted
// account fails with ErrInactiveIdentity: possession of a token is not
// proof the account still stands.
func (s *AuthzService) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	claims, err := s.Verifier.Verify(token)
	if err != nil {
		if errors.Is(err, jwtx.ErrExpired) {
			return domain.Identity{}, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return domain.Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	ident, err := s.Store.Identities().GetIdentityByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Identity{}, ErrInactiveIdentity
		}
		return domain.Identity{}, fmt.Errorf("load identity: %w", err)
	}
	if !ident.Active {
		return domain.Identity{}, ErrInactiveIdentity
	}

	return ident, nil
}

// AuthorizeRole reports whether the identity's role is one of the allowed
// roles. Matching is exact: roles carry no hierarchy, so admin does not
// implicitly pass a manager-only check.
func (s *AuthzService) AuthorizeRole(ident domain.Identity, allowed ...string) bool {
	return slices.Contains(allowed, ident.Role)
}

// ResolvePermissions flattens the identity's role into its permission
// strings. Tenants resolve to the empty set, as does any role missing from
// the catalog: absence means denial, never error.
func (s *AuthzService) ResolvePermissions(ctx context.Context, ident domain.Identity) ([]string, error) {
	if ident.Kind == domain.KindTenant {
		return nil, nil
	}

	role, err := s.Store.Roles().GetRoleByName(ctx, ident.Role)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load role %q: %w", ident.Role, err)
	}

	return role.Permissions, nil
}

// AuthorizePermission reports whether the identity's resolved permission set
// contains the required permission. Exact string membership, no wildcards.
func (s *AuthzService) AuthorizePermission(ctx context.Context, ident domain.Identity, required string) (bool, error) {
	perms, err := s.ResolvePermissions(ctx, ident)
	if err != nil {
		return false, err
	}
	return slices.Contains(perms, required), nil
}
