package http

import (
	"context"
	"errors"

	"github.com/cobaltleaf/doorman/internal/identity/service"
	"github.com/cobaltleaf/doorman/pkg/httpx"
	"github.com/cobaltleaf/doorman/pkg/jwtx"
)

// authzAdapter bridges the authorization engine into the bearer middleware:
// it verifies the token, re-checks the directory, and resolves the caller's
// permissions up front so route guards need no further lookups.
type authzAdapter struct {
	Authz *service.AuthzService
}

func (a *authzAdapter) Authenticate(ctx context.Context, token string) (httpx.Principal, error) {
	ident, err := a.Authz.Authenticate(ctx, token)
	if err != nil {
		// Preserve the expired signal so the middleware can tell clients
		// to refresh instead of re-authenticating.
		if errors.Is(err, service.ErrTokenExpired) {
			return httpx.Principal{}, jwtx.ErrExpired
		}
		return httpx.Principal{}, err
	}

	perms, err := a.Authz.ResolvePermissions(ctx, ident)
	if err != nil {
		return httpx.Principal{}, err
	}

	return httpx.Principal{
		ID:          ident.ID,
		Email:       ident.Email,
		Role:        ident.Role,
		Kind:        string(ident.Kind),
		Permissions: perms,
	}, nil
}
