package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/cobaltleaf/doorman/pkg/jwtx"
	"github.com/cobaltleaf/doorman/pkg/slogx"
)

// Authenticator turns a raw bearer token into an authenticated Principal.
// Implementations verify the signature and check the caller is still active
// in the directory.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Principal, error)
}

func AuthnMiddleware(a Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			p, err := a.Authenticate(ctx, raw)
			if err != nil {
				// Expired tokens get a distinct description so clients
				// know to refresh rather than re-authenticate.
				if errors.Is(err, jwtx.ErrExpired) {
					writeBearerError(w, "token expired")
					return
				}
				writeBearerError(w, "token verification failed")
				log.Warn("bearer authentication failed", "err", err)
				return
			}

			// Inject into context for downstream handlers.
			ctx = ContextWithPrincipal(ctx, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
