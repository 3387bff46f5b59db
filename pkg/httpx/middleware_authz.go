package httpx

import (
	"net/http"
	"strings"
)

// RequireRole the caller must hold exactly one of the listed roles. Roles do
// not imply one another: admin does not pass a manager-only guard.
func RequireRole(allowed ...string) Middleware {
	want := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		want[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}

			if _, ok := want[p.Role]; ok {
				next.ServeHTTP(w, r)
				return
			}

			writeInsufficientError(w, "role", allowed...)
		})
	}
}

// RequirePermission the caller's resolved permission set must contain every
// permission listed. Matching is exact string equality, no wildcards.
func RequirePermission(required ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}

			have := make(map[string]struct{}, len(p.Permissions))
			for _, perm := range p.Permissions {
				have[perm] = struct{}{}
			}

			for _, req := range required {
				if _, ok := have[req]; !ok {
					writeInsufficientError(w, "permission", required...)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RFC 6750-style error response for an authenticated but unauthorized caller.
func writeInsufficientError(w http.ResponseWriter, what string, required ...string) {
	w.Header().
		Set("WWW-Authenticate", `Bearer error="insufficient_`+what+`", `+what+`="`+strings.Join(required, " ")+`"`)
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte("insufficient_" + what))
}
