package httpx

import "context"

// Principal is the authenticated caller attached to a request after the
// authentication middleware has run. Permissions are already resolved from
// the caller's role so downstream guards need no further lookups.
type Principal struct {
	ID          string
	Email       string
	Role        string
	Kind        string
	Permissions []string
}

type ctxKey string

const (
	CtxKeyPrincipal ctxKey = "principal"
	CtxKeyRequestID ctxKey = "request_id"
)

// ContextWithPrincipal returns a context carrying the authenticated caller.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, CtxKeyPrincipal, p)
}

// PrincipalFromContext returns the authenticated caller, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(CtxKeyPrincipal).(Principal)
	return p, ok
}
