package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cobaltleaf/doorman/internal/identity/service"
	"github.com/cobaltleaf/doorman/internal/identity/store"
	"github.com/cobaltleaf/doorman/pkg/httpx"
	"github.com/cobaltleaf/doorman/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers. Handlers are thin
// glue: every decision lives in the services.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store

	AccountService *service.AccountService
	TokenService   *service.TokenService
	AuthzService   *service.AuthzService
	AuditService   *service.AuditService
	RolesService   *service.RolesService
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) ApplyRoutes() {
	r.registerAccounts()
	r.registerTokens()
	r.registerRoles()
	r.registerAudit()
	r.registerSystem()
}

func (r *Router) registerAccounts() {
	h := &AccountHandler{Accounts: r.AccountService}

	// Public credential endpoints carry the strict profile: they are the
	// brute-force surface.
	r.Mux.Handle("POST /v1/register",
		httpx.Chain(http.HandlerFunc(h.BeginRegistration),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/register/verify",
		httpx.Chain(http.HandlerFunc(h.CompleteRegistration),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/register/resend",
		httpx.Chain(http.HandlerFunc(h.ResendCode),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/login",
		httpx.Chain(http.HandlerFunc(h.Login),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/password/forgot",
		httpx.Chain(http.HandlerFunc(h.BeginPasswordReset),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/password/reset",
		httpx.Chain(http.HandlerFunc(h.CompletePasswordReset),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerTokens() {
	h := &TokenHandler{Tokens: r.TokenService, Accounts: r.AccountService}

	r.Mux.Handle("POST /v1/token/refresh",
		httpx.Chain(http.HandlerFunc(h.Refresh),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// Logout needs a live access token so we know whose sessions to kill.
	r.Mux.Handle("POST /v1/logout",
		httpx.Chain(http.HandlerFunc(h.Logout),
			httpx.AuthnMiddleware(r.authenticator()),
			httpx.RateLimitByPrincipal(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerRoles() {
	h := &RoleHandler{Roles: r.RolesService}

	r.Mux.Handle("GET /v1/roles",
		httpx.Chain(http.HandlerFunc(h.List),
			httpx.AuthnMiddleware(r.authenticator()),
			httpx.RequirePermission("roles:read"),
			httpx.RateLimitByPrincipal(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("POST /v1/roles",
		httpx.Chain(http.HandlerFunc(h.Create),
			httpx.AuthnMiddleware(r.authenticator()),
			httpx.RequirePermission("roles:write"),
			httpx.RateLimitByPrincipal(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("PUT /v1/roles/{name}",
		httpx.Chain(http.HandlerFunc(h.UpdatePermissions),
			httpx.AuthnMiddleware(r.authenticator()),
			httpx.RequirePermission("roles:write"),
			httpx.RateLimitByPrincipal(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerAudit() {
	h := &AuditHandler{Audit: r.AuditService}

	r.Mux.Handle("GET /v1/audit",
		httpx.Chain(http.HandlerFunc(h.List),
			httpx.AuthnMiddleware(r.authenticator()),
			httpx.RequirePermission("audit:read"),
			httpx.RateLimitByPrincipal(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}

func (r *Router) authenticator() httpx.Authenticator {
	return &authzAdapter{Authz: r.AuthzService}
}
