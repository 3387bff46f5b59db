package httpx_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cobaltleaf/doorman/pkg/httpx"
	"github.com/cobaltleaf/doorman/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

type fakeAuthenticator struct {
	principal httpx.Principal
	err       error
}

func (f fakeAuthenticator) Authenticate(_ context.Context, _ string) (httpx.Principal, error) {
	return f.principal, f.err
}

func okHandlerRecordingPrincipal(got *httpx.Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := httpx.PrincipalFromContext(r.Context()); ok {
			*got = p
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestChain(t *testing.T) {
	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}),
		mw("outer"), mw("inner"),
	)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestAuthnMiddleware(t *testing.T) {
	principal := httpx.Principal{
		ID:          "01J3ZKTEST",
		Email:       "alice@example.com",
		Role:        "user",
		Kind:        "user",
		Permissions: []string{"profile:read"},
	}

	t.Run("valid token attaches principal", func(t *testing.T) {
		var got httpx.Principal
		h := httpx.AuthnMiddleware(fakeAuthenticator{principal: principal})(okHandlerRecordingPrincipal(&got))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer sometoken")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, principal, got)
	})

	t.Run("missing header rejected", func(t *testing.T) {
		h := httpx.AuthnMiddleware(fakeAuthenticator{principal: principal})(okHandlerRecordingPrincipal(&httpx.Principal{}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
	})

	t.Run("expired token gets distinct description", func(t *testing.T) {
		h := httpx.AuthnMiddleware(fakeAuthenticator{err: jwtx.ErrExpired})(okHandlerRecordingPrincipal(&httpx.Principal{}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer sometoken")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "token expired")
	})

	t.Run("invalid token rejected", func(t *testing.T) {
		h := httpx.AuthnMiddleware(fakeAuthenticator{err: jwtx.ErrInvalidSig})(okHandlerRecordingPrincipal(&httpx.Principal{}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer sometoken")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "token verification failed")
	})
}

func withPrincipal(p httpx.Principal) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(httpx.ContextWithPrincipal(r.Context(), p)))
		})
	}
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("matching role passes", func(t *testing.T) {
		h := httpx.Chain(ok, withPrincipal(httpx.Principal{Role: "admin"}), httpx.RequireRole("admin"))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("roles do not imply one another", func(t *testing.T) {
		h := httpx.Chain(ok, withPrincipal(httpx.Principal{Role: "admin"}), httpx.RequireRole("manager"))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("any of several roles passes", func(t *testing.T) {
		h := httpx.Chain(ok, withPrincipal(httpx.Principal{Role: "manager"}), httpx.RequireRole("admin", "manager"))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unauthenticated gets 401", func(t *testing.T) {
		h := httpx.Chain(ok, httpx.RequireRole("admin"))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequirePermission(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("exact permission passes", func(t *testing.T) {
		p := httpx.Principal{Permissions: []string{"users:read", "users:write"}}
		h := httpx.Chain(ok, withPrincipal(p), httpx.RequirePermission("users:read"))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("no wildcard matching", func(t *testing.T) {
		p := httpx.Principal{Permissions: []string{"users:*"}}
		h := httpx.Chain(ok, withPrincipal(p), httpx.RequirePermission("users:read"))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("all required permissions must be present", func(t *testing.T) {
		p := httpx.Principal{Permissions: []string{"users:read"}}
		h := httpx.Chain(ok, withPrincipal(p), httpx.RequirePermission("users:read", "users:write"))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("empty permission set denies", func(t *testing.T) {
		h := httpx.Chain(ok, withPrincipal(httpx.Principal{}), httpx.RequirePermission("users:read"))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusForbidden, rec.Code)
	})
}
