package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cobaltleaf/doorman/internal/identity/service"
	"github.com/cobaltleaf/doorman/pkg/httpx"
	"github.com/cobaltleaf/doorman/pkg/slogx"
)

// decodeJSON reads a JSON request body into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return false
	}
	return true
}

// writeServiceError maps a service failure onto an HTTP response. Login-path
// callers should have already collapsed credential failures to
// ErrInvalidCredentials; this mapping never re-expands them.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "email or password is incorrect")
	case errors.Is(err, service.ErrIdentityExists):
		httpx.WriteError(w, http.StatusConflict, "identity_exists", "an account with this email already exists")
	case errors.Is(err, service.ErrChallengeNotFound):
		httpx.WriteError(w, http.StatusBadRequest, "challenge_not_found", "no active code for this request; ask for a new one")
	case errors.Is(err, service.ErrCodeMismatch):
		httpx.WriteError(w, http.StatusBadRequest, "code_mismatch", "the code is incorrect")
	case errors.Is(err, service.ErrChallengeExpired):
		httpx.WriteError(w, http.StatusBadRequest, "challenge_expired", "the code has expired; ask for a new one")
	case errors.Is(err, service.ErrTooManyAttempts):
		httpx.WriteError(w, http.StatusTooManyRequests, "too_many_attempts", "too many incorrect codes; ask for a new one")
	case errors.Is(err, service.ErrInvalidPurpose):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_purpose", "unknown code purpose")
	case errors.Is(err, service.ErrRefreshNotFound),
		errors.Is(err, service.ErrRefreshRevoked),
		errors.Is(err, service.ErrRefreshExpired):
		// One generic signal for all refresh failures; the audit trail
		// keeps the precise kind.
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_refresh_token", "the refresh token is not usable; sign in again")
	case errors.Is(err, service.ErrRoleExists):
		httpx.WriteError(w, http.StatusConflict, "role_exists", "a role with this name already exists")
	case errors.Is(err, service.ErrRoleNotFound):
		httpx.WriteError(w, http.StatusNotFound, "role_not_found", "no such role")
	case errors.Is(err, service.ErrInactiveIdentity):
		httpx.WriteError(w, http.StatusUnauthorized, "inactive_identity", "this account is not active")
	case errors.Is(err, service.ErrDeliveryFailed):
		httpx.WriteError(w, http.StatusBadGateway, "delivery_failed", "could not deliver the code; try again later")
	default:
		slogx.FromContext(r.Context()).Error("unhandled service error", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "something went wrong")
	}
}
