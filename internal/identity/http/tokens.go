package http

import (
	"net/http"

	"github.com/cobaltleaf/doorman/internal/identity/domain"
	"github.com/cobaltleaf/doorman/internal/identity/service"
	"github.com/cobaltleaf/doorman/pkg/httpx"
)

// TokenHandler serves refresh and logout.
type TokenHandler struct {
	Tokens   *service.TokenService
	Accounts *service.AccountService
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// tokenResponse is the wire form of a token grant. expires_in crosses the
// wire as integer seconds.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

func newTokenResponse(pair *domain.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    int(pair.ExpiresIn.Seconds()),
	}
}

// Refresh exchanges a refresh token for a fresh access token. The refresh
// token itself is not re-issued; the client keeps using the one it has.
func (h *TokenHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "refresh_token is required")
		return
	}

	access, err := h.Tokens.Rotate(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int(h.Tokens.AccessTokenTTL().Seconds()),
	})
}

// Logout revokes every refresh token of the authenticated caller.
func (h *TokenHandler) Logout(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "authentication required")
		return
	}

	if err := h.Accounts.Logout(r.Context(), p.ID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "logged_out",
	})
}
