package http

import (
	"net/http"

	"github.com/cobaltleaf/doorman/internal/identity/domain"
	"github.com/cobaltleaf/doorman/internal/identity/service"
	"github.com/cobaltleaf/doorman/pkg/httpx"
)

// AccountHandler serves the registration, login, and password-recovery
// endpoints.
type AccountHandler struct {
	Accounts *service.AccountService
}

type beginRegistrationRequest struct {
	Email string `json:"email"`
}

func (h *AccountHandler) BeginRegistration(w http.ResponseWriter, r *http.Request) {
	var req beginRegistrationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email is required")
		return
	}

	if err := h.Accounts.BeginRegistration(r.Context(), req.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusAccepted, map[string]string{
		"status": "code_sent",
	})
}

type completeRegistrationRequest struct {
	Email    string `json:"email"`
	Code     string `json:"code"`
	Password string `json:"password"`
	Kind     string `json:"kind,omitempty"` // "user" (default) or "tenant"
}

func (h *AccountHandler) CompleteRegistration(w http.ResponseWriter, r *http.Request) {
	var req completeRegistrationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Code == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email, code, and password are required")
		return
	}

	pair, err := h.Accounts.CompleteRegistration(r.Context(), req.Email, req.Code, req.Password, domain.Kind(req.Kind))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, newTokenResponse(pair))
}

type resendCodeRequest struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
}

func (h *AccountHandler) ResendCode(w http.ResponseWriter, r *http.Request) {
	var req resendCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email is required")
		return
	}
	purpose := domain.Purpose(req.Purpose)
	if req.Purpose == "" {
		purpose = domain.PurposeRegistration
	}

	if err := h.Accounts.ResendCode(r.Context(), req.Email, purpose); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusAccepted, map[string]string{
		"status": "code_sent",
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	pair, err := h.Accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, newTokenResponse(pair))
}

type beginPasswordResetRequest struct {
	Email string `json:"email"`
}

func (h *AccountHandler) BeginPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req beginPasswordResetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email is required")
		return
	}

	if err := h.Accounts.BeginPasswordReset(r.Context(), req.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}

	// Unknown emails get the same answer as known ones.
	httpx.WriteJSON(w, http.StatusAccepted, map[string]string{
		"status": "code_sent",
	})
}

type completePasswordResetRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

func (h *AccountHandler) CompletePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req completePasswordResetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Code == "" || req.NewPassword == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email, code, and new_password are required")
		return
	}

	if err := h.Accounts.CompletePasswordReset(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "password_reset",
	})
}
