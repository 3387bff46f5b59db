package http

import (
	"net/http"
	"strconv"

	"github.com/cobaltleaf/doorman/internal/identity/service"
	"github.com/cobaltleaf/doorman/pkg/httpx"
)

// AuditHandler exposes the audit trail to callers holding audit:read.
type AuditHandler struct {
	Audit *service.AuditService
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email query parameter is required")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	events, err := h.Audit.Recent(r.Context(), email, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"events": events,
	})
}
