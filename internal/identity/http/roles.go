package http

import (
	"net/http"

	"github.com/cobaltleaf/doorman/internal/identity/domain"
	"github.com/cobaltleaf/doorman/internal/identity/service"
	"github.com/cobaltleaf/doorman/pkg/httpx"
)

// RoleHandler serves the role catalog to callers holding roles:read and
// roles:write.
type RoleHandler struct {
	Roles *service.RolesService
}

type roleResponse struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

func newRoleResponse(role domain.Role) roleResponse {
	perms := role.Permissions
	if perms == nil {
		perms = []string{}
	}
	return roleResponse{Name: role.Name, Permissions: perms}
}

func (h *RoleHandler) List(w http.ResponseWriter, r *http.Request) {
	roles, err := h.Roles.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, newRoleResponse(role))
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"roles": out,
	})
}

type createRoleRequest struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

func (h *RoleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}

	role, err := h.Roles.Create(r.Context(), req.Name, req.Permissions)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, newRoleResponse(role))
}

type updateRolePermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

func (h *RoleHandler) UpdatePermissions(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "role name is required")
		return
	}

	var req updateRolePermissionsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	role, err := h.Roles.UpdatePermissions(r.Context(), name, req.Permissions)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, newRoleResponse(role))
}
