package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"loandesk/internal/audit"
	roledomain "loandesk/internal/role/domain"
	roleservice "loandesk/internal/role/service"
)

type rolePayload struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

func roleToPayload(role *roledomain.Role) rolePayload {
	p := rolePayload{ID: role.ID, Name: role.Name, Permissions: []string{}}
	for _, k := range role.Permissions.Keys() {
		p.Permissions = append(p.Permissions, string(k))
	}
	return p
}

func (s *Server) handleListRoles(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w, r)
		return
	}
	roles, err := s.deps.Roles.ListRoles(r.Context(), p.Identity.CompanyID, r.URL.Query().Get("search"))
	if err != nil {
		writeServerError(w, err)
		return
	}
	out := make([]rolePayload, 0, len(roles))
	for _, role := range roles {
		out = append(out, roleToPayload(role))
	}
	writeJSON(w, http.StatusOK, map[string]any{"roles": out})
}

func (s *Server) handlePermissionCatalog(w http.ResponseWriter, r *http.Request) {
	keys := roledomain.Catalog()
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, string(k))
	}
	writeJSON(w, http.StatusOK, map[string]any{"permissions": out})
}

type setPermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

func (s *Server) handleSetPermissions(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w, r)
		return
	}
	var req setPermissionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	newSet, err := roledomain.ParseSet(req.Permissions)
	if err != nil {
		// The parse error already aggregates every unknown key.
		writeBadRequest(w, err.Error())
		return
	}

	targetRoleID := chi.URLParam(r, "roleID")
	err = s.deps.Roles.SetPermissions(r.Context(), p.Identity.CompanyID, p.Identity.RoleID, targetRoleID, newSet)
	if err != nil {
		switch {
		case errors.Is(err, roleservice.ErrUnknownRole):
			writeJSON(w, http.StatusNotFound, errorBody{Error: "role not found"})
		case errors.Is(err, roleservice.ErrForbidden):
			writeForbidden(w)
		default:
			writeServerError(w, err)
		}
		return
	}

	s.deps.Audit.LogEvent(r.Context(), p.Identity.CompanyID, p.Identity.ID,
		audit.ActionPermissionsUpdate, audit.ResourceRole, targetRoleID)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
