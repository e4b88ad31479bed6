package httpapi

import (
	"net/http"

	"freightdesk.org/internal/audit"
	"freightdesk.org/internal/auth"
	"freightdesk.org/internal/authz"
)

func (a *API) ListUsers(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if err := authz.UserPolicy.Authorize(principal, authz.ActionView, nil); err != nil {
		handleDomainError(w, r, err)
		return
	}
	users, err := a.rbac.ListUsers(r.Context(), principal.AccountID())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"users":   users,
	})
}

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	RoleID   string `json:"role_id"`
}

func (a *API) CreateUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if err := authz.UserPolicy.Authorize(principal, authz.ActionCreate, nil); err != nil {
		handleDomainError(w, r, err)
		return
	}
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	user, err := a.rbac.CreateUser(r.Context(), principal.AccountID(), req.Email, req.Password, req.RoleID, false)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	audit.SetEntity(r.Context(), "user", user.ID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"user":    user,
	})
}

func (a *API) GetUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	user, err := a.rbac.GetUser(r.Context(), principal.AccountID(), r.PathValue("id"))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if err := authz.UserPolicy.Authorize(principal, authz.ActionView, user); err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    user,
	})
}

type updateUserRequest struct {
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	Status   *string `json:"status,omitempty"`
	RoleID   *string `json:"role_id,omitempty"`
}

func (a *API) UpdateUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	target, err := a.rbac.GetUser(r.Context(), principal.AccountID(), r.PathValue("id"))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if err := authz.UserPolicy.Authorize(principal, authz.ActionUpdate, target); err != nil {
		handleDomainError(w, r, err)
		return
	}
	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	user, err := a.rbac.UpdateUser(r.Context(), principal.AccountID(), target.ID, auth.UserUpdate{
		Email:    req.Email,
		Password: req.Password,
		Status:   req.Status,
		RoleID:   req.RoleID,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	audit.SetEntity(r.Context(), "user", target.ID)
	audit.SetOld(r.Context(), snapshotOf(target))
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    user,
	})
}

func (a *API) DeleteUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	target, err := a.rbac.GetUser(r.Context(), principal.AccountID(), r.PathValue("id"))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if err := authz.UserPolicy.Authorize(principal, authz.ActionDelete, target); err != nil {
		handleDomainError(w, r, err)
		return
	}
	if err := a.rbac.DeleteUser(r.Context(), principal.AccountID(), target.ID); err != nil {
		handleDomainError(w, r, err)
		return
	}
	audit.SetEntity(r.Context(), "user", target.ID)
	audit.SetOld(r.Context(), snapshotOf(target))
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (a *API) SuspendUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	target, err := a.rbac.GetUser(r.Context(), principal.AccountID(), r.PathValue("id"))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if err := authz.UserPolicy.Authorize(principal, authz.ActionSuspend, target); err != nil {
		handleDomainError(w, r, err)
		return
	}
	disabled := auth.UserStatusDisabled
	user, err := a.rbac.UpdateUser(r.Context(), principal.AccountID(), target.ID, auth.UserUpdate{Status: &disabled})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	audit.SetEntity(r.Context(), "user", target.ID)
	audit.SetOld(r.Context(), snapshotOf(target))
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    user,
	})
}

func (a *API) ListRoles(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if err := authz.RolePolicy.Authorize(principal, authz.ActionView, nil); err != nil {
		handleDomainError(w, r, err)
		return
	}
	roles, err := a.rbac.ListRoles(r.Context(), principal.AccountID())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"roles":   roles,
	})
}

type createRoleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Template    string `json:"template,omitempty"`
}

func (a *API) CreateRole(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if err := authz.RolePolicy.Authorize(principal, authz.ActionManage, nil); err != nil {
		handleDomainError(w, r, err)
		return
	}
	var req createRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	role, err := a.rbac.CreateRole(r.Context(), principal.AccountID(), req.Name, req.Description, req.Template)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	audit.SetEntity(r.Context(), "role", role.ID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"role":    role,
	})
}

func (a *API) GetRole(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	role, err := a.rbac.GetRole(r.Context(), principal.AccountID(), r.PathValue("id"))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if err := authz.RolePolicy.Authorize(principal, authz.ActionView, role); err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"role":    role,
	})
}

type setPermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

func (a *API) SetRolePermissions(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	role, err := a.rbac.GetRole(r.Context(), principal.AccountID(), r.PathValue("id"))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if err := authz.RolePolicy.Authorize(principal, authz.ActionManage, role); err != nil {
		handleDomainError(w, r, err)
		return
	}
	var req setPermissionsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	if err := a.rbac.SetRolePermissions(r.Context(), principal.AccountID(), role.ID, req.Permissions); err != nil {
		handleDomainError(w, r, err)
		return
	}
	updated, err := a.rbac.GetRole(r.Context(), principal.AccountID(), role.ID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	audit.SetEntity(r.Context(), "role", role.ID)
	audit.SetOld(r.Context(), snapshotOf(role))
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"role":    updated,
	})
}

func (a *API) DeleteRole(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	role, err := a.rbac.GetRole(r.Context(), principal.AccountID(), r.PathValue("id"))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if err := authz.RolePolicy.Authorize(principal, authz.ActionManage, role); err != nil {
		handleDomainError(w, r, err)
		return
	}
	if err := a.rbac.DeleteRole(r.Context(), principal.AccountID(), role.ID); err != nil {
		handleDomainError(w, r, err)
		return
	}
	audit.SetEntity(r.Context(), "role", role.ID)
	audit.SetOld(r.Context(), snapshotOf(role))
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
