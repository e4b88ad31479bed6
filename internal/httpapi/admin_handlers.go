package httpapi

import (
	"net/http"

	"freightdesk.org/internal/audit"
	"freightdesk.org/internal/auth"
)

// Admin handlers serve the back-office portal. The route prefix is gated on
// account type during authentication; handlers additionally require the
// super-admin flag for account lifecycle changes.

func (a *API) requireSuperAdmin(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return auth.Principal{}, false
	}
	if !principal.IsSuperAdmin() {
		writeError(w, r, http.StatusForbidden, codeForbidden, "not authorized")
		return auth.Principal{}, false
	}
	return principal, true
}

type createAccountRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func (a *API) AdminCreateAccount(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireSuperAdmin(w, r); !ok {
		return
	}
	var req createAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	account, err := a.rbac.CreateAccount(r.Context(), req.Name, req.Type)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	audit.SetEntity(r.Context(), "account", account.ID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"account": account,
	})
}

func (a *API) AdminGetAccount(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireSuperAdmin(w, r); !ok {
		return
	}
	account, err := a.rbac.GetAccount(r.Context(), r.PathValue("id"))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"account": account,
	})
}

type updateAccountRequest struct {
	Name   *string `json:"name,omitempty"`
	Status *string `json:"status,omitempty"`
}

func (a *API) AdminUpdateAccount(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireSuperAdmin(w, r); !ok {
		return
	}
	old, err := a.rbac.GetAccount(r.Context(), r.PathValue("id"))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	var req updateAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	account, err := a.rbac.UpdateAccount(r.Context(), old.ID, auth.AccountUpdate{
		Name:   req.Name,
		Status: req.Status,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	audit.SetEntity(r.Context(), "account", old.ID)
	audit.SetOld(r.Context(), snapshotOf(old))
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"account": account,
	})
}
