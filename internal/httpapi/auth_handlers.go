package httpapi

import (
	"net/http"
	"time"

	"freightdesk.org/internal/audit"
	"freightdesk.org/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Success     bool      `json:"success"`
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Login exchanges credentials for a bearer token. Every failure mode reports
// the same 401 so callers cannot probe for existing emails.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	user, err := a.rbac.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		_ = audit.LogEvent(r.Context(), "login_failed", map[string]any{
			"email": req.Email,
			"ip":    clientIP(r),
		})
		writeError(w, r, http.StatusUnauthorized, codeUnauthenticated, "invalid credentials")
		return
	}
	if _, err := a.rbac.PrincipalFor(r.Context(), user); err != nil {
		writeError(w, r, http.StatusForbidden, codeAccountInvalid, "account missing or suspended")
		return
	}

	expiresAt := time.Now().Add(a.accessTTL)
	token, err := auth.GenerateToken(user.ID, user.AccountID, a.accessTTL)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, codeInternal, "token generation failed")
		return
	}

	_ = audit.LogEvent(r.Context(), "login", map[string]any{
		"user_id":    user.ID,
		"account_id": user.AccountID,
		"ip":         clientIP(r),
	})
	writeJSON(w, http.StatusOK, tokenResponse{
		Success:     true,
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt.UTC(),
	})
}

// Me returns the authenticated user, account and effective permission keys.
func (a *API) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	writeMasked(w, r, http.StatusOK, map[string]any{
		"success":     true,
		"user":        principal.User,
		"account":     principal.Account,
		"permissions": principal.PermissionKeys(),
	})
}
