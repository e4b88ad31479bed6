package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"freightdesk.org/internal/auth"
	"freightdesk.org/internal/tenant"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/v1/auth/login",
	"/metrics",
	"/healthz",
	"/readyz",
	"/v1/info",
	"/",
}

// withAuth authenticates the bearer token, resolves the principal and binds
// the tenant context. The chain fails closed: no session means 401 before
// any lookup, and a missing or suspended account means 403 before any
// tenant-scoped query runs.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, codeUnauthenticated, err.Error())
			return
		}

		claims, err := auth.ParseAndValidate(token)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, codeUnauthenticated, "invalid token")
			return
		}

		user, err := a.rbac.GetUser(r.Context(), claims.AccountID, claims.Subject)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, codeUnauthenticated, "invalid token")
			return
		}
		if user.Status != auth.UserStatusActive {
			writeError(w, r, http.StatusUnauthorized, codeUnauthenticated, "invalid token")
			return
		}

		principal, err := a.rbac.PrincipalFor(r.Context(), user)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrAccountInvalid):
				writeError(w, r, http.StatusForbidden, codeAccountInvalid, "account missing or suspended")
			default:
				writeError(w, r, http.StatusInternalServerError, codeInternal, "authentication error")
			}
			return
		}

		// Portal gate: admin routes are reserved for admin-type accounts and
		// evaluated before any policy runs.
		if isAdminPath(r.URL.Path) && principal.Account.Type != auth.AccountTypeAdmin {
			writeError(w, r, http.StatusForbidden, codeForbidden, "not authorized")
			return
		}

		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		ctx = auth.ContextWithToken(ctx, token)
		// Super admins stay unbound so scoped queries see every account.
		if !principal.IsSuperAdmin() {
			ctx = tenant.WithAccount(ctx, principal.AccountID())
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requirePrincipal extracts the authenticated principal or writes the
// structured 401.
func requirePrincipal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, codeUnauthenticated, "authentication required")
		return auth.Principal{}, false
	}
	return principal, true
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}

func isAdminPath(path string) bool {
	return strings.HasPrefix(path, "/v1/admin/")
}
