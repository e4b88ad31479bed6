package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"freightdesk.org/internal/audit"
	"freightdesk.org/internal/auth"
	"freightdesk.org/internal/authz"
	"freightdesk.org/internal/finmask"
	"freightdesk.org/internal/shipping"
	"freightdesk.org/internal/tenant"
)

// Structured error codes shared with API consumers.
const (
	codeUnauthenticated = "ERR_UNAUTHENTICATED"
	codeAccountInvalid  = "ERR_ACCOUNT_INVALID"
	codeForbidden       = "ERR_FORBIDDEN"
	codeNotFound        = "ERR_NOT_FOUND"
	codeValidation      = "ERR_VALIDATION"
	codeConflict        = "ERR_CONFLICT"
	codeRateLimited     = "ERR_RATE_LIMITED"
	codeInternal        = "ERR_INTERNAL"
	codeMethod          = "ERR_METHOD_NOT_ALLOWED"
)

type errorResponse struct {
	Success   bool   `json:"success"`
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Success:   false,
		ErrorCode: errorCode,
		Message:   message,
		RequestID: audit.RequestIDFromContext(r.Context()),
	})
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, codeMethod, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	defer func() { _, _ = io.Copy(io.Discard, r.Body) }()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, codeValidation, "invalid JSON body")
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// writeMasked serializes v, runs the financial masking choke point for the
// requesting principal and writes the result. Every financial-bearing
// response must leave through here.
func writeMasked(w http.ResponseWriter, r *http.Request, code int, v any) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	var viewer *auth.Principal
	if ok {
		viewer = &principal
	}

	data, err := json.Marshal(v)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, codeInternal, "response encoding failed")
		return
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		writeError(w, r, http.StatusInternalServerError, codeInternal, "response encoding failed")
		return
	}
	writeJSON(w, code, finmask.Mask(payload, viewer))
}

// handleDomainError maps service errors onto the structured taxonomy. All
// authorization failures and cross-tenant misses collapse into the same
// generic responses.
func handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, authz.ErrDenied):
		writeError(w, r, http.StatusForbidden, codeForbidden, "not authorized")
	case errors.Is(err, auth.ErrUnauthenticated):
		writeError(w, r, http.StatusUnauthorized, codeUnauthenticated, "authentication required")
	case errors.Is(err, auth.ErrAccountInvalid):
		writeError(w, r, http.StatusForbidden, codeAccountInvalid, "account missing or suspended")
	case errors.Is(err, auth.ErrNotFound), errors.Is(err, shipping.ErrNotFound), errors.Is(err, tenant.ErrNoTenant):
		writeError(w, r, http.StatusNotFound, codeNotFound, "resource not found")
	case errors.Is(err, auth.ErrConflict):
		writeError(w, r, http.StatusConflict, codeConflict, "resource conflict")
	case errors.Is(err, auth.ErrInvalidInput), errors.Is(err, shipping.ErrInvalidInput),
		errors.Is(err, shipping.ErrInvalidAmount), errors.Is(err, tenant.ErrForeignAccount):
		writeError(w, r, http.StatusUnprocessableEntity, codeValidation, err.Error())
	case errors.Is(err, shipping.ErrInvalidState):
		// State conflicts behave like any other denial: no hint which check failed.
		writeError(w, r, http.StatusForbidden, codeForbidden, "not authorized")
	default:
		writeError(w, r, http.StatusInternalServerError, codeInternal, "operation failed")
	}
}
