package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"freightdesk.org/internal/audit"
	"freightdesk.org/internal/auth"
)

const auditBodyLimit = 64 << 10

// AuditTrail records every authenticated mutating request that succeeds.
// The request body is captured up front, redacted by the audit layer and
// stored as the new-values snapshot; handlers contribute entity identity
// and pre-mutation state through the snapshot holder.
func (a *API) AuditTrail(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isMutating(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		if _, ok := auth.PrincipalFromContext(r.Context()); !ok {
			next.ServeHTTP(w, r)
			return
		}

		var newValues map[string]any
		if r.Body != nil {
			raw, err := io.ReadAll(io.LimitReader(r.Body, auditBodyLimit))
			if err == nil {
				r.Body = io.NopCloser(bytes.NewReader(raw))
				if len(raw) > 0 {
					var decoded map[string]any
					if json.Unmarshal(raw, &decoded) == nil {
						newValues = decoded
					}
				}
			}
		}

		ctx, snap := audit.WithSnapshot(r.Context())
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r.WithContext(ctx))

		if sw.code >= http.StatusBadRequest {
			return
		}

		entityType, entityID, old := snap.Drain()
		audit.Record(ctx, a.recorder, audit.Entry{
			Action:     r.Method + " " + r.URL.Path,
			Category:   requestCategory(r.URL.Path),
			EntityType: entityType,
			EntityID:   entityID,
			OldValues:  old,
			NewValues:  newValues,
			IPAddress:  clientIP(r),
			UserAgent:  r.UserAgent(),
		})
	})
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// requestCategory maps a path like /v1/shipments/abc to "shipments".
func requestCategory(path string) string {
	path = strings.TrimPrefix(path, "/v1/")
	if idx := strings.IndexByte(path, '/'); idx >= 0 {
		path = path[:idx]
	}
	if path == "" {
		return "api"
	}
	return path
}
