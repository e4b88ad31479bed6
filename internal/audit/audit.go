// Package audit records mutating actions with request correlation and
// sensitive-field redaction.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"freightdesk.org/internal/auth"
	"freightdesk.org/internal/ids"
	"freightdesk.org/internal/obs"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// Entry is one immutable audit record. Application logic never updates or
// deletes entries.
type Entry struct {
	ID         string         `json:"id"`
	AccountID  string         `json:"account_id"`
	UserID     string         `json:"user_id"`
	Action     string         `json:"action"`
	Category   string         `json:"category"`
	EntityType string         `json:"entity_type,omitempty"`
	EntityID   string         `json:"entity_id,omitempty"`
	OldValues  map[string]any `json:"old_values,omitempty"`
	NewValues  map[string]any `json:"new_values,omitempty"`
	IPAddress  string         `json:"ip_address,omitempty"`
	UserAgent  string         `json:"user_agent,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Recorder appends entries to a durable sink.
type Recorder interface {
	Append(ctx context.Context, entry *Entry) error
}

// WithRequestID attaches the request correlation id to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the correlation id, if present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// redactedKeys holds field names whose values are stripped from snapshots
// unconditionally, regardless of the acting user's permissions.
var redactedKeys = map[string]struct{}{
	"password":              {},
	"password_confirmation": {},
	"current_password":      {},
	"token":                 {},
	"access_token":          {},
	"refresh_token":         {},
	"api_key":               {},
	"secret":                {},
	"card_number":           {},
	"cvv":                   {},
	"iban":                  {},
	"authorization":         {},
}

const redactedValue = "[REDACTED]"

// Redact returns a copy of values with sensitive fields replaced, descending
// into nested objects and arrays.
func Redact(values map[string]any) map[string]any {
	if values == nil {
		return nil
	}
	out := make(map[string]any, len(values))
	for k, v := range values {
		if _, ok := redactedKeys[strings.ToLower(k)]; ok {
			out[k] = redactedValue
			continue
		}
		out[k] = redactValue(v)
	}
	return out
}

func redactValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return Redact(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = redactValue(item)
		}
		return out
	default:
		return v
	}
}

// Record finalizes and appends an entry: snapshots are redacted and the
// correlation id and actor are filled from context. A recorder failure never
// aborts the caller's action; it is logged loudly instead.
func Record(ctx context.Context, rec Recorder, entry Entry) {
	if rec == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = ids.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.RequestID == "" {
		entry.RequestID = RequestIDFromContext(ctx)
	}
	if principal, ok := auth.PrincipalFromContext(ctx); ok && principal.User != nil {
		if entry.UserID == "" {
			entry.UserID = principal.User.ID
		}
		if entry.AccountID == "" {
			entry.AccountID = principal.User.AccountID
		}
	}
	entry.OldValues = Redact(entry.OldValues)
	entry.NewValues = Redact(entry.NewValues)

	if err := rec.Append(ctx, &entry); err != nil {
		obs.CountAuditWrite("error")
		obs.LogRequest(map[string]any{
			"ts":         time.Now().UTC().Format(time.RFC3339Nano),
			"level":      "error",
			"msg":        "audit_write_failed",
			"request_id": entry.RequestID,
			"action":     entry.Action,
			"error":      err.Error(),
		})
		return
	}
	obs.CountAuditWrite("ok")
}

// LogRecorder writes entries as JSON lines through the shared logger. It is
// the fallback sink when no database is configured.
type LogRecorder struct{}

func (LogRecorder) Append(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return errors.New("audit: entry is nil")
	}
	data, err := json.Marshal(struct {
		Type string `json:"type"`
		*Entry
	}{Type: "audit", Entry: entry})
	if err != nil {
		return err
	}
	obs.Logger().Println(string(data))
	return nil
}

// LogEvent writes a lightweight audit log line enriched with request and
// actor context, for events that do not mutate a stored entity.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	entry := map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"type":  "audit",
		"event": event,
	}
	if rid := RequestIDFromContext(ctx); rid != "" {
		entry["request_id"] = rid
	}
	if principal, ok := auth.PrincipalFromContext(ctx); ok && principal.User != nil {
		entry["user_id"] = principal.User.ID
		entry["account_id"] = principal.User.AccountID
	}
	if len(fields) > 0 {
		entry["fields"] = Redact(fields)
	} else {
		entry["fields"] = map[string]any{}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	obs.Logger().Println(string(data))
	return nil
}
