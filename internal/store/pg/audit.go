package pg

import (
	"context"
	"encoding/json"
	"errors"

	"freightdesk.org/internal/audit"
)

var _ audit.Recorder = (*Store)(nil)

// Append inserts one audit entry. The audit_log table is append-only; no
// update or delete statements exist anywhere in this package.
func (s *Store) Append(ctx context.Context, entry *audit.Entry) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	if entry == nil {
		return errors.New("audit entry is nil")
	}
	oldJSON, err := json.Marshal(entry.OldValues)
	if err != nil {
		return err
	}
	newJSON, err := json.Marshal(entry.NewValues)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		insert into audit_log (id, account_id, user_id, action, category, entity_type, entity_id, old_values, new_values, ip_address, user_agent, request_id, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, entry.ID, nullIfEmpty(entry.AccountID), nullIfEmpty(entry.UserID), entry.Action, entry.Category,
		nullIfEmpty(entry.EntityType), nullIfEmpty(entry.EntityID), oldJSON, newJSON,
		nullIfEmpty(entry.IPAddress), nullIfEmpty(entry.UserAgent), nullIfEmpty(entry.RequestID), entry.CreatedAt)
	return err
}
