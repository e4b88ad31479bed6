package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"freightdesk.org/internal/ids"
	"freightdesk.org/internal/shipping"
	"freightdesk.org/internal/tenant"
)

var _ shipping.Service = (*Store)(nil)

// SetTrackingPublisher enables live tracking events for status changes.
func (s *Store) SetTrackingPublisher(p shipping.TrackingPublisher) {
	s.publisher = p
}

func newTrackingNumber() string {
	id := ids.New()
	return "FD" + id[len(id)-12:]
}

const shipmentColumns = `id, account_id, coalesce(order_id, ''), tracking_number, status, recipient_name, recipient_city, currency, net_cost, retail_cost, cod_amount, created_at, updated_at`

func scanShipment(row interface{ Scan(...any) error }) (shipping.Shipment, error) {
	var sh shipping.Shipment
	err := row.Scan(&sh.ID, &sh.AccountID, &sh.OrderID, &sh.TrackingNumber, &sh.Status,
		&sh.RecipientName, &sh.RecipientCity, &sh.Currency,
		&sh.NetCost, &sh.RetailCost, &sh.CODAmount, &sh.CreatedAt, &sh.UpdatedAt)
	return sh, err
}

func (s *Store) CreateShipment(ctx context.Context, in shipping.ShipmentInput) (shipping.Shipment, error) {
	if err := in.Validate(); err != nil {
		return shipping.Shipment{}, err
	}
	owner, err := tenant.OwnerFor(ctx, in.AccountID)
	if err != nil {
		return shipping.Shipment{}, fmt.Errorf("%w: %v", shipping.ErrInvalidInput, err)
	}

	row := s.db.QueryRowContext(ctx, `
		insert into shipments (id, account_id, order_id, tracking_number, status, recipient_name, recipient_city, currency, net_cost, retail_cost, cod_amount)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		returning `+shipmentColumns+`
	`, ids.New(), owner, nullIfEmpty(in.OrderID), newTrackingNumber(), shipping.StatusDraft,
		in.RecipientName, in.RecipientCity, in.Currency, in.NetCost, in.RetailCost, in.CODAmount)
	sh, err := scanShipment(row)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return shipping.Shipment{}, shipping.ErrNotFound
		}
		return shipping.Shipment{}, err
	}
	return sh, nil
}

func (s *Store) GetShipment(ctx context.Context, id string) (shipping.Shipment, error) {
	query, args := tenant.Scope(ctx, `
		select `+shipmentColumns+`
		from shipments
		where id = $1
	`, id)
	sh, err := scanShipment(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return shipping.Shipment{}, shipping.ErrNotFound
	}
	if err != nil {
		return shipping.Shipment{}, err
	}
	return sh, nil
}

func (s *Store) ListShipments(ctx context.Context, limit int) ([]shipping.Shipment, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	query, args := tenant.Scope(ctx, `
		select `+shipmentColumns+`
		from shipments
		order by created_at desc
	`)
	args = append(args, limit)
	query = fmt.Sprintf("%s limit $%d", strings.TrimRight(query, "\n\t "), len(args))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []shipping.Shipment
	for rows.Next() {
		sh, err := scanShipment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

func (s *Store) UpdateShipment(ctx context.Context, id string, upd shipping.ShipmentUpdate) (shipping.Shipment, error) {
	cur, err := s.GetShipment(ctx, id)
	if err != nil {
		return shipping.Shipment{}, err
	}
	if cur.Status.Terminal() {
		return shipping.Shipment{}, shipping.ErrInvalidState
	}

	var (
		setClauses []string
		args       []any
		idx        = 1
	)
	if upd.RecipientName != nil {
		name := strings.TrimSpace(*upd.RecipientName)
		if name == "" {
			return shipping.Shipment{}, shipping.ErrInvalidInput
		}
		setClauses = append(setClauses, fmt.Sprintf("recipient_name = $%d", idx))
		args = append(args, name)
		idx++
	}
	if upd.RecipientCity != nil {
		setClauses = append(setClauses, fmt.Sprintf("recipient_city = $%d", idx))
		args = append(args, strings.TrimSpace(*upd.RecipientCity))
		idx++
	}
	if upd.CODAmount != nil {
		if *upd.CODAmount < 0 {
			return shipping.Shipment{}, shipping.ErrInvalidInput
		}
		setClauses = append(setClauses, fmt.Sprintf("cod_amount = $%d", idx))
		args = append(args, *upd.CODAmount)
		idx++
	}
	if len(setClauses) == 0 {
		return cur, nil
	}
	setClauses = append(setClauses, "updated_at = now()")
	args = append(args, id)
	query, args := tenant.Scope(ctx, fmt.Sprintf(
		`update shipments set %s where id = $%d`, strings.Join(setClauses, ", "), idx,
	), args...)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return shipping.Shipment{}, err
	}
	return s.GetShipment(ctx, id)
}

func (s *Store) DeleteShipment(ctx context.Context, id string) error {
	cur, err := s.GetShipment(ctx, id)
	if err != nil {
		return err
	}
	if !cur.Status.Draft() {
		return shipping.ErrInvalidState
	}
	query, args := tenant.Scope(ctx, `delete from shipments where id = $1`, id)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return shipping.ErrNotFound
	}
	return nil
}

func (s *Store) TransitionShipment(ctx context.Context, id string, next shipping.ShipmentStatus) (shipping.Shipment, error) {
	cur, err := s.GetShipment(ctx, id)
	if err != nil {
		return shipping.Shipment{}, err
	}
	if !cur.Status.CanTransition(next) {
		return shipping.Shipment{}, shipping.ErrInvalidState
	}

	// The status predicate guards against a concurrent transition.
	query, args := tenant.Scope(ctx, `
		update shipments
		set status = $1, updated_at = now()
		where id = $2 and status = $3
	`, next, id, cur.Status)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return shipping.Shipment{}, err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return shipping.Shipment{}, err
	}
	if aff == 0 {
		return shipping.Shipment{}, shipping.ErrInvalidState
	}

	out, err := s.GetShipment(ctx, id)
	if err != nil {
		return shipping.Shipment{}, err
	}
	if s.publisher != nil {
		s.publisher.PublishTracking(shipping.TrackingEvent{
			ShipmentID:     out.ID,
			AccountID:      out.AccountID,
			TrackingNumber: out.TrackingNumber,
			Status:         out.Status,
			Timestamp:      out.UpdatedAt,
		})
	}
	return out, nil
}
