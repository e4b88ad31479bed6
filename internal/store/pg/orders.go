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

const orderColumns = `id, account_id, reference, status, currency, total_amount, tax_amount, created_at, updated_at`

// orderShipmentColumns mirrors shipmentColumns with the alias used by the
// order join.
const orderShipmentColumns = `s.id, s.account_id, coalesce(s.order_id, ''), s.tracking_number, s.status, s.recipient_name, s.recipient_city, s.currency, s.net_cost, s.retail_cost, s.cod_amount, s.created_at, s.updated_at`

func scanOrder(row interface{ Scan(...any) error }) (shipping.Order, error) {
	var o shipping.Order
	err := row.Scan(&o.ID, &o.AccountID, &o.Reference, &o.Status, &o.Currency,
		&o.TotalAmount, &o.TaxAmount, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (s *Store) CreateOrder(ctx context.Context, in shipping.OrderInput) (shipping.Order, error) {
	if err := in.Validate(); err != nil {
		return shipping.Order{}, err
	}
	owner, err := tenant.OwnerFor(ctx, in.AccountID)
	if err != nil {
		return shipping.Order{}, fmt.Errorf("%w: %v", shipping.ErrInvalidInput, err)
	}

	row := s.db.QueryRowContext(ctx, `
		insert into orders (id, account_id, reference, status, currency, total_amount, tax_amount)
		values ($1, $2, $3, $4, $5, $6, $7)
		returning `+orderColumns+`
	`, ids.New(), owner, in.Reference, shipping.OrderPending, in.Currency, in.TotalAmount, in.TaxAmount)
	o, err := scanOrder(row)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return shipping.Order{}, shipping.ErrNotFound
		}
		return shipping.Order{}, err
	}
	return o, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (shipping.Order, error) {
	query, args := tenant.Scope(ctx, `
		select `+orderColumns+`
		from orders
		where id = $1
	`, id)
	o, err := scanOrder(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return shipping.Order{}, shipping.ErrNotFound
	}
	if err != nil {
		return shipping.Order{}, err
	}
	return o, nil
}

func (s *Store) ListOrders(ctx context.Context, limit int) ([]shipping.Order, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	query, args := tenant.Scope(ctx, `
		select `+orderColumns+`
		from orders
		order by created_at desc
	`)
	args = append(args, limit)
	query = fmt.Sprintf("%s limit $%d", strings.TrimRight(query, "\n\t "), len(args))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []shipping.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ListOrderShipments returns the shipments cut for one order, newest first.
// The aliased join needs the qualified scope column; an order outside the
// bound tenant reports ErrNotFound before the join runs.
func (s *Store) ListOrderShipments(ctx context.Context, orderID string) ([]shipping.Shipment, error) {
	if _, err := s.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	query, args := tenant.ScopeColumn(ctx, "s.account_id", `
		select `+orderShipmentColumns+`
		from shipments s
		join orders o on o.id = s.order_id
		where s.order_id = $1
		order by s.created_at desc
	`, orderID)
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

// ShipOrder converts a confirmed order into a pending shipment and marks the
// order fulfilled, atomically.
func (s *Store) ShipOrder(ctx context.Context, orderID string) (shipping.Shipment, error) {
	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return shipping.Shipment{}, err
	}
	if !o.Status.Shippable() {
		return shipping.Shipment{}, shipping.ErrInvalidState
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return shipping.Shipment{}, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		update orders
		set status = $1, updated_at = now()
		where id = $2 and account_id = $3 and status = $4
	`, shipping.OrderFulfilled, o.ID, o.AccountID, shipping.OrderConfirmed)
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

	row := tx.QueryRowContext(ctx, `
		insert into shipments (id, account_id, order_id, tracking_number, status, recipient_name, currency, retail_cost)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		returning `+shipmentColumns+`
	`, ids.New(), o.AccountID, o.ID, newTrackingNumber(), shipping.StatusPending, o.Reference, o.Currency, o.TotalAmount)
	sh, err := scanShipment(row)
	if err != nil {
		return shipping.Shipment{}, err
	}
	if err := tx.Commit(); err != nil {
		return shipping.Shipment{}, err
	}
	return sh, nil
}
