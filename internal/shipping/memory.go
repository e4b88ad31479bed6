package shipping

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"freightdesk.org/internal/ids"
	"freightdesk.org/internal/tenant"
)

// InMemory implements Service with in-process concurrency safety. Used by
// tests and by deployments without a database DSN.
type InMemory struct {
	mu        sync.RWMutex
	shipments map[string]*Shipment
	orders    map[string]*Order
	wallets   map[string]*Wallet // account_id -> wallet
	publisher TrackingPublisher
}

// NewInMemory creates an empty store. publisher may be nil.
func NewInMemory(publisher TrackingPublisher) *InMemory {
	return &InMemory{
		shipments: make(map[string]*Shipment),
		orders:    make(map[string]*Order),
		wallets:   make(map[string]*Wallet),
		publisher: publisher,
	}
}

var _ Service = (*InMemory)(nil)

func newTrackingNumber() string {
	id := ids.New()
	return "FD" + id[len(id)-12:]
}

// visible applies the account scope: with a tenant bound, rows owned by
// another account are treated as missing.
func visible(ctx context.Context, ownerID string) bool {
	bound, ok := tenant.AccountID(ctx)
	if !ok {
		return true
	}
	return bound == ownerID
}

func (s *InMemory) CreateShipment(ctx context.Context, in ShipmentInput) (Shipment, error) {
	if err := in.Validate(); err != nil {
		return Shipment{}, err
	}
	owner, err := tenant.OwnerFor(ctx, in.AccountID)
	if err != nil {
		return Shipment{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	sh := &Shipment{
		ID:             ids.New(),
		AccountID:      owner,
		OrderID:        strings.TrimSpace(in.OrderID),
		TrackingNumber: newTrackingNumber(),
		Status:         StatusDraft,
		RecipientName:  in.RecipientName,
		RecipientCity:  in.RecipientCity,
		Currency:       in.Currency,
		NetCost:        in.NetCost,
		RetailCost:     in.RetailCost,
		CODAmount:      in.CODAmount,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.shipments[sh.ID] = sh
	return *sh, nil
}

func (s *InMemory) GetShipment(ctx context.Context, id string) (Shipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sh, ok := s.shipments[id]
	if !ok || !visible(ctx, sh.AccountID) {
		return Shipment{}, ErrNotFound
	}
	return *sh, nil
}

func (s *InMemory) ListShipments(ctx context.Context, limit int) ([]Shipment, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Shipment
	for _, sh := range s.shipments {
		if !visible(ctx, sh.AccountID) {
			continue
		}
		out = append(out, *sh)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *InMemory) UpdateShipment(ctx context.Context, id string, upd ShipmentUpdate) (Shipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.shipments[id]
	if !ok || !visible(ctx, sh.AccountID) {
		return Shipment{}, ErrNotFound
	}
	if sh.Status.Terminal() {
		return Shipment{}, ErrInvalidState
	}
	if upd.RecipientName != nil {
		name := strings.TrimSpace(*upd.RecipientName)
		if name == "" {
			return Shipment{}, ErrInvalidInput
		}
		sh.RecipientName = name
	}
	if upd.RecipientCity != nil {
		sh.RecipientCity = strings.TrimSpace(*upd.RecipientCity)
	}
	if upd.CODAmount != nil {
		if *upd.CODAmount < 0 {
			return Shipment{}, ErrInvalidInput
		}
		sh.CODAmount = *upd.CODAmount
	}
	sh.UpdatedAt = time.Now().UTC()
	return *sh, nil
}

func (s *InMemory) DeleteShipment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.shipments[id]
	if !ok || !visible(ctx, sh.AccountID) {
		return ErrNotFound
	}
	if !sh.Status.Draft() {
		return ErrInvalidState
	}
	delete(s.shipments, id)
	return nil
}

func (s *InMemory) TransitionShipment(ctx context.Context, id string, next ShipmentStatus) (Shipment, error) {
	s.mu.Lock()
	sh, ok := s.shipments[id]
	if !ok || !visible(ctx, sh.AccountID) {
		s.mu.Unlock()
		return Shipment{}, ErrNotFound
	}
	if !sh.Status.CanTransition(next) {
		s.mu.Unlock()
		return Shipment{}, ErrInvalidState
	}
	sh.Status = next
	sh.UpdatedAt = time.Now().UTC()
	out := *sh
	s.mu.Unlock()

	if s.publisher != nil {
		s.publisher.PublishTracking(TrackingEvent{
			ShipmentID:     out.ID,
			AccountID:      out.AccountID,
			TrackingNumber: out.TrackingNumber,
			Status:         out.Status,
			Timestamp:      out.UpdatedAt,
		})
	}
	return out, nil
}

func (s *InMemory) CreateOrder(ctx context.Context, in OrderInput) (Order, error) {
	if err := in.Validate(); err != nil {
		return Order{}, err
	}
	owner, err := tenant.OwnerFor(ctx, in.AccountID)
	if err != nil {
		return Order{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	o := &Order{
		ID:          ids.New(),
		AccountID:   owner,
		Reference:   in.Reference,
		Status:      OrderPending,
		Currency:    in.Currency,
		TotalAmount: in.TotalAmount,
		TaxAmount:   in.TaxAmount,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.orders[o.ID] = o
	return *o, nil
}

func (s *InMemory) GetOrder(ctx context.Context, id string) (Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok || !visible(ctx, o.AccountID) {
		return Order{}, ErrNotFound
	}
	return *o, nil
}

func (s *InMemory) ListOrders(ctx context.Context, limit int) ([]Order, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Order
	for _, o := range s.orders {
		if !visible(ctx, o.AccountID) {
			continue
		}
		out = append(out, *o)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ListOrderShipments returns the shipments created for one order. The order
// itself must be visible to the bound tenant.
func (s *InMemory) ListOrderShipments(ctx context.Context, orderID string) ([]Shipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orderID]
	if !ok || !visible(ctx, o.AccountID) {
		return nil, ErrNotFound
	}
	var out []Shipment
	for _, sh := range s.shipments {
		if sh.OrderID != orderID || !visible(ctx, sh.AccountID) {
			continue
		}
		out = append(out, *sh)
	}
	return out, nil
}

// ShipOrder converts a confirmed order into a pending shipment and marks the
// order fulfilled.
func (s *InMemory) ShipOrder(ctx context.Context, orderID string) (Shipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok || !visible(ctx, o.AccountID) {
		return Shipment{}, ErrNotFound
	}
	if !o.Status.Shippable() {
		return Shipment{}, ErrInvalidState
	}

	now := time.Now().UTC()
	sh := &Shipment{
		ID:             ids.New(),
		AccountID:      o.AccountID,
		OrderID:        o.ID,
		TrackingNumber: newTrackingNumber(),
		Status:         StatusPending,
		RecipientName:  o.Reference,
		Currency:       o.Currency,
		RetailCost:     o.TotalAmount,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.shipments[sh.ID] = sh

	o.Status = OrderFulfilled
	o.UpdatedAt = now
	return *sh, nil
}

func (s *InMemory) Wallet(ctx context.Context) (Wallet, error) {
	accountID, err := tenant.Require(ctx)
	if err != nil {
		return Wallet{}, ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.walletLocked(accountID), nil
}

func (s *InMemory) TopUpWallet(ctx context.Context, amount int64) (Wallet, error) {
	if amount <= 0 {
		return Wallet{}, ErrInvalidAmount
	}
	accountID, err := tenant.Require(ctx)
	if err != nil {
		return Wallet{}, ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.walletLocked(accountID)
	w.Balance += amount
	w.UpdatedAt = time.Now().UTC()
	return *w, nil
}

func (s *InMemory) walletLocked(accountID string) *Wallet {
	w, ok := s.wallets[accountID]
	if !ok {
		now := time.Now().UTC()
		w = &Wallet{
			ID:        ids.New(),
			AccountID: accountID,
			Currency:  "USD",
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.wallets[accountID] = w
	}
	return w
}
