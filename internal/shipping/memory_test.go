package shipping

import (
	"context"
	"errors"
	"strings"
	"testing"

	"freightdesk.org/internal/tenant"
)

type capturePublisher struct {
	events []TrackingEvent
}

func (p *capturePublisher) PublishTracking(ev TrackingEvent) {
	p.events = append(p.events, ev)
}

func tenantCtx(accountID string) context.Context {
	return tenant.WithAccount(context.Background(), accountID)
}

func mustCreateShipment(t *testing.T, s *InMemory, ctx context.Context) Shipment {
	t.Helper()
	sh, err := s.CreateShipment(ctx, ShipmentInput{
		RecipientName: "Jamie Park",
		RecipientCity: "Almaty",
		Currency:      "usd",
		NetCost:       500,
		RetailCost:    900,
	})
	if err != nil {
		t.Fatalf("create shipment: %v", err)
	}
	return sh
}

func TestCreateShipmentDefaults(t *testing.T) {
	s := NewInMemory(nil)
	sh := mustCreateShipment(t, s, tenantCtx("a1"))

	if sh.Status != StatusDraft {
		t.Fatalf("status = %s, want draft", sh.Status)
	}
	if sh.AccountID != "a1" {
		t.Fatalf("account = %s, want a1", sh.AccountID)
	}
	if sh.Currency != "USD" {
		t.Fatalf("currency = %s, want USD", sh.Currency)
	}
	if !strings.HasPrefix(sh.TrackingNumber, "FD") || len(sh.TrackingNumber) != 14 {
		t.Fatalf("unexpected tracking number %q", sh.TrackingNumber)
	}
}

func TestCreateShipmentValidation(t *testing.T) {
	s := NewInMemory(nil)
	ctx := tenantCtx("a1")

	if _, err := s.CreateShipment(ctx, ShipmentInput{Currency: "USD"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing recipient, got %v", err)
	}
	if _, err := s.CreateShipment(ctx, ShipmentInput{RecipientName: "X", Currency: "USD", NetCost: -1}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative cost, got %v", err)
	}
	if _, err := s.CreateShipment(ctx, ShipmentInput{RecipientName: "X", Currency: "USD", AccountID: "a2"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for foreign account, got %v", err)
	}
	if _, err := s.CreateShipment(context.Background(), ShipmentInput{RecipientName: "X", Currency: "USD"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput without tenant, got %v", err)
	}
}

func TestShipmentsAreTenantScoped(t *testing.T) {
	s := NewInMemory(nil)
	sh := mustCreateShipment(t, s, tenantCtx("a1"))

	if _, err := s.GetShipment(tenantCtx("a2"), sh.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign tenant, got %v", err)
	}
	list, err := s.ListShipments(tenantCtx("a2"), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("foreign tenant sees %d shipments", len(list))
	}

	// Unbound context (back office) sees everything.
	all, err := s.ListShipments(context.Background(), 10)
	if err != nil {
		t.Fatalf("list unbound: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("unbound list = %d, want 1", len(all))
	}
}

func TestTransitionShipment(t *testing.T) {
	pub := &capturePublisher{}
	s := NewInMemory(pub)
	ctx := tenantCtx("a1")
	sh := mustCreateShipment(t, s, ctx)

	steps := []ShipmentStatus{StatusPending, StatusProcessing, StatusPickedUp, StatusInTransit, StatusOutForDelivery, StatusDelivered}
	for _, next := range steps {
		var err error
		sh, err = s.TransitionShipment(ctx, sh.ID, next)
		if err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
	}
	if len(pub.events) != len(steps) {
		t.Fatalf("published %d events, want %d", len(pub.events), len(steps))
	}
	if pub.events[len(pub.events)-1].Status != StatusDelivered {
		t.Fatalf("last event status = %s", pub.events[len(pub.events)-1].Status)
	}

	// Delivered is terminal.
	if _, err := s.TransitionShipment(ctx, sh.ID, StatusReturned); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestTransitionRejectsSkippedStates(t *testing.T) {
	s := NewInMemory(nil)
	ctx := tenantCtx("a1")
	sh := mustCreateShipment(t, s, ctx)

	if _, err := s.TransitionShipment(ctx, sh.ID, StatusDelivered); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState skipping to delivered, got %v", err)
	}
}

func TestDeleteShipmentOnlyDrafts(t *testing.T) {
	s := NewInMemory(nil)
	ctx := tenantCtx("a1")
	sh := mustCreateShipment(t, s, ctx)

	if _, err := s.TransitionShipment(ctx, sh.ID, StatusPending); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if err := s.DeleteShipment(ctx, sh.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}

	draft := mustCreateShipment(t, s, ctx)
	if err := s.DeleteShipment(ctx, draft.ID); err != nil {
		t.Fatalf("delete draft: %v", err)
	}
	if _, err := s.GetShipment(ctx, draft.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestUpdateShipmentTerminalState(t *testing.T) {
	s := NewInMemory(nil)
	ctx := tenantCtx("a1")
	sh := mustCreateShipment(t, s, ctx)

	for _, next := range []ShipmentStatus{StatusPending, StatusCancelled} {
		var err error
		sh, err = s.TransitionShipment(ctx, sh.ID, next)
		if err != nil {
			t.Fatalf("transition: %v", err)
		}
	}
	name := "Nobody"
	if _, err := s.UpdateShipment(ctx, sh.ID, ShipmentUpdate{RecipientName: &name}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestShipOrder(t *testing.T) {
	s := NewInMemory(nil)
	ctx := tenantCtx("a1")

	o, err := s.CreateOrder(ctx, OrderInput{Reference: "ORD-7", Currency: "USD", TotalAmount: 4200})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	// Pending orders cannot ship.
	if _, err := s.ShipOrder(ctx, o.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for pending order, got %v", err)
	}

	s.mu.Lock()
	s.orders[o.ID].Status = OrderConfirmed
	s.mu.Unlock()

	sh, err := s.ShipOrder(ctx, o.ID)
	if err != nil {
		t.Fatalf("ship order: %v", err)
	}
	if sh.Status != StatusPending || sh.OrderID != o.ID || sh.RetailCost != 4200 {
		t.Fatalf("unexpected shipment %+v", sh)
	}
	got, err := s.GetOrder(ctx, o.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.Status != OrderFulfilled {
		t.Fatalf("order status = %s, want fulfilled", got.Status)
	}

	// Fulfilled orders cannot ship twice.
	if _, err := s.ShipOrder(ctx, o.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState shipping twice, got %v", err)
	}
}

func TestListOrderShipments(t *testing.T) {
	s := NewInMemory(nil)
	ctx := tenantCtx("a1")

	o, err := s.CreateOrder(ctx, OrderInput{Reference: "ORD-8", Currency: "USD", TotalAmount: 4200})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	s.mu.Lock()
	s.orders[o.ID].Status = OrderConfirmed
	s.mu.Unlock()
	sh, err := s.ShipOrder(ctx, o.ID)
	if err != nil {
		t.Fatalf("ship order: %v", err)
	}
	// A shipment on another order stays out of the listing.
	mustCreateShipment(t, s, ctx)

	out, err := s.ListOrderShipments(ctx, o.ID)
	if err != nil {
		t.Fatalf("list order shipments: %v", err)
	}
	if len(out) != 1 || out[0].ID != sh.ID {
		t.Fatalf("unexpected list %+v", out)
	}

	// A foreign tenant sees neither the order nor its shipments.
	if _, err := s.ListOrderShipments(tenantCtx("a2"), o.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign tenant, got %v", err)
	}
	if _, err := s.ListOrderShipments(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown order, got %v", err)
	}
}

func TestWallet(t *testing.T) {
	s := NewInMemory(nil)
	ctx := tenantCtx("a1")

	w, err := s.Wallet(ctx)
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	if w.Balance != 0 || w.Currency != "USD" {
		t.Fatalf("unexpected wallet %+v", w)
	}

	if _, err := s.TopUpWallet(ctx, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	w, err = s.TopUpWallet(ctx, 1500)
	if err != nil {
		t.Fatalf("top up: %v", err)
	}
	if w.Balance != 1500 {
		t.Fatalf("balance = %d, want 1500", w.Balance)
	}

	// Wallets are per account.
	other, err := s.Wallet(tenantCtx("a2"))
	if err != nil {
		t.Fatalf("wallet a2: %v", err)
	}
	if other.Balance != 0 {
		t.Fatalf("a2 balance = %d, want 0", other.Balance)
	}
}
