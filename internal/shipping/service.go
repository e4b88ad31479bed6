package shipping

import (
	"context"
	"strings"
)

// Service defines tenant-scoped shipping operations. Implementations resolve
// the owning account from the request context; lookups outside the bound
// tenant report ErrNotFound, never a distinguishable denial.
type Service interface {
	CreateShipment(ctx context.Context, in ShipmentInput) (Shipment, error)
	GetShipment(ctx context.Context, id string) (Shipment, error)
	ListShipments(ctx context.Context, limit int) ([]Shipment, error)
	UpdateShipment(ctx context.Context, id string, upd ShipmentUpdate) (Shipment, error)
	DeleteShipment(ctx context.Context, id string) error
	TransitionShipment(ctx context.Context, id string, next ShipmentStatus) (Shipment, error)

	CreateOrder(ctx context.Context, in OrderInput) (Order, error)
	GetOrder(ctx context.Context, id string) (Order, error)
	ListOrders(ctx context.Context, limit int) ([]Order, error)
	ListOrderShipments(ctx context.Context, orderID string) ([]Shipment, error)
	ShipOrder(ctx context.Context, orderID string) (Shipment, error)

	Wallet(ctx context.Context) (Wallet, error)
	TopUpWallet(ctx context.Context, amount int64) (Wallet, error)
}

// TrackingPublisher receives shipment status changes for live subscribers.
type TrackingPublisher interface {
	PublishTracking(ev TrackingEvent)
}

// ShipmentInput carries fields for a new shipment. AccountID may be left
// empty; it is stamped from the tenant context.
type ShipmentInput struct {
	AccountID     string `json:"account_id,omitempty"`
	OrderID       string `json:"order_id,omitempty"`
	RecipientName string `json:"recipient_name"`
	RecipientCity string `json:"recipient_city"`
	Currency      string `json:"currency"`
	NetCost       int64  `json:"net_cost"`
	RetailCost    int64  `json:"retail_cost"`
	CODAmount     int64  `json:"cod_amount"`
}

// Validate normalizes and checks the input.
func (in *ShipmentInput) Validate() error {
	in.RecipientName = strings.TrimSpace(in.RecipientName)
	in.RecipientCity = strings.TrimSpace(in.RecipientCity)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.RecipientName == "" {
		return ErrInvalidInput
	}
	if in.Currency == "" || len(in.Currency) > 8 {
		return ErrInvalidInput
	}
	if in.NetCost < 0 || in.RetailCost < 0 || in.CODAmount < 0 {
		return ErrInvalidInput
	}
	return nil
}

// ShipmentUpdate carries optional shipment field changes.
type ShipmentUpdate struct {
	RecipientName *string `json:"recipient_name,omitempty"`
	RecipientCity *string `json:"recipient_city,omitempty"`
	CODAmount     *int64  `json:"cod_amount,omitempty"`
}

// OrderInput carries fields for a new order.
type OrderInput struct {
	AccountID   string `json:"account_id,omitempty"`
	Reference   string `json:"reference"`
	Currency    string `json:"currency"`
	TotalAmount int64  `json:"total_amount"`
	TaxAmount   int64  `json:"tax_amount"`
}

// Validate normalizes and checks the input.
func (in *OrderInput) Validate() error {
	in.Reference = strings.TrimSpace(in.Reference)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Reference == "" {
		return ErrInvalidInput
	}
	if in.Currency == "" || len(in.Currency) > 8 {
		return ErrInvalidInput
	}
	if in.TotalAmount < 0 || in.TaxAmount < 0 {
		return ErrInvalidInput
	}
	return nil
}
