package shipping

import (
	"errors"
	"time"
)

// Amounts are represented in minor units (e.g., cents). No floats.

// ShipmentStatus is the shipment lifecycle state.
type ShipmentStatus string

const (
	StatusDraft          ShipmentStatus = "draft"
	StatusPending        ShipmentStatus = "pending"
	StatusProcessing     ShipmentStatus = "processing"
	StatusPickedUp       ShipmentStatus = "picked_up"
	StatusInTransit      ShipmentStatus = "in_transit"
	StatusOutForDelivery ShipmentStatus = "out_for_delivery"
	StatusDelivered      ShipmentStatus = "delivered"
	StatusCancelled      ShipmentStatus = "cancelled"
	StatusReturned       ShipmentStatus = "returned"
)

// Terminal reports whether the shipment reached a final state.
func (s ShipmentStatus) Terminal() bool {
	switch s {
	case StatusDelivered, StatusCancelled, StatusReturned:
		return true
	}
	return false
}

// Cancellable reports whether cancellation is still possible: only before
// the carrier picks the parcel up.
func (s ShipmentStatus) Cancellable() bool {
	switch s {
	case StatusDraft, StatusPending, StatusProcessing:
		return true
	}
	return false
}

// Draft reports the only state that permits hard delete.
func (s ShipmentStatus) Draft() bool { return s == StatusDraft }

var shipmentTransitions = map[ShipmentStatus][]ShipmentStatus{
	StatusDraft:          {StatusPending, StatusCancelled},
	StatusPending:        {StatusProcessing, StatusCancelled},
	StatusProcessing:     {StatusPickedUp, StatusCancelled},
	StatusPickedUp:       {StatusInTransit, StatusReturned},
	StatusInTransit:      {StatusOutForDelivery, StatusReturned},
	StatusOutForDelivery: {StatusDelivered, StatusReturned},
}

// CanTransition reports whether moving to next is a valid lifecycle step.
func (s ShipmentStatus) CanTransition(next ShipmentStatus) bool {
	for _, allowed := range shipmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Shipment is a tenant-owned parcel shipment.
type Shipment struct {
	ID             string         `json:"id"`
	AccountID      string         `json:"account_id"`
	OrderID        string         `json:"order_id,omitempty"`
	TrackingNumber string         `json:"tracking_number"`
	Status         ShipmentStatus `json:"status"`
	RecipientName  string         `json:"recipient_name"`
	RecipientCity  string         `json:"recipient_city"`
	Currency       string         `json:"currency"`
	NetCost        int64          `json:"net_cost"`
	RetailCost     int64          `json:"retail_cost"`
	CODAmount      int64          `json:"cod_amount"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// OwnerAccountID reports the tenant that owns the shipment.
func (s *Shipment) OwnerAccountID() string { return s.AccountID }

// Profit returns the retail/net difference.
func (s *Shipment) Profit() int64 { return s.RetailCost - s.NetCost }

// OrderStatus is the order lifecycle state.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderFulfilled OrderStatus = "fulfilled"
	OrderCancelled OrderStatus = "cancelled"
)

// Shippable reports whether the order can be converted into a shipment.
func (s OrderStatus) Shippable() bool { return s == OrderConfirmed }

// Terminal reports whether the order reached a final state.
func (s OrderStatus) Terminal() bool {
	return s == OrderFulfilled || s == OrderCancelled
}

// Order is a tenant-owned customer order.
type Order struct {
	ID          string      `json:"id"`
	AccountID   string      `json:"account_id"`
	Reference   string      `json:"reference"`
	Status      OrderStatus `json:"status"`
	Currency    string      `json:"currency"`
	TotalAmount int64       `json:"total_amount"`
	TaxAmount   int64       `json:"tax_amount"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// OwnerAccountID reports the tenant that owns the order.
func (o *Order) OwnerAccountID() string { return o.AccountID }

// Wallet holds a tenant's prepaid balance.
type Wallet struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Currency  string    `json:"currency"`
	Balance   int64     `json:"wallet_balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OwnerAccountID reports the tenant that owns the wallet.
func (w *Wallet) OwnerAccountID() string { return w.AccountID }

// TrackingEvent describes one shipment status change for the live stream.
type TrackingEvent struct {
	ShipmentID     string         `json:"shipment_id"`
	AccountID      string         `json:"account_id"`
	TrackingNumber string         `json:"tracking_number"`
	Status         ShipmentStatus `json:"status"`
	Timestamp      time.Time      `json:"timestamp"`
}

var (
	ErrNotFound      = errors.New("shipping: not found")
	ErrInvalidInput  = errors.New("shipping: invalid input")
	ErrInvalidState  = errors.New("shipping: state does not permit this action")
	ErrInvalidAmount = errors.New("shipping: amount must be > 0")
)
