package httpapi

import (
	"net/http"

	"freightdesk.org/internal/audit"
	"freightdesk.org/internal/authz"
	"freightdesk.org/internal/shipping"
)

func (a *API) ListOrders(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if err := shipping.OrderPolicy.Authorize(principal, authz.ActionView, nil); err != nil {
		handleDomainError(w, r, err)
		return
	}
	items, err := a.ships.ListOrders(r.Context(), listLimit(r))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeMasked(w, r, http.StatusOK, map[string]any{
		"success": true,
		"orders":  items,
	})
}

func (a *API) CreateOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if err := shipping.OrderPolicy.Authorize(principal, authz.ActionCreate, nil); err != nil {
		handleDomainError(w, r, err)
		return
	}
	var in shipping.OrderInput
	if err := decodeJSON(w, r, &in); err != nil {
		return
	}
	o, err := a.ships.CreateOrder(r.Context(), in)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	audit.SetEntity(r.Context(), "order", o.ID)
	writeMasked(w, r, http.StatusCreated, map[string]any{
		"success": true,
		"order":   o,
	})
}

func (a *API) GetOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	o, err := a.ships.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if err := shipping.OrderPolicy.Authorize(principal, authz.ActionView, &o); err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeMasked(w, r, http.StatusOK, map[string]any{
		"success": true,
		"order":   o,
	})
}

// ListOrderShipments lists the shipments cut for one order.
func (a *API) ListOrderShipments(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	o, err := a.ships.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if err := shipping.OrderPolicy.Authorize(principal, authz.ActionView, &o); err != nil {
		handleDomainError(w, r, err)
		return
	}
	items, err := a.ships.ListOrderShipments(r.Context(), o.ID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeMasked(w, r, http.StatusOK, map[string]any{
		"success":   true,
		"shipments": items,
	})
}

// ShipOrder converts a confirmed order into a pending shipment.
func (a *API) ShipOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	o, err := a.ships.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if err := shipping.OrderPolicy.Authorize(principal, authz.ActionShip, &o); err != nil {
		handleDomainError(w, r, err)
		return
	}
	s, err := a.ships.ShipOrder(r.Context(), o.ID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	audit.SetEntity(r.Context(), "order", o.ID)
	audit.SetOld(r.Context(), snapshotOf(o))
	writeMasked(w, r, http.StatusCreated, map[string]any{
		"success":  true,
		"shipment": s,
	})
}
