package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"freightdesk.org/internal/audit"
	"freightdesk.org/internal/authz"
	"freightdesk.org/internal/shipping"
)

// snapshotOf flattens an entity into a generic map for audit snapshots.
func snapshotOf(v any) map[string]any {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func listLimit(r *http.Request) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			return n
		}
	}
	return 100
}

func (a *API) ListShipments(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if err := shipping.ShipmentPolicy.Authorize(principal, authz.ActionView, nil); err != nil {
		handleDomainError(w, r, err)
		return
	}
	items, err := a.ships.ListShipments(r.Context(), listLimit(r))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeMasked(w, r, http.StatusOK, map[string]any{
		"success":   true,
		"shipments": items,
	})
}

func (a *API) CreateShipment(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if err := shipping.ShipmentPolicy.Authorize(principal, authz.ActionCreate, nil); err != nil {
		handleDomainError(w, r, err)
		return
	}
	var in shipping.ShipmentInput
	if err := decodeJSON(w, r, &in); err != nil {
		return
	}
	s, err := a.ships.CreateShipment(r.Context(), in)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	audit.SetEntity(r.Context(), "shipment", s.ID)
	writeMasked(w, r, http.StatusCreated, map[string]any{
		"success":  true,
		"shipment": s,
	})
}

func (a *API) GetShipment(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	s, err := a.ships.GetShipment(r.Context(), r.PathValue("id"))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if err := shipping.ShipmentPolicy.Authorize(principal, authz.ActionView, &s); err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeMasked(w, r, http.StatusOK, map[string]any{
		"success":  true,
		"shipment": s,
	})
}

func (a *API) UpdateShipment(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	s, err := a.ships.GetShipment(r.Context(), r.PathValue("id"))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if err := shipping.ShipmentPolicy.Authorize(principal, authz.ActionUpdate, &s); err != nil {
		handleDomainError(w, r, err)
		return
	}
	var upd shipping.ShipmentUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		return
	}
	updated, err := a.ships.UpdateShipment(r.Context(), s.ID, upd)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	audit.SetEntity(r.Context(), "shipment", s.ID)
	audit.SetOld(r.Context(), snapshotOf(s))
	writeMasked(w, r, http.StatusOK, map[string]any{
		"success":  true,
		"shipment": updated,
	})
}

func (a *API) DeleteShipment(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	s, err := a.ships.GetShipment(r.Context(), r.PathValue("id"))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if err := shipping.ShipmentPolicy.Authorize(principal, authz.ActionDelete, &s); err != nil {
		handleDomainError(w, r, err)
		return
	}
	if err := a.ships.DeleteShipment(r.Context(), s.ID); err != nil {
		handleDomainError(w, r, err)
		return
	}
	audit.SetEntity(r.Context(), "shipment", s.ID)
	audit.SetOld(r.Context(), snapshotOf(s))
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (a *API) CancelShipment(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	s, err := a.ships.GetShipment(r.Context(), r.PathValue("id"))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if err := shipping.ShipmentPolicy.Authorize(principal, authz.ActionCancel, &s); err != nil {
		handleDomainError(w, r, err)
		return
	}
	updated, err := a.ships.TransitionShipment(r.Context(), s.ID, shipping.StatusCancelled)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	audit.SetEntity(r.Context(), "shipment", s.ID)
	audit.SetOld(r.Context(), snapshotOf(s))
	writeMasked(w, r, http.StatusOK, map[string]any{
		"success":  true,
		"shipment": updated,
	})
}

type transitionRequest struct {
	Status string `json:"status"`
}

func (a *API) TransitionShipment(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	s, err := a.ships.GetShipment(r.Context(), r.PathValue("id"))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if err := shipping.ShipmentPolicy.Authorize(principal, authz.ActionUpdate, &s); err != nil {
		handleDomainError(w, r, err)
		return
	}
	var req transitionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	updated, err := a.ships.TransitionShipment(r.Context(), s.ID, shipping.ShipmentStatus(req.Status))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	audit.SetEntity(r.Context(), "shipment", s.ID)
	audit.SetOld(r.Context(), snapshotOf(s))
	writeMasked(w, r, http.StatusOK, map[string]any{
		"success":  true,
		"shipment": updated,
	})
}

// ShipmentLabel returns the data needed to print a shipping label.
func (a *API) ShipmentLabel(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	s, err := a.ships.GetShipment(r.Context(), r.PathValue("id"))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if err := shipping.ShipmentPolicy.Authorize(principal, authz.ActionPrintLabel, &s); err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeMasked(w, r, http.StatusOK, map[string]any{
		"success": true,
		"label": map[string]any{
			"tracking_number": s.TrackingNumber,
			"recipient_name":  s.RecipientName,
			"recipient_city":  s.RecipientCity,
			"cod_amount":      s.CODAmount,
			"currency":        s.Currency,
		},
	})
}
