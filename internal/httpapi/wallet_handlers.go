package httpapi

import (
	"net/http"

	"freightdesk.org/internal/audit"
	"freightdesk.org/internal/authz"
	"freightdesk.org/internal/shipping"
)

func (a *API) GetWallet(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	wal, err := a.ships.Wallet(r.Context())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if err := shipping.WalletPolicy.Authorize(principal, authz.ActionView, &wal); err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeMasked(w, r, http.StatusOK, map[string]any{
		"success": true,
		"wallet":  wal,
	})
}

type topUpRequest struct {
	Amount int64 `json:"amount"`
}

func (a *API) TopUpWallet(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	wal, err := a.ships.Wallet(r.Context())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if err := shipping.WalletPolicy.Authorize(principal, authz.ActionTopup, &wal); err != nil {
		handleDomainError(w, r, err)
		return
	}
	var req topUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	updated, err := a.ships.TopUpWallet(r.Context(), req.Amount)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	audit.SetEntity(r.Context(), "wallet", updated.ID)
	audit.SetOld(r.Context(), snapshotOf(wal))
	writeMasked(w, r, http.StatusOK, map[string]any{
		"success": true,
		"wallet":  updated,
	})
}
