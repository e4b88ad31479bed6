package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"freightdesk.org/internal/authz"
	"freightdesk.org/internal/shipping"
)

// TrackingStream serves shipment status changes as server-sent events.
// Subscriptions are scoped to the caller's account; super admins receive
// every tenant's events.
func (a *API) TrackingStream(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if err := shipping.ShipmentPolicy.Authorize(principal, authz.ActionTrack, nil); err != nil {
		handleDomainError(w, r, err)
		return
	}
	if a.stream == nil {
		writeError(w, r, http.StatusServiceUnavailable, codeInternal, "tracking stream unavailable")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, codeInternal, "streaming unsupported")
		return
	}

	accountID := principal.AccountID()
	if principal.IsSuperAdmin() {
		accountID = ""
	}
	events := a.stream.Subscribe(r.Context(), accountID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: tracking\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
