package shipping

import (
	"freightdesk.org/internal/auth"
	"freightdesk.org/internal/authz"
)

// ShipmentPolicy governs shipment actions. Updates stop once the shipment
// reaches a terminal state; hard delete requires draft exactly.
var ShipmentPolicy = authz.Policy{
	Entity: "shipment",
	Permissions: map[authz.Action]string{
		authz.ActionView:       auth.PermShipmentsView,
		authz.ActionCreate:     auth.PermShipmentsCreate,
		authz.ActionUpdate:     auth.PermShipmentsUpdate,
		authz.ActionDelete:     auth.PermShipmentsDelete,
		authz.ActionCancel:     auth.PermShipmentsCancel,
		authz.ActionPrintLabel: auth.PermShipmentsPrint,
		authz.ActionTrack:      auth.PermShipmentsTrack,
	},
	Gates: map[authz.Action]authz.StateGate{
		authz.ActionUpdate: func(res authz.Resource) bool {
			s, ok := res.(*Shipment)
			return ok && !s.Status.Terminal()
		},
		authz.ActionCancel: func(res authz.Resource) bool {
			s, ok := res.(*Shipment)
			return ok && s.Status.Cancellable()
		},
		authz.ActionDelete: func(res authz.Resource) bool {
			s, ok := res.(*Shipment)
			return ok && s.Status.Draft()
		},
	},
}

// OrderPolicy governs order actions. Shipping an order requires it to be
// confirmed; updates stop in terminal states.
var OrderPolicy = authz.Policy{
	Entity: "order",
	Permissions: map[authz.Action]string{
		authz.ActionView:   auth.PermOrdersView,
		authz.ActionCreate: auth.PermOrdersCreate,
		authz.ActionUpdate: auth.PermOrdersUpdate,
		authz.ActionDelete: auth.PermOrdersDelete,
		authz.ActionShip:   auth.PermOrdersShip,
	},
	Gates: map[authz.Action]authz.StateGate{
		authz.ActionUpdate: func(res authz.Resource) bool {
			o, ok := res.(*Order)
			return ok && !o.Status.Terminal()
		},
		authz.ActionShip: func(res authz.Resource) bool {
			o, ok := res.(*Order)
			return ok && o.Status.Shippable()
		},
	},
}

// WalletPolicy governs wallet visibility and top-ups.
var WalletPolicy = authz.Policy{
	Entity: "wallet",
	Permissions: map[authz.Action]string{
		authz.ActionView:  auth.PermWalletView,
		authz.ActionTopup: auth.PermWalletTopup,
	},
}
