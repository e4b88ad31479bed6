package auth

// Permission keys used directly by the service.
const (
	PermShipmentsView   = "shipments.view"
	PermShipmentsCreate = "shipments.create"
	PermShipmentsUpdate = "shipments.update"
	PermShipmentsDelete = "shipments.delete"
	PermShipmentsCancel = "shipments.cancel"
	PermShipmentsPrint  = "shipments.print_label"
	PermShipmentsTrack  = "shipments.track"

	PermOrdersView   = "orders.view"
	PermOrdersCreate = "orders.create"
	PermOrdersUpdate = "orders.update"
	PermOrdersDelete = "orders.delete"
	PermOrdersShip   = "orders.ship"

	PermWalletView  = "wallet.view"
	PermWalletTopup = "wallet.topup"

	PermFinancialView   = "financial.view"
	PermFinancialProfit = "financial.profit.view"
	PermFinancialCards  = "financial.cards.view"

	PermUsersView    = "users.view"
	PermUsersCreate  = "users.create"
	PermUsersUpdate  = "users.update"
	PermUsersDelete  = "users.delete"
	PermUsersSuspend = "users.suspend"

	PermRolesView   = "roles.view"
	PermRolesManage = "roles.manage"

	PermReportsView = "reports.view"

	PermSettingsView   = "settings.view"
	PermSettingsUpdate = "settings.update"
)

// CatalogEntry describes one grantable capability.
type CatalogEntry struct {
	Key         string
	Description string
}

// CatalogGroup is a module of related permissions.
type CatalogGroup struct {
	Name        string
	Permissions []CatalogEntry
}

// catalog is the canonical registry. The key space is flat and globally
// unique across groups; tests enforce both properties.
var catalog = []CatalogGroup{
	{
		Name: "shipments",
		Permissions: []CatalogEntry{
			{PermShipmentsView, "View shipments"},
			{PermShipmentsCreate, "Create shipments"},
			{PermShipmentsUpdate, "Update shipments"},
			{PermShipmentsDelete, "Delete draft shipments"},
			{PermShipmentsCancel, "Cancel shipments"},
			{PermShipmentsPrint, "Print shipping labels"},
			{PermShipmentsTrack, "Track shipment progress"},
		},
	},
	{
		Name: "orders",
		Permissions: []CatalogEntry{
			{PermOrdersView, "View orders"},
			{PermOrdersCreate, "Create orders"},
			{PermOrdersUpdate, "Update orders"},
			{PermOrdersDelete, "Delete orders"},
			{PermOrdersShip, "Convert confirmed orders into shipments"},
		},
	},
	{
		Name: "wallet",
		Permissions: []CatalogEntry{
			{PermWalletView, "View wallet and transactions"},
			{PermWalletTopup, "Top up wallet balance"},
		},
	},
	{
		Name: "financial",
		Permissions: []CatalogEntry{
			{PermFinancialView, "View totals, tax, COD and wallet balances"},
			{PermFinancialProfit, "View net cost, retail cost and profit breakdown"},
			{PermFinancialCards, "View unmasked card numbers and IBANs"},
		},
	},
	{
		Name: "users",
		Permissions: []CatalogEntry{
			{PermUsersView, "View account users"},
			{PermUsersCreate, "Invite and create users"},
			{PermUsersUpdate, "Update users"},
			{PermUsersDelete, "Delete users"},
			{PermUsersSuspend, "Suspend users"},
		},
	},
	{
		Name: "roles",
		Permissions: []CatalogEntry{
			{PermRolesView, "View roles"},
			{PermRolesManage, "Create, update and delete roles"},
		},
	},
	{
		Name: "reports",
		Permissions: []CatalogEntry{
			{PermReportsView, "View shipping reports"},
		},
	},
	{
		Name: "settings",
		Permissions: []CatalogEntry{
			{PermSettingsView, "View account settings"},
			{PermSettingsUpdate, "Update account settings"},
		},
	},
}

var catalogKeys = func() map[string]struct{} {
	set := make(map[string]struct{})
	for _, g := range catalog {
		for _, p := range g.Permissions {
			set[p.Key] = struct{}{}
		}
	}
	return set
}()

// AllPermissions returns the canonical registry as group -> key -> description.
func AllPermissions() map[string]map[string]string {
	out := make(map[string]map[string]string, len(catalog))
	for _, g := range catalog {
		entries := make(map[string]string, len(g.Permissions))
		for _, p := range g.Permissions {
			entries[p.Key] = p.Description
		}
		out[g.Name] = entries
	}
	return out
}

// Groups returns module names in catalog definition order.
func Groups() []string {
	names := make([]string, 0, len(catalog))
	for _, g := range catalog {
		names = append(names, g.Name)
	}
	return names
}

// Catalog returns the ordered registry for presentation. Callers receive a
// copy so the canonical registry cannot be mutated.
func Catalog() []CatalogGroup {
	out := make([]CatalogGroup, len(catalog))
	for i, g := range catalog {
		out[i] = CatalogGroup{
			Name:        g.Name,
			Permissions: append([]CatalogEntry(nil), g.Permissions...),
		}
	}
	return out
}

// Keys returns the flattened permission key set.
func Keys() map[string]struct{} {
	out := make(map[string]struct{}, len(catalogKeys))
	for k := range catalogKeys {
		out[k] = struct{}{}
	}
	return out
}

// Exists reports whether key is a catalog permission. This is the sole gate
// before persisting any permission assignment.
func Exists(key string) bool {
	_, ok := catalogKeys[key]
	return ok
}

// RoleTemplate is a named starter bundle used when provisioning a new role.
type RoleTemplate struct {
	DisplayName string   `json:"display_name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

var roleTemplates = map[string]RoleTemplate{
	"admin": {
		DisplayName: "Administrator",
		Description: "Full access to every module",
		Permissions: allKeysOrdered(),
	},
	"viewer": {
		DisplayName: "Viewer",
		Description: "Read-only access",
		Permissions: []string{
			PermShipmentsView, PermShipmentsTrack,
			PermOrdersView,
			PermWalletView,
			PermUsersView, PermRolesView,
			PermReportsView, PermSettingsView,
		},
	},
	"printer": {
		DisplayName: "Label Printer",
		Description: "Minimal access for printing labels",
		Permissions: []string{PermShipmentsView, PermShipmentsPrint},
	},
	"accountant": {
		DisplayName: "Accountant",
		Description: "Financial visibility without profit breakdown",
		Permissions: []string{
			PermShipmentsView, PermOrdersView,
			PermWalletView, PermFinancialView,
			PermReportsView,
		},
	},
}

func allKeysOrdered() []string {
	var keys []string
	for _, g := range catalog {
		for _, p := range g.Permissions {
			keys = append(keys, p.Key)
		}
	}
	return keys
}

// Templates returns the named role templates.
func Templates() map[string]RoleTemplate {
	out := make(map[string]RoleTemplate, len(roleTemplates))
	for name, t := range roleTemplates {
		out[name] = t
	}
	return out
}

// LookupTemplate returns the template for name, if defined.
func LookupTemplate(name string) (RoleTemplate, bool) {
	t, ok := roleTemplates[name]
	return t, ok
}
