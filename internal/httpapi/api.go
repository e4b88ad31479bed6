package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"freightdesk.org/internal/audit"
	"freightdesk.org/internal/auth"
	"freightdesk.org/internal/obs"
	"freightdesk.org/internal/shipping"
	"freightdesk.org/internal/stream"
)

// ReadyProbe reports readiness, typically by pinging the database.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options carries the dependencies and tunables for the HTTP layer.
type Options struct {
	Ready     ReadyProbe
	Version   string
	RBAC      *auth.RBACService
	Shipping  shipping.Service
	Stream    *stream.Stream
	Recorder  audit.Recorder
	AccessTTL time.Duration

	MaxBodyBytes int64
	RatePerSec   int
	RateBurst    int
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	rbac     *auth.RBACService
	ships    shipping.Service
	stream   *stream.Stream
	recorder audit.Recorder

	accessTTL    time.Duration
	maxBodyBytes int64
	ratePerSec   int
	rateBurst    int
}

func New(opts Options) *API {
	a := &API{
		mux:          http.NewServeMux(),
		readyProbe:   opts.Ready,
		version:      opts.Version,
		rbac:         opts.RBAC,
		ships:        opts.Shipping,
		stream:       opts.Stream,
		recorder:     opts.Recorder,
		accessTTL:    opts.AccessTTL,
		maxBodyBytes: opts.MaxBodyBytes,
		ratePerSec:   opts.RatePerSec,
		rateBurst:    opts.RateBurst,
	}
	if a.accessTTL <= 0 {
		a.accessTTL = 15 * time.Minute
	}
	if a.maxBodyBytes <= 0 {
		a.maxBodyBytes = 1 << 20
	}
	if a.ratePerSec <= 0 {
		a.ratePerSec = 50
	}
	if a.rateBurst <= 0 {
		a.rateBurst = 100
	}
	if a.recorder == nil {
		a.recorder = audit.LogRecorder{}
	}
	a.routes()
	return a
}

func (a *API) routes() {
	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// session
	a.mux.HandleFunc("POST /v1/auth/login", a.Login)
	a.mux.HandleFunc("GET /v1/auth/me", a.Me)

	// shipments
	a.mux.HandleFunc("GET /v1/shipments", a.ListShipments)
	a.mux.HandleFunc("POST /v1/shipments", a.CreateShipment)
	a.mux.HandleFunc("GET /v1/shipments/{id}", a.GetShipment)
	a.mux.HandleFunc("PUT /v1/shipments/{id}", a.UpdateShipment)
	a.mux.HandleFunc("DELETE /v1/shipments/{id}", a.DeleteShipment)
	a.mux.HandleFunc("POST /v1/shipments/{id}/cancel", a.CancelShipment)
	a.mux.HandleFunc("POST /v1/shipments/{id}/transition", a.TransitionShipment)
	a.mux.HandleFunc("GET /v1/shipments/{id}/label", a.ShipmentLabel)

	// orders
	a.mux.HandleFunc("GET /v1/orders", a.ListOrders)
	a.mux.HandleFunc("POST /v1/orders", a.CreateOrder)
	a.mux.HandleFunc("GET /v1/orders/{id}", a.GetOrder)
	a.mux.HandleFunc("GET /v1/orders/{id}/shipments", a.ListOrderShipments)
	a.mux.HandleFunc("POST /v1/orders/{id}/ship", a.ShipOrder)

	// wallet
	a.mux.HandleFunc("GET /v1/wallet", a.GetWallet)
	a.mux.HandleFunc("POST /v1/wallet/topup", a.TopUpWallet)

	// users and roles
	a.mux.HandleFunc("GET /v1/users", a.ListUsers)
	a.mux.HandleFunc("POST /v1/users", a.CreateUser)
	a.mux.HandleFunc("GET /v1/users/{id}", a.GetUser)
	a.mux.HandleFunc("PUT /v1/users/{id}", a.UpdateUser)
	a.mux.HandleFunc("DELETE /v1/users/{id}", a.DeleteUser)
	a.mux.HandleFunc("POST /v1/users/{id}/suspend", a.SuspendUser)

	a.mux.HandleFunc("GET /v1/roles", a.ListRoles)
	a.mux.HandleFunc("POST /v1/roles", a.CreateRole)
	a.mux.HandleFunc("GET /v1/roles/{id}", a.GetRole)
	a.mux.HandleFunc("PUT /v1/roles/{id}/permissions", a.SetRolePermissions)
	a.mux.HandleFunc("DELETE /v1/roles/{id}", a.DeleteRole)

	a.mux.HandleFunc("GET /v1/permissions", a.PermissionCatalog)
	a.mux.HandleFunc("GET /v1/permissions/templates", a.PermissionTemplates)

	// admin portal
	a.mux.HandleFunc("POST /v1/admin/accounts", a.AdminCreateAccount)
	a.mux.HandleFunc("GET /v1/admin/accounts/{id}", a.AdminGetAccount)
	a.mux.HandleFunc("PUT /v1/admin/accounts/{id}", a.AdminUpdateAccount)

	// live tracking
	a.mux.HandleFunc("GET /v1/tracking/stream", a.TrackingStream)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
}

// Handler returns the full middleware chain around the route table.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.AuditTrail(h)
	h = a.withAuth(h)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, a.maxBodyBytes)
	h = LoggingJSON(h)
	h = RequestID(h)
	h = CORS(h)
	h = SecurityHeaders(h)
	return obs.Instrument(h)
}
