package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"freightdesk.org/internal/audit"
	"freightdesk.org/internal/auth"
	"freightdesk.org/internal/shipping"
	"freightdesk.org/internal/stream"
)

type recordedAudit struct {
	mu      sync.Mutex
	entries []*audit.Entry
}

func (r *recordedAudit) Append(_ context.Context, e *audit.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func (r *recordedAudit) find(action string) *audit.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.Action == action {
			return e
		}
	}
	return nil
}

type fixture struct {
	t     *testing.T
	ts    *httptest.Server
	rbac  *auth.RBACService
	dir   *auth.InMemoryDirectory
	audit *recordedAudit
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	t.Setenv("FREIGHTDESK_AUTH_SECRET", "httpapi-test-secret")
	auth.ResetSecretForTests()
	t.Cleanup(auth.ResetSecretForTests)

	dir := auth.NewInMemoryDirectory()
	rbac := auth.NewRBACService(dir)
	events := stream.New()
	rec := &recordedAudit{}
	api := New(Options{
		Version:  "test",
		RBAC:     rbac,
		Shipping: shipping.NewInMemory(events),
		Stream:   events,
		Recorder: rec,
	})
	ts := httptest.NewServer(api.Handler())
	t.Cleanup(ts.Close)
	return &fixture{t: t, ts: ts, rbac: rbac, dir: dir, audit: rec}
}

// seedAccount provisions an account with an owner user and returns both.
func (f *fixture) seedAccount(name, email, password string) (*auth.Account, *auth.User) {
	f.t.Helper()
	ctx := context.Background()
	acc, err := f.rbac.CreateAccount(ctx, name, auth.AccountTypeOrganization)
	if err != nil {
		f.t.Fatalf("CreateAccount: %v", err)
	}
	owner, err := f.rbac.CreateUser(ctx, acc.ID, email, password, "", true)
	if err != nil {
		f.t.Fatalf("CreateUser: %v", err)
	}
	return acc, owner
}

// seedMember provisions a non-owner user holding a role built from template.
func (f *fixture) seedMember(accountID, email, password, template string) *auth.User {
	f.t.Helper()
	ctx := context.Background()
	role, err := f.rbac.CreateRole(ctx, accountID, template+" role", "", template)
	if err != nil {
		f.t.Fatalf("CreateRole: %v", err)
	}
	u, err := f.rbac.CreateUser(ctx, accountID, email, password, role.ID, false)
	if err != nil {
		f.t.Fatalf("CreateUser: %v", err)
	}
	return u
}

// seedSuperAdmin provisions a back-office account with a super-admin user,
// the same shape the bootstrap command creates.
func (f *fixture) seedSuperAdmin(email, password string) *auth.Account {
	f.t.Helper()
	ctx := context.Background()
	acc, err := f.rbac.CreateAccount(ctx, "backoffice", auth.AccountTypeAdmin)
	if err != nil {
		f.t.Fatalf("CreateAccount: %v", err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		f.t.Fatalf("HashPassword: %v", err)
	}
	if err := f.dir.CreateUser(ctx, &auth.User{
		ID:           "root-" + acc.ID,
		AccountID:    acc.ID,
		Email:        email,
		PasswordHash: hash,
		IsSuperAdmin: true,
		IsOwner:      true,
		Status:       auth.UserStatusActive,
	}); err != nil {
		f.t.Fatalf("CreateUser: %v", err)
	}
	return acc
}

func (f *fixture) login(email, password string) string {
	f.t.Helper()
	status, body := f.do(http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email": email, "password": password,
	})
	if status != http.StatusOK {
		f.t.Fatalf("login status = %d, body = %v", status, body)
	}
	token, _ := body["access_token"].(string)
	if token == "" {
		f.t.Fatalf("no access token in %v", body)
	}
	return token
}

func (f *fixture) do(method, path, token string, body any) (int, map[string]any) {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			f.t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, f.ts.URL+path, &buf)
	if err != nil {
		f.t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.ts.Client().Do(req)
	if err != nil {
		f.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestLoginAndMe(t *testing.T) {
	f := newFixture(t)
	f.seedAccount("Acme Logistics", "owner@acme.test", "pass-word-1")

	token := f.login("owner@acme.test", "pass-word-1")
	status, body := f.do(http.MethodGet, "/v1/auth/me", token, nil)
	if status != http.StatusOK {
		t.Fatalf("me status = %d", status)
	}
	user, _ := body["user"].(map[string]any)
	if user["email"] != "owner@acme.test" {
		t.Fatalf("unexpected me payload: %v", body)
	}
	if _, leaked := user["password_hash"]; leaked {
		t.Fatal("password hash leaked in response")
	}
}

func TestLoginFailureIsUniform(t *testing.T) {
	f := newFixture(t)
	f.seedAccount("Acme Logistics", "owner@acme.test", "pass-word-1")

	for _, creds := range []map[string]string{
		{"email": "owner@acme.test", "password": "wrong"},
		{"email": "ghost@acme.test", "password": "whatever"},
	} {
		status, body := f.do(http.MethodPost, "/v1/auth/login", "", creds)
		if status != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", status)
		}
		if body["error_code"] != codeUnauthenticated || body["message"] != "invalid credentials" {
			t.Fatalf("unexpected body: %v", body)
		}
	}
}

func TestMalformedBodyRejected(t *testing.T) {
	f := newFixture(t)

	req, _ := http.NewRequest(http.MethodPost, f.ts.URL+"/v1/auth/login", bytes.NewBufferString("{not json"))
	resp, err := f.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error_code"] != codeValidation {
		t.Fatalf("error_code = %v", body["error_code"])
	}
}

func TestUnauthenticatedRequest(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(http.MethodGet, "/v1/shipments", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", status)
	}
	if body["error_code"] != codeUnauthenticated {
		t.Fatalf("error_code = %v", body["error_code"])
	}
	if body["request_id"] == "" {
		t.Fatal("expected request_id in error body")
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	f := newFixture(t)

	req, _ := http.NewRequest(http.MethodGet, f.ts.URL+"/healthz", nil)
	req.Header.Set("X-Request-ID", "caller-supplied-id")
	resp, err := f.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Request-ID"); got != "caller-supplied-id" {
		t.Fatalf("request id = %q", got)
	}

	resp2, err := f.ts.Client().Get(f.ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp2.Body.Close()
	if resp2.Header.Get("X-Request-ID") == "" {
		t.Fatal("expected generated request id")
	}
}

func TestCrossTenantShipmentHidden(t *testing.T) {
	f := newFixture(t)
	f.seedAccount("Acme Logistics", "owner@acme.test", "pass-word-1")
	f.seedAccount("Globex Freight", "owner@globex.test", "pass-word-2")

	acmeToken := f.login("owner@acme.test", "pass-word-1")
	status, body := f.do(http.MethodPost, "/v1/shipments", acmeToken, map[string]any{
		"recipient_name": "Jane Recipient",
		"recipient_city": "Springfield",
		"currency":       "USD",
	})
	if status != http.StatusCreated {
		t.Fatalf("create status = %d, body = %v", status, body)
	}
	shipment, _ := body["shipment"].(map[string]any)
	id, _ := shipment["id"].(string)
	if id == "" {
		t.Fatalf("no shipment id in %v", body)
	}

	globexToken := f.login("owner@globex.test", "pass-word-2")
	status, body = f.do(http.MethodGet, "/v1/shipments/"+id, globexToken, nil)
	if status != http.StatusNotFound {
		t.Fatalf("foreign get status = %d, want 404", status)
	}
	if body["error_code"] != codeNotFound {
		t.Fatalf("error_code = %v", body["error_code"])
	}

	status, body = f.do(http.MethodGet, "/v1/shipments", globexToken, nil)
	if status != http.StatusOK {
		t.Fatalf("list status = %d", status)
	}
	if items, _ := body["shipments"].([]any); len(items) != 0 {
		t.Fatalf("foreign list leaked %d shipments", len(items))
	}
}

func TestOrderShipmentsScopedToTenant(t *testing.T) {
	f := newFixture(t)
	f.seedAccount("Acme Logistics", "owner@acme.test", "pass-word-1")
	f.seedAccount("Globex Freight", "owner@globex.test", "pass-word-2")

	acmeToken := f.login("owner@acme.test", "pass-word-1")
	status, body := f.do(http.MethodPost, "/v1/orders", acmeToken, map[string]any{
		"reference":    "PO-1001",
		"currency":     "USD",
		"total_amount": 12000,
	})
	if status != http.StatusCreated {
		t.Fatalf("create order status = %d, body = %v", status, body)
	}
	order, _ := body["order"].(map[string]any)
	orderID, _ := order["id"].(string)
	if orderID == "" {
		t.Fatalf("no order id in %v", body)
	}

	status, body = f.do(http.MethodPost, "/v1/shipments", acmeToken, map[string]any{
		"order_id":       orderID,
		"recipient_name": "Jane Recipient",
		"currency":       "USD",
	})
	if status != http.StatusCreated {
		t.Fatalf("create shipment status = %d, body = %v", status, body)
	}

	status, body = f.do(http.MethodGet, "/v1/orders/"+orderID+"/shipments", acmeToken, nil)
	if status != http.StatusOK {
		t.Fatalf("list status = %d, body = %v", status, body)
	}
	items, _ := body["shipments"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected one shipment, got %v", body)
	}
	sh, _ := items[0].(map[string]any)
	if sh["order_id"] != orderID {
		t.Fatalf("shipment not linked to order: %v", sh)
	}

	globexToken := f.login("owner@globex.test", "pass-word-2")
	status, body = f.do(http.MethodGet, "/v1/orders/"+orderID+"/shipments", globexToken, nil)
	if status != http.StatusNotFound {
		t.Fatalf("foreign list status = %d, want 404", status)
	}
	if body["error_code"] != codeNotFound {
		t.Fatalf("error_code = %v", body["error_code"])
	}
}

func TestSuspendedAccountForbidden(t *testing.T) {
	f := newFixture(t)
	acc, _ := f.seedAccount("Acme Logistics", "owner@acme.test", "pass-word-1")
	token := f.login("owner@acme.test", "pass-word-1")

	suspended := auth.AccountStatusSuspended
	if _, err := f.rbac.UpdateAccount(context.Background(), acc.ID, auth.AccountUpdate{Status: &suspended}); err != nil {
		t.Fatalf("UpdateAccount: %v", err)
	}

	status, body := f.do(http.MethodGet, "/v1/auth/me", token, nil)
	if status != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", status)
	}
	if body["error_code"] != codeAccountInvalid {
		t.Fatalf("error_code = %v", body["error_code"])
	}
}

func TestFinancialMaskingForViewer(t *testing.T) {
	f := newFixture(t)
	acc, _ := f.seedAccount("Acme Logistics", "owner@acme.test", "pass-word-1")
	f.seedMember(acc.ID, "viewer@acme.test", "pass-word-2", "viewer")

	ownerToken := f.login("owner@acme.test", "pass-word-1")
	status, body := f.do(http.MethodPost, "/v1/shipments", ownerToken, map[string]any{
		"recipient_name": "Jane Recipient",
		"currency":       "USD",
		"net_cost":       500,
		"retail_cost":    900,
		"cod_amount":     900,
	})
	if status != http.StatusCreated {
		t.Fatalf("create status = %d, body = %v", status, body)
	}
	created, _ := body["shipment"].(map[string]any)
	if created["net_cost"] != float64(500) {
		t.Fatalf("owner should see net_cost, got %v", created["net_cost"])
	}
	id, _ := created["id"].(string)

	viewerToken := f.login("viewer@acme.test", "pass-word-2")
	status, body = f.do(http.MethodGet, "/v1/shipments/"+id, viewerToken, nil)
	if status != http.StatusOK {
		t.Fatalf("viewer get status = %d, body = %v", status, body)
	}
	shipment, _ := body["shipment"].(map[string]any)
	if shipment["net_cost"] != "****" || shipment["retail_cost"] != "****" || shipment["cod_amount"] != "****" {
		t.Fatalf("financial fields not masked: %v", shipment)
	}
	if shipment["recipient_name"] != "Jane Recipient" {
		t.Fatalf("non-financial field damaged: %v", shipment)
	}
}

func TestAdminPortalGatedOnAccountType(t *testing.T) {
	f := newFixture(t)
	f.seedAccount("Acme Logistics", "owner@acme.test", "pass-word-1")

	token := f.login("owner@acme.test", "pass-word-1")
	status, body := f.do(http.MethodPost, "/v1/admin/accounts", token, map[string]string{
		"name": "Sneaky", "type": auth.AccountTypeOrganization,
	})
	if status != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", status)
	}
	if body["error_code"] != codeForbidden {
		t.Fatalf("error_code = %v", body["error_code"])
	}
}

func TestAdminPortalCreatesAccounts(t *testing.T) {
	f := newFixture(t)
	f.seedSuperAdmin("root@backoffice.test", "pass-word-1")

	token := f.login("root@backoffice.test", "pass-word-1")
	status, body := f.do(http.MethodPost, "/v1/admin/accounts", token, map[string]string{
		"name": "Globex Freight", "type": auth.AccountTypeOrganization,
	})
	if status != http.StatusCreated {
		t.Fatalf("status = %d, body = %v", status, body)
	}
	account, _ := body["account"].(map[string]any)
	id, _ := account["id"].(string)
	if id == "" {
		t.Fatalf("no account id in %v", body)
	}

	status, body = f.do(http.MethodGet, "/v1/admin/accounts/"+id, token, nil)
	if status != http.StatusOK {
		t.Fatalf("get status = %d", status)
	}
	account, _ = body["account"].(map[string]any)
	if account["name"] != "Globex Freight" {
		t.Fatalf("unexpected account: %v", account)
	}
}

func TestSuperAdminSeesEveryTenant(t *testing.T) {
	f := newFixture(t)
	f.seedAccount("Acme Logistics", "owner@acme.test", "pass-word-1")
	f.seedAccount("Globex Freight", "owner@globex.test", "pass-word-2")
	f.seedSuperAdmin("root@backoffice.test", "pass-word-3")

	acmeToken := f.login("owner@acme.test", "pass-word-1")
	globexToken := f.login("owner@globex.test", "pass-word-2")
	for _, token := range []string{acmeToken, globexToken} {
		status, body := f.do(http.MethodPost, "/v1/shipments", token, map[string]any{
			"recipient_name": "Jane Recipient",
			"currency":       "USD",
		})
		if status != http.StatusCreated {
			t.Fatalf("create status = %d, body = %v", status, body)
		}
	}

	rootToken := f.login("root@backoffice.test", "pass-word-3")
	status, body := f.do(http.MethodGet, "/v1/shipments", rootToken, nil)
	if status != http.StatusOK {
		t.Fatalf("list status = %d", status)
	}
	if items, _ := body["shipments"].([]any); len(items) != 2 {
		t.Fatalf("super admin sees %d shipments, want 2", len(items))
	}
}

func TestShipmentLifecycleOverHTTP(t *testing.T) {
	f := newFixture(t)
	f.seedAccount("Acme Logistics", "owner@acme.test", "pass-word-1")
	token := f.login("owner@acme.test", "pass-word-1")

	status, body := f.do(http.MethodPost, "/v1/shipments", token, map[string]any{
		"recipient_name": "Jane Recipient",
		"recipient_city": "Springfield",
		"currency":       "USD",
		"cod_amount":     900,
	})
	if status != http.StatusCreated {
		t.Fatalf("create status = %d, body = %v", status, body)
	}
	shipment, _ := body["shipment"].(map[string]any)
	id, _ := shipment["id"].(string)

	status, body = f.do(http.MethodPost, "/v1/shipments/"+id+"/transition", token, map[string]string{
		"status": "pending",
	})
	if status != http.StatusOK {
		t.Fatalf("transition status = %d, body = %v", status, body)
	}

	status, body = f.do(http.MethodGet, "/v1/shipments/"+id+"/label", token, nil)
	if status != http.StatusOK {
		t.Fatalf("label status = %d", status)
	}
	label, _ := body["label"].(map[string]any)
	if label["tracking_number"] == "" || label["recipient_name"] != "Jane Recipient" {
		t.Fatalf("unexpected label: %v", label)
	}

	status, body = f.do(http.MethodPost, "/v1/shipments/"+id+"/cancel", token, nil)
	if status != http.StatusOK {
		t.Fatalf("cancel status = %d, body = %v", status, body)
	}
	shipment, _ = body["shipment"].(map[string]any)
	if shipment["status"] != "cancelled" {
		t.Fatalf("status = %v", shipment["status"])
	}

	status, body = f.do(http.MethodPost, "/v1/shipments/"+id+"/transition", token, map[string]string{
		"status": "pending",
	})
	if status != http.StatusForbidden {
		t.Fatalf("terminal transition status = %d, body = %v", status, body)
	}
}

func TestAuditTrailRecordsMutations(t *testing.T) {
	f := newFixture(t)
	acc, owner := f.seedAccount("Acme Logistics", "owner@acme.test", "pass-word-1")
	token := f.login("owner@acme.test", "pass-word-1")

	status, _ := f.do(http.MethodPost, "/v1/shipments", token, map[string]any{
		"recipient_name": "Jane Recipient",
		"currency":       "USD",
	})
	if status != http.StatusCreated {
		t.Fatalf("create status = %d", status)
	}

	// The trail records after the handler unwinds; give it a moment.
	var entry *audit.Entry
	for i := 0; i < 50 && entry == nil; i++ {
		entry = f.audit.find("POST /v1/shipments")
		if entry == nil {
			time.Sleep(10 * time.Millisecond)
		}
	}
	if entry == nil {
		t.Fatal("no audit entry for shipment creation")
	}
	if entry.Category != "shipments" || entry.EntityType != "shipment" || entry.EntityID == "" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.AccountID != acc.ID || entry.UserID != owner.ID {
		t.Fatalf("actor not recorded: %+v", entry)
	}
	if entry.NewValues["recipient_name"] != "Jane Recipient" {
		t.Fatalf("new values not captured: %v", entry.NewValues)
	}
}

func TestRateLimitReturnsStructured429(t *testing.T) {
	t.Setenv("FREIGHTDESK_AUTH_SECRET", "httpapi-test-secret")
	auth.ResetSecretForTests()
	t.Cleanup(auth.ResetSecretForTests)

	events := stream.New()
	api := New(Options{
		Version:    "test",
		RBAC:       auth.NewRBACService(auth.NewInMemoryDirectory()),
		Shipping:   shipping.NewInMemory(events),
		Stream:     events,
		Recorder:   &recordedAudit{},
		RateBurst:  1,
		RatePerSec: 1,
	})
	ts := httptest.NewServer(api.Handler())
	t.Cleanup(ts.Close)

	resp, err := ts.Client().Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first status = %d", resp.StatusCode)
	}

	resp, err = ts.Client().Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode 429 body: %v", err)
	}
	if body["error_code"] != codeRateLimited || body["request_id"] == "" {
		t.Fatalf("unexpected 429 body: %v", body)
	}
}
