package finmask

import (
	"reflect"
	"testing"

	"freightdesk.org/internal/auth"
)

func viewer(perms ...string) *auth.Principal {
	pr := auth.NewPrincipal(
		&auth.User{ID: "u1", AccountID: "a1", Status: auth.UserStatusActive},
		&auth.Account{ID: "a1", Status: auth.AccountStatusActive},
		perms,
	)
	return &pr
}

func payload() map[string]any {
	return map[string]any{
		"id":           "s1",
		"net_cost":     int64(500),
		"retail_cost":  int64(900),
		"total_amount": int64(4200),
		"cod_amount":   int64(100),
		"card_number":  "4111111142424242",
		"recipient":    "Jamie Park",
	}
}

func TestMaskCardNumber(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "****"},
		{"12", "**"},
		{"4242", "****"},
		{"424242424242", "********4242"},
		{"********4242", "********4242"},
	}
	for _, tc := range tests {
		if got := MaskCardNumber(tc.in); got != tc.want {
			t.Fatalf("MaskCardNumber(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMaskNoFinancialPermissions(t *testing.T) {
	got := Mask(payload(), viewer(auth.PermShipmentsView))
	for _, key := range []string{"net_cost", "retail_cost", "total_amount", "cod_amount", "card_number"} {
		if got[key] != Placeholder {
			t.Fatalf("%s = %v, want placeholder", key, got[key])
		}
	}
	if got["recipient"] != "Jamie Park" {
		t.Fatalf("non-financial field touched: %v", got["recipient"])
	}
}

func TestMaskFinancialViewTier(t *testing.T) {
	got := Mask(payload(), viewer(auth.PermFinancialView))
	if got["total_amount"] != int64(4200) || got["cod_amount"] != int64(100) {
		t.Fatalf("totals masked despite financial.view: %v", got)
	}
	if got["net_cost"] != Placeholder || got["retail_cost"] != Placeholder {
		t.Fatalf("profit visible without financial.profit.view: %v", got)
	}
	if got["card_number"] != "************4242" {
		t.Fatalf("card = %v, want partial mask", got["card_number"])
	}
}

func TestMaskProfitTier(t *testing.T) {
	got := Mask(payload(), viewer(auth.PermFinancialProfit))
	if got["net_cost"] != int64(500) || got["retail_cost"] != int64(900) {
		t.Fatalf("profit masked despite financial.profit.view: %v", got)
	}
	if got["total_amount"] != Placeholder {
		t.Fatalf("totals visible without financial.view: %v", got["total_amount"])
	}
}

func TestMaskCardsTier(t *testing.T) {
	got := Mask(payload(), viewer(auth.PermFinancialCards))
	if got["card_number"] != "4111111142424242" {
		t.Fatalf("card masked despite financial.cards.view: %v", got["card_number"])
	}
}

func TestMaskOwnerSeesEverything(t *testing.T) {
	pr := auth.NewPrincipal(
		&auth.User{ID: "u1", AccountID: "a1", IsOwner: true, Status: auth.UserStatusActive},
		&auth.Account{ID: "a1", Status: auth.AccountStatusActive},
		nil,
	)
	got := Mask(payload(), &pr)
	if !reflect.DeepEqual(got, payload()) {
		t.Fatalf("owner payload altered: %v", got)
	}
}

func TestMaskNilViewerFailsClosed(t *testing.T) {
	got := Mask(payload(), nil)
	if got["net_cost"] != Placeholder || got["card_number"] != Placeholder {
		t.Fatalf("nil viewer saw data: %v", got)
	}
}

func TestMaskIsIdempotent(t *testing.T) {
	v := viewer(auth.PermFinancialView)
	once := Mask(payload(), v)
	twice := Mask(once, v)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("second pass changed payload:\n once: %v\ntwice: %v", once, twice)
	}
}

func TestMaskDoesNotModifyInput(t *testing.T) {
	in := payload()
	_ = Mask(in, viewer())
	if !reflect.DeepEqual(in, payload()) {
		t.Fatalf("input mutated: %v", in)
	}
}

func TestMaskNestedStructures(t *testing.T) {
	in := map[string]any{
		"shipments": []any{
			map[string]any{"id": "s1", "net_cost": int64(500)},
			map[string]any{"id": "s2", "net_cost": int64(700)},
		},
		"wallet": map[string]any{"wallet_balance": int64(100)},
	}
	got := Mask(in, viewer(auth.PermShipmentsView))
	list := got["shipments"].([]any)
	for _, item := range list {
		m := item.(map[string]any)
		if m["net_cost"] != Placeholder {
			t.Fatalf("nested net_cost leaked: %v", m)
		}
	}
	if got["wallet"].(map[string]any)["wallet_balance"] != Placeholder {
		t.Fatalf("nested wallet_balance leaked")
	}
}
