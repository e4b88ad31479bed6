// Package finmask is the single choke point for financial fields leaving the
// service. It always returns a payload; on any doubt it returns the fully
// masked form.
package finmask

import (
	"strings"

	"freightdesk.org/internal/auth"
)

// Placeholder replaces financial values the viewer may not see.
const Placeholder = "****"

const maskChar = "*"

// Field groups, evaluated most-specific first. The key space is flat JSON
// field names as emitted by the entity types.
var (
	profitFields = map[string]struct{}{
		"net_cost":    {},
		"retail_cost": {},
		"profit":      {},
		"margin":      {},
	}
	totalsFields = map[string]struct{}{
		"total_amount":   {},
		"subtotal":       {},
		"tax_amount":     {},
		"cod_amount":     {},
		"wallet_balance": {},
	}
	cardFields = map[string]struct{}{
		"card_number": {},
		"iban":        {},
	}
)

// Mask redacts financial fields in payload according to the viewer's
// permission set. The input map is never modified. A nil viewer, an
// unauthenticated viewer or any internal fault produces the fully masked
// result; Mask never fails upward.
func Mask(payload map[string]any, viewer *auth.Principal) (out map[string]any) {
	defer func() {
		if recover() != nil {
			out = maskAll(payload)
		}
	}()
	if payload == nil {
		return nil
	}
	if viewer == nil || viewer.User == nil {
		return maskAll(payload)
	}
	if viewer.IsSuperAdmin() || viewer.IsOwner() {
		return cloneValue(payload).(map[string]any)
	}

	canProfit := viewer.HasPermission(auth.PermFinancialProfit)
	canTotals := viewer.HasPermission(auth.PermFinancialView)
	canCards := viewer.HasPermission(auth.PermFinancialCards)

	return maskMap(payload, canProfit, canTotals, canCards)
}

func maskMap(payload map[string]any, canProfit, canTotals, canCards bool) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		key := strings.ToLower(k)
		switch {
		case isField(profitFields, key):
			if canProfit {
				out[k] = cloneValue(v)
			} else {
				out[k] = Placeholder
			}
		case isField(totalsFields, key):
			if canTotals {
				out[k] = cloneValue(v)
			} else {
				out[k] = Placeholder
			}
		case isField(cardFields, key):
			switch {
			case canCards:
				out[k] = cloneValue(v)
			case canTotals || canProfit:
				out[k] = MaskCardNumber(asString(v))
			default:
				out[k] = Placeholder
			}
		default:
			out[k] = maskNested(v, canProfit, canTotals, canCards)
		}
	}
	return out
}

func maskNested(v any, canProfit, canTotals, canCards bool) any {
	switch t := v.(type) {
	case map[string]any:
		return maskMap(t, canProfit, canTotals, canCards)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = maskNested(item, canProfit, canTotals, canCards)
		}
		return out
	default:
		return v
	}
}

func maskAll(payload map[string]any) map[string]any {
	if payload == nil {
		return nil
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		key := strings.ToLower(k)
		if isField(profitFields, key) || isField(totalsFields, key) || isField(cardFields, key) {
			out[k] = Placeholder
			continue
		}
		switch t := v.(type) {
		case map[string]any:
			out[k] = maskAll(t)
		case []any:
			items := make([]any, len(t))
			for i, item := range t {
				if m, ok := item.(map[string]any); ok {
					items[i] = maskAll(m)
				} else {
					items[i] = item
				}
			}
			out[k] = items
		default:
			out[k] = v
		}
	}
	return out
}

// MaskCardNumber masks a card or IBAN string. Inputs of four characters or
// fewer are masked entirely; longer inputs reveal only the last four, with
// the prefix replaced by the mask character. Applying it twice yields the
// same result.
func MaskCardNumber(raw string) string {
	raw = strings.TrimSpace(raw)
	n := len(raw)
	if n == 0 {
		return Placeholder
	}
	if n <= 4 {
		return strings.Repeat(maskChar, n)
	}
	return strings.Repeat(maskChar, n-4) + raw[n-4:]
}

func isField(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}

func asString(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
