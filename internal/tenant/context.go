// Package tenant carries the request-scoped current account binding and the
// query filter that keeps every tenant-owned read and write inside it.
package tenant

import (
	"context"
	"errors"
	"strings"
)

type accountContextKey struct{}

// ErrNoTenant indicates a tenant-scoped operation ran without a bound account.
var ErrNoTenant = errors.New("tenant: no account bound to context")

// ErrForeignAccount indicates a caller tried to write into another tenant.
var ErrForeignAccount = errors.New("tenant: account mismatch")

// WithAccount binds the current account id to the context for the lifetime of
// one request. The binding is per-context, never a process global, so
// concurrent requests from different tenants cannot observe each other.
func WithAccount(ctx context.Context, accountID string) context.Context {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return ctx
	}
	return context.WithValue(ctx, accountContextKey{}, accountID)
}

// AccountID returns the bound account id, if any.
func AccountID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(accountContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Require returns the bound account id or fails closed.
func Require(ctx context.Context) (string, error) {
	id, ok := AccountID(ctx)
	if !ok {
		return "", ErrNoTenant
	}
	return id, nil
}

// OwnerFor resolves the account id to stamp onto a new tenant-owned entity.
// With a tenant bound, the bound id always wins: a client-supplied id is
// accepted only when it matches, so callers cannot write into foreign
// accounts. Without a tenant bound (background jobs) the explicit id is
// trusted as-is.
func OwnerFor(ctx context.Context, explicit string) (string, error) {
	explicit = strings.TrimSpace(explicit)
	bound, ok := AccountID(ctx)
	if !ok {
		if explicit == "" {
			return "", ErrNoTenant
		}
		return explicit, nil
	}
	if explicit != "" && explicit != bound {
		return "", ErrForeignAccount
	}
	return bound, nil
}
