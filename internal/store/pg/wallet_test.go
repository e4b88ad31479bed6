package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"freightdesk.org/internal/audit"
	"freightdesk.org/internal/shipping"
	"freightdesk.org/internal/tenant"
)

func walletRow(id, accountID string, balance int64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "account_id", "currency", "balance", "created_at", "updated_at"}).
		AddRow(id, accountID, "USD", balance, now, now)
}

func TestWalletCreatedOnFirstUse(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := tenant.WithAccount(context.Background(), "acct-1")

	mock.ExpectQuery("from wallets where account_id = .1").
		WithArgs("acct-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "currency", "balance", "created_at", "updated_at"}))
	mock.ExpectQuery("insert into wallets").
		WithArgs(sqlmock.AnyArg(), "acct-1").
		WillReturnRows(walletRow("w-1", "acct-1", 0))

	w, err := store.Wallet(ctx)
	if err != nil {
		t.Fatalf("Wallet: %v", err)
	}
	if w.AccountID != "acct-1" || w.Balance != 0 {
		t.Fatalf("unexpected wallet: %+v", w)
	}
	expectMet(t, mock)
}

func TestWalletRequiresTenant(t *testing.T) {
	store, _ := newMockStore(t)

	if _, err := store.Wallet(context.Background()); !errors.Is(err, shipping.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestTopUpWallet(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := tenant.WithAccount(context.Background(), "acct-1")

	mock.ExpectQuery("from wallets where account_id = .1").
		WithArgs("acct-1").
		WillReturnRows(walletRow("w-1", "acct-1", 1000))
	mock.ExpectQuery("update wallets set balance = balance").
		WithArgs(int64(500), "acct-1").
		WillReturnRows(walletRow("w-1", "acct-1", 1500))

	w, err := store.TopUpWallet(ctx, 500)
	if err != nil {
		t.Fatalf("TopUpWallet: %v", err)
	}
	if w.Balance != 1500 {
		t.Fatalf("balance = %d", w.Balance)
	}
	expectMet(t, mock)
}

func TestTopUpWalletRejectsNonPositive(t *testing.T) {
	store, _ := newMockStore(t)
	ctx := tenant.WithAccount(context.Background(), "acct-1")

	for _, amount := range []int64{0, -100} {
		if _, err := store.TopUpWallet(ctx, amount); !errors.Is(err, shipping.ErrInvalidAmount) {
			t.Fatalf("amount %d: err = %v, want ErrInvalidAmount", amount, err)
		}
	}
}

func TestAuditAppend(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("insert into audit_log").
		WithArgs("ev-1", sqlmock.AnyArg(), sqlmock.AnyArg(), "POST /v1/shipments", "shipments",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &audit.Entry{
		ID:        "ev-1",
		AccountID: "acct-1",
		UserID:    "u-1",
		Action:    "POST /v1/shipments",
		Category:  "shipments",
		NewValues: map[string]any{"recipient_name": "Jane Recipient"},
		CreatedAt: time.Now(),
	}
	if err := store.Append(context.Background(), entry); err != nil {
		t.Fatalf("Append: %v", err)
	}
	expectMet(t, mock)
}

func TestAuditAppendNilEntry(t *testing.T) {
	store, _ := newMockStore(t)

	if err := store.Append(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil entry")
	}
}
