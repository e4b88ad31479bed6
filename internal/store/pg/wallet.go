package pg

import (
	"context"
	"database/sql"
	"errors"

	"freightdesk.org/internal/ids"
	"freightdesk.org/internal/shipping"
	"freightdesk.org/internal/tenant"
)

func scanWallet(row interface{ Scan(...any) error }) (shipping.Wallet, error) {
	var w shipping.Wallet
	err := row.Scan(&w.ID, &w.AccountID, &w.Currency, &w.Balance, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}

// Wallet returns the tenant's wallet, creating an empty one on first use.
func (s *Store) Wallet(ctx context.Context) (shipping.Wallet, error) {
	accountID, err := tenant.Require(ctx)
	if err != nil {
		return shipping.Wallet{}, shipping.ErrNotFound
	}
	w, err := scanWallet(s.db.QueryRowContext(ctx, `
		select id, account_id, currency, balance, created_at, updated_at
		from wallets
		where account_id = $1
	`, accountID))
	if errors.Is(err, sql.ErrNoRows) {
		return s.createWallet(ctx, accountID)
	}
	if err != nil {
		return shipping.Wallet{}, err
	}
	return w, nil
}

func (s *Store) createWallet(ctx context.Context, accountID string) (shipping.Wallet, error) {
	w, err := scanWallet(s.db.QueryRowContext(ctx, `
		insert into wallets (id, account_id, currency, balance)
		values ($1, $2, 'USD', 0)
		on conflict (account_id) do update set updated_at = wallets.updated_at
		returning id, account_id, currency, balance, created_at, updated_at
	`, ids.New(), accountID))
	if err != nil {
		return shipping.Wallet{}, err
	}
	return w, nil
}

func (s *Store) TopUpWallet(ctx context.Context, amount int64) (shipping.Wallet, error) {
	if amount <= 0 {
		return shipping.Wallet{}, shipping.ErrInvalidAmount
	}
	accountID, err := tenant.Require(ctx)
	if err != nil {
		return shipping.Wallet{}, shipping.ErrNotFound
	}
	if _, err := s.Wallet(ctx); err != nil {
		return shipping.Wallet{}, err
	}
	w, err := scanWallet(s.db.QueryRowContext(ctx, `
		update wallets
		set balance = balance + $1, updated_at = now()
		where account_id = $2
		returning id, account_id, currency, balance, created_at, updated_at
	`, amount, accountID))
	if errors.Is(err, sql.ErrNoRows) {
		return shipping.Wallet{}, shipping.ErrNotFound
	}
	if err != nil {
		return shipping.Wallet{}, err
	}
	return w, nil
}
