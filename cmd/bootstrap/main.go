// Command bootstrap provisions the back-office account and its first
// super-admin user. Safe to re-run; an existing user is reported, not
// overwritten.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"freightdesk.org/internal/auth"
	"freightdesk.org/internal/config"
	"freightdesk.org/internal/ids"
	"freightdesk.org/internal/store/pg"
)

func main() {
	log.SetFlags(0)
	var (
		dsn         = flag.String("dsn", os.Getenv("FREIGHTDESK_PG_DSN"), "PostgreSQL DSN")
		email       = flag.String("email", "", "Super-admin email")
		password    = flag.String("password", os.Getenv("FREIGHTDESK_BOOTSTRAP_PASSWORD"), "Super-admin password")
		accountName = flag.String("account", "Back Office", "Admin account name")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or FREIGHTDESK_PG_DSN")
	}
	if *email == "" || *password == "" {
		log.Fatal("email and password are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := pg.Open(config.DatabaseConfig{DSN: *dsn})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	if existing, err := store.FindUserByEmail(ctx, *email); err == nil {
		log.Printf("user %s already exists (id %s)", existing.Email, existing.ID)
		return
	} else if !errors.Is(err, auth.ErrNotFound) {
		log.Fatalf("lookup user: %v", err)
	}

	account := &auth.Account{
		ID:     ids.New(),
		Name:   *accountName,
		Type:   auth.AccountTypeAdmin,
		Status: auth.AccountStatusActive,
	}
	if err := store.CreateAccount(ctx, account); err != nil {
		log.Fatalf("create account: %v", err)
	}

	hash, err := auth.HashPassword(*password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	user := &auth.User{
		ID:           ids.New(),
		AccountID:    account.ID,
		Email:        *email,
		PasswordHash: hash,
		IsSuperAdmin: true,
		IsOwner:      true,
		Status:       auth.UserStatusActive,
	}
	if err := store.CreateUser(ctx, user); err != nil {
		log.Fatalf("create user: %v", err)
	}
	log.Printf("created super-admin %s (account %s)", user.Email, account.ID)
}
