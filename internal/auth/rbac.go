package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"freightdesk.org/internal/ids"
)

// RBACService provides high level account, user and role operations. All
// permission assignments are validated against the catalog before they reach
// the store.
type RBACService struct {
	store Directory
}

// NewRBACService constructs the service.
func NewRBACService(store Directory) *RBACService {
	return &RBACService{store: store}
}

func (s *RBACService) CreateAccount(ctx context.Context, name, accType string) (*Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: account name is required", ErrInvalidInput)
	}
	accType = strings.TrimSpace(strings.ToLower(accType))
	switch accType {
	case AccountTypeOrganization, AccountTypeIndividual, AccountTypeAdmin:
	case "":
		accType = AccountTypeIndividual
	default:
		return nil, fmt.Errorf("%w: unsupported account type %s", ErrInvalidInput, accType)
	}
	acc := &Account{
		ID:     ids.New(),
		Name:   name,
		Type:   accType,
		Status: AccountStatusActive,
	}
	if err := s.store.CreateAccount(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

func (s *RBACService) GetAccount(ctx context.Context, id string) (*Account, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: account_id is required", ErrInvalidInput)
	}
	return s.store.GetAccount(ctx, id)
}

func (s *RBACService) UpdateAccount(ctx context.Context, id string, upd AccountUpdate) (*Account, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: account_id is required", ErrInvalidInput)
	}
	if upd.Status != nil {
		status := strings.TrimSpace(strings.ToLower(*upd.Status))
		switch status {
		case AccountStatusActive, AccountStatusPending, AccountStatusSuspended:
		default:
			return nil, fmt.Errorf("%w: unsupported account status %s", ErrInvalidInput, status)
		}
		upd.Status = &status
	}
	return s.store.UpdateAccount(ctx, id, upd)
}

// CreateUser provisions a user inside an account. The first user of an
// account should be created with owner set.
func (s *RBACService) CreateUser(ctx context.Context, accountID, email, password, roleID string, owner bool) (*User, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, fmt.Errorf("%w: account_id is required", ErrInvalidInput)
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	password = strings.TrimSpace(password)
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	roleID = strings.TrimSpace(roleID)
	if roleID != "" {
		if _, err := s.store.GetRole(ctx, accountID, roleID); err != nil {
			return nil, err
		}
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &User{
		ID:           ids.New(),
		AccountID:    accountID,
		Email:        email,
		PasswordHash: hash,
		RoleID:       roleID,
		IsOwner:      owner,
		Status:       UserStatusActive,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *RBACService) GetUser(ctx context.Context, accountID, userID string) (*User, error) {
	accountID = strings.TrimSpace(accountID)
	userID = strings.TrimSpace(userID)
	if accountID == "" || userID == "" {
		return nil, fmt.Errorf("%w: account_id and user_id are required", ErrInvalidInput)
	}
	return s.store.GetUser(ctx, accountID, userID)
}

func (s *RBACService) ListUsers(ctx context.Context, accountID string) ([]*User, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, fmt.Errorf("%w: account_id is required", ErrInvalidInput)
	}
	return s.store.ListUsers(ctx, accountID)
}

func (s *RBACService) UpdateUser(ctx context.Context, accountID, userID string, upd UserUpdate) (*User, error) {
	accountID = strings.TrimSpace(accountID)
	userID = strings.TrimSpace(userID)
	if accountID == "" || userID == "" {
		return nil, fmt.Errorf("%w: account_id and user_id are required", ErrInvalidInput)
	}
	if upd.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*upd.Email))
		if email == "" || !strings.Contains(email, "@") {
			return nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
		}
		upd.Email = &email
	}
	if upd.Status != nil {
		status := strings.TrimSpace(strings.ToLower(*upd.Status))
		if status != UserStatusActive && status != UserStatusDisabled {
			return nil, fmt.Errorf("%w: unsupported status %s", ErrInvalidInput, status)
		}
		upd.Status = &status
	}
	if upd.Password != nil {
		pw := strings.TrimSpace(*upd.Password)
		if pw == "" {
			return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
		}
		hash, err := HashPassword(pw)
		if err != nil {
			return nil, err
		}
		upd.Password = &hash
	}
	if upd.RoleID != nil {
		roleID := strings.TrimSpace(*upd.RoleID)
		if roleID != "" {
			if _, err := s.store.GetRole(ctx, accountID, roleID); err != nil {
				return nil, err
			}
		}
		upd.RoleID = &roleID
	}
	return s.store.UpdateUser(ctx, accountID, userID, upd)
}

func (s *RBACService) DeleteUser(ctx context.Context, accountID, userID string) error {
	accountID = strings.TrimSpace(accountID)
	userID = strings.TrimSpace(userID)
	if accountID == "" || userID == "" {
		return fmt.Errorf("%w: account_id and user_id are required", ErrInvalidInput)
	}
	return s.store.DeleteUser(ctx, accountID, userID)
}

// CreateRole provisions a role. When template is non-empty the role starts
// with the template's permission bundle.
func (s *RBACService) CreateRole(ctx context.Context, accountID, name, description, template string) (*Role, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, fmt.Errorf("%w: account_id is required", ErrInvalidInput)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: role name is required", ErrInvalidInput)
	}
	var perms []string
	if template = strings.TrimSpace(template); template != "" {
		t, ok := LookupTemplate(template)
		if !ok {
			return nil, fmt.Errorf("%w: unknown role template %s", ErrInvalidInput, template)
		}
		perms = append(perms, t.Permissions...)
	}
	role := &Role{
		ID:          ids.New(),
		AccountID:   accountID,
		Name:        name,
		Description: strings.TrimSpace(description),
		Permissions: perms,
	}
	if err := s.store.CreateRole(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

func (s *RBACService) GetRole(ctx context.Context, accountID, roleID string) (*Role, error) {
	accountID = strings.TrimSpace(accountID)
	roleID = strings.TrimSpace(roleID)
	if accountID == "" || roleID == "" {
		return nil, fmt.Errorf("%w: account_id and role_id are required", ErrInvalidInput)
	}
	return s.store.GetRole(ctx, accountID, roleID)
}

func (s *RBACService) ListRoles(ctx context.Context, accountID string) ([]*Role, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, fmt.Errorf("%w: account_id is required", ErrInvalidInput)
	}
	return s.store.ListRoles(ctx, accountID)
}

// SetRolePermissions replaces a role's permission set. Every key must exist
// in the catalog; an unknown key rejects the whole assignment.
func (s *RBACService) SetRolePermissions(ctx context.Context, accountID, roleID string, keys []string) error {
	accountID = strings.TrimSpace(accountID)
	roleID = strings.TrimSpace(roleID)
	if accountID == "" || roleID == "" {
		return fmt.Errorf("%w: account_id and role_id are required", ErrInvalidInput)
	}
	deduped := dedupeKeys(keys)
	for _, k := range deduped {
		if !Exists(k) {
			return fmt.Errorf("%w: unknown permission key %q", ErrInvalidInput, k)
		}
	}
	return s.store.SetRolePermissions(ctx, accountID, roleID, deduped)
}

func (s *RBACService) DeleteRole(ctx context.Context, accountID, roleID string) error {
	accountID = strings.TrimSpace(accountID)
	roleID = strings.TrimSpace(roleID)
	if accountID == "" || roleID == "" {
		return fmt.Errorf("%w: account_id and role_id are required", ErrInvalidInput)
	}
	return s.store.DeleteRole(ctx, accountID, roleID)
}

// Authenticate verifies credentials and returns the matching active user.
func (s *RBACService) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || strings.TrimSpace(password) == "" {
		return nil, ErrUnauthenticated
	}
	u, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	if u.Status != UserStatusActive {
		return nil, ErrUnauthenticated
	}
	if err := VerifyPassword(u.PasswordHash, password); err != nil {
		return nil, ErrUnauthenticated
	}
	return u, nil
}

// PrincipalFor resolves a user's account and effective permission set. A
// missing or suspended account fails closed with ErrAccountInvalid before
// any tenant-scoped lookup can run.
func (s *RBACService) PrincipalFor(ctx context.Context, u *User) (Principal, error) {
	if u == nil {
		return Principal{}, ErrUnauthenticated
	}
	if strings.TrimSpace(u.AccountID) == "" {
		return Principal{}, ErrAccountInvalid
	}
	acc, err := s.store.GetAccount(ctx, u.AccountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrAccountInvalid
		}
		return Principal{}, err
	}
	if acc.Status == AccountStatusSuspended {
		return Principal{}, ErrAccountInvalid
	}
	var perms []string
	switch {
	case u.IsOwner:
		// Owners hold every catalog permission regardless of role so a
		// freshly provisioned account can act before any role exists.
		perms = allKeysOrdered()
	case u.RoleID != "":
		role, err := s.store.GetRole(ctx, u.AccountID, u.RoleID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return Principal{}, err
		}
		if role != nil {
			perms = role.Permissions
		}
	}
	return NewPrincipal(u, acc, perms), nil
}

func dedupeKeys(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := set[v]; ok {
			continue
		}
		set[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
