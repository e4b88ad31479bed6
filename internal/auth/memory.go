package auth

import (
	"context"
	"sync"
	"time"
)

// InMemoryDirectory implements Directory with in-process concurrency safety.
// Used by tests and by deployments without a database DSN.
type InMemoryDirectory struct {
	mu       sync.RWMutex
	accounts map[string]*Account
	users    map[string]*User
	roles    map[string]*Role
}

// NewInMemoryDirectory creates an empty directory.
func NewInMemoryDirectory() *InMemoryDirectory {
	return &InMemoryDirectory{
		accounts: make(map[string]*Account),
		users:    make(map[string]*User),
		roles:    make(map[string]*Role),
	}
}

var _ Directory = (*InMemoryDirectory)(nil)

func (s *InMemoryDirectory) CreateAccount(ctx context.Context, acc *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[acc.ID]; ok {
		return ErrConflict
	}
	now := time.Now().UTC()
	acc.CreatedAt = now
	acc.UpdatedAt = now
	cp := *acc
	s.accounts[acc.ID] = &cp
	return nil
}

func (s *InMemoryDirectory) GetAccount(ctx context.Context, id string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *acc
	return &cp, nil
}

func (s *InMemoryDirectory) UpdateAccount(ctx context.Context, id string, upd AccountUpdate) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Name != nil {
		acc.Name = *upd.Name
	}
	if upd.Status != nil {
		acc.Status = *upd.Status
	}
	acc.UpdatedAt = time.Now().UTC()
	cp := *acc
	return &cp, nil
}

func (s *InMemoryDirectory) CreateUser(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return ErrConflict
		}
	}
	if _, ok := s.accounts[u.AccountID]; !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *InMemoryDirectory) GetUser(ctx context.Context, accountID, userID string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok || u.AccountID != accountID {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *InMemoryDirectory) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryDirectory) ListUsers(ctx context.Context, accountID string) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*User
	for _, u := range s.users {
		if u.AccountID == accountID {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *InMemoryDirectory) UpdateUser(ctx context.Context, accountID, userID string, upd UserUpdate) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok || u.AccountID != accountID {
		return nil, ErrNotFound
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.Password != nil {
		u.PasswordHash = *upd.Password
	}
	if upd.Status != nil {
		u.Status = *upd.Status
	}
	if upd.RoleID != nil {
		u.RoleID = *upd.RoleID
	}
	u.UpdatedAt = time.Now().UTC()
	cp := *u
	return &cp, nil
}

func (s *InMemoryDirectory) DeleteUser(ctx context.Context, accountID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok || u.AccountID != accountID {
		return ErrNotFound
	}
	delete(s.users, userID)
	return nil
}

func (s *InMemoryDirectory) CreateRole(ctx context.Context, role *Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[role.AccountID]; !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	role.CreatedAt = now
	role.UpdatedAt = now
	cp := *role
	cp.Permissions = append([]string(nil), role.Permissions...)
	s.roles[role.ID] = &cp
	return nil
}

func (s *InMemoryDirectory) GetRole(ctx context.Context, accountID, roleID string) (*Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	role, ok := s.roles[roleID]
	if !ok || role.AccountID != accountID {
		return nil, ErrNotFound
	}
	cp := *role
	cp.Permissions = append([]string(nil), role.Permissions...)
	return &cp, nil
}

func (s *InMemoryDirectory) ListRoles(ctx context.Context, accountID string) ([]*Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Role
	for _, role := range s.roles {
		if role.AccountID == accountID {
			cp := *role
			cp.Permissions = append([]string(nil), role.Permissions...)
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *InMemoryDirectory) SetRolePermissions(ctx context.Context, accountID, roleID string, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	role, ok := s.roles[roleID]
	if !ok || role.AccountID != accountID {
		return ErrNotFound
	}
	role.Permissions = append([]string(nil), keys...)
	role.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryDirectory) DeleteRole(ctx context.Context, accountID, roleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	role, ok := s.roles[roleID]
	if !ok || role.AccountID != accountID {
		return ErrNotFound
	}
	delete(s.roles, roleID)
	return nil
}
