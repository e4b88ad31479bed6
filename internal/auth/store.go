package auth

import "context"

// Directory describes persistence operations required by the auth subsystem.
// Methods taking an accountID are tenant-scoped: a lookup outside the given
// account must return ErrNotFound, indistinguishable from a missing row.
type Directory interface {
	CreateAccount(ctx context.Context, acc *Account) error
	GetAccount(ctx context.Context, id string) (*Account, error)
	UpdateAccount(ctx context.Context, id string, upd AccountUpdate) (*Account, error)

	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, accountID, userID string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context, accountID string) ([]*User, error)
	UpdateUser(ctx context.Context, accountID, userID string, upd UserUpdate) (*User, error)
	DeleteUser(ctx context.Context, accountID, userID string) error

	CreateRole(ctx context.Context, role *Role) error
	GetRole(ctx context.Context, accountID, roleID string) (*Role, error)
	ListRoles(ctx context.Context, accountID string) ([]*Role, error)
	SetRolePermissions(ctx context.Context, accountID, roleID string, keys []string) error
	DeleteRole(ctx context.Context, accountID, roleID string) error
}
