package auth

import "time"

// Account type and status values. An account is the unit of tenant isolation.
const (
	AccountTypeOrganization = "organization"
	AccountTypeIndividual   = "individual"
	AccountTypeAdmin        = "admin"

	AccountStatusActive    = "active"
	AccountStatusPending   = "pending"
	AccountStatusSuspended = "suspended"
)

const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// Account represents a tenant: an organization, an individual shipper, or the
// operator's own admin account.
type Account struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User belongs to exactly one account. Its lifetime is bounded by the account's.
type User struct {
	ID           string    `json:"id"`
	AccountID    string    `json:"account_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	RoleID       string    `json:"role_id,omitempty"`
	IsSuperAdmin bool      `json:"is_super_admin"`
	IsOwner      bool      `json:"is_owner"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// OwnerAccountID reports the tenant that owns the user.
func (u *User) OwnerAccountID() string { return u.AccountID }

// Role is an account-owned bundle of permission keys. Set semantics: each key
// appears at most once, and every key must exist in the catalog.
type Role struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"account_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// OwnerAccountID reports the tenant that owns the role.
func (r *Role) OwnerAccountID() string { return r.AccountID }

// AccountUpdate carries optional account field changes.
type AccountUpdate struct {
	Name   *string
	Status *string
}

// UserUpdate carries optional user field changes.
type UserUpdate struct {
	Email    *string
	Password *string
	Status   *string
	RoleID   *string
}

// RoleUpdate carries optional role field changes.
type RoleUpdate struct {
	Name        *string
	Description *string
}
