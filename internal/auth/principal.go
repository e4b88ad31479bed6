package auth

// Principal represents an authenticated user with a resolved permission set.
type Principal struct {
	User        *User
	Account     *Account
	Permissions map[string]struct{}
}

// NewPrincipal constructs a principal with preloaded permissions.
func NewPrincipal(user *User, account *Account, perms []string) Principal {
	set := make(map[string]struct{}, len(perms))
	for _, k := range perms {
		set[k] = struct{}{}
	}
	return Principal{User: user, Account: account, Permissions: set}
}

// HasPermission reports whether the principal holds the permission key.
// Super admins hold every permission implicitly.
func (p Principal) HasPermission(key string) bool {
	if p.IsSuperAdmin() {
		return true
	}
	_, ok := p.Permissions[key]
	return ok
}

// AccountID returns the tenant the principal operates within.
func (p Principal) AccountID() string {
	if p.User == nil {
		return ""
	}
	return p.User.AccountID
}

// IsSuperAdmin reports whether tenant and permission checks are bypassed
// entirely for this principal.
func (p Principal) IsSuperAdmin() bool {
	return p.User != nil && p.User.IsSuperAdmin
}

// IsOwner reports whether the principal owns its account.
func (p Principal) IsOwner() bool {
	return p.User != nil && p.User.IsOwner
}

// PermissionKeys returns the permission set as a sorted-irrelevant slice.
func (p Principal) PermissionKeys() []string {
	out := make([]string, 0, len(p.Permissions))
	for k := range p.Permissions {
		out = append(out, k)
	}
	return out
}
