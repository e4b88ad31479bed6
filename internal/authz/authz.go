// Package authz evaluates whether a principal may perform an action on a
// tenant-owned resource. One evaluator serves every entity type; entities
// contribute their own state predicates.
package authz

import (
	"errors"

	"freightdesk.org/internal/auth"
)

// ErrDenied is the uniform authorization failure. Callers never learn which
// check failed beyond the generic denial.
var ErrDenied = errors.New("authz: not authorized")

// Action identifies an operation on an entity type.
type Action string

const (
	ActionView       Action = "view"
	ActionCreate     Action = "create"
	ActionUpdate     Action = "update"
	ActionDelete     Action = "delete"
	ActionCancel     Action = "cancel"
	ActionShip       Action = "ship"
	ActionPrintLabel Action = "print_label"
	ActionTrack      Action = "track"
	ActionSuspend    Action = "suspend"
	ActionTopup      Action = "topup"
	ActionManage     Action = "manage"
)

// Resource is any tenant-owned entity.
type Resource interface {
	OwnerAccountID() string
}

// StateGate reports whether the resource's current state permits the action.
type StateGate func(res Resource) bool

// Check is an entity-specific rule evaluated after the permission check,
// e.g. user self-protection.
type Check func(pr auth.Principal, res Resource) bool

// Policy binds an entity type's actions to permission keys, state gates and
// extra checks.
type Policy struct {
	Entity      string
	Permissions map[Action]string
	Gates       map[Action]StateGate
	Checks      map[Action]Check
}

// Authorize runs the fixed evaluation order: authentication presence,
// super-admin bypass, tenant ownership, permission key, entity-specific
// checks, entity-state gate. It short-circuits on the first failure and
// reports every failure as ErrDenied.
func (p Policy) Authorize(pr auth.Principal, action Action, res Resource) error {
	if pr.User == nil {
		return ErrDenied
	}
	if pr.IsSuperAdmin() {
		return nil
	}
	if res != nil && res.OwnerAccountID() != pr.AccountID() {
		return ErrDenied
	}
	perm, ok := p.Permissions[action]
	if !ok {
		// Unknown action fails closed.
		return ErrDenied
	}
	if !pr.HasPermission(perm) {
		return ErrDenied
	}
	if check, ok := p.Checks[action]; ok && !check(pr, res) {
		return ErrDenied
	}
	if gate, ok := p.Gates[action]; ok {
		if res == nil || !gate(res) {
			return ErrDenied
		}
	}
	return nil
}

// Can is a boolean convenience wrapper around Authorize.
func (p Policy) Can(pr auth.Principal, action Action, res Resource) bool {
	return p.Authorize(pr, action, res) == nil
}
