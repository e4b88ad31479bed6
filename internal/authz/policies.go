package authz

import "freightdesk.org/internal/auth"

// UserPolicy governs user management inside an account. A user may never
// update, delete or suspend themself through this path, and a super-admin
// target cannot be deleted by a non-bypassing actor.
var UserPolicy = Policy{
	Entity: "user",
	Permissions: map[Action]string{
		ActionView:    auth.PermUsersView,
		ActionCreate:  auth.PermUsersCreate,
		ActionUpdate:  auth.PermUsersUpdate,
		ActionDelete:  auth.PermUsersDelete,
		ActionSuspend: auth.PermUsersSuspend,
	},
	Checks: map[Action]Check{
		ActionUpdate:  notSelf,
		ActionSuspend: notSelf,
		ActionDelete: func(pr auth.Principal, res Resource) bool {
			target, ok := res.(*auth.User)
			if !ok || target == nil {
				return false
			}
			if target.ID == pr.User.ID {
				return false
			}
			return !target.IsSuperAdmin
		},
	},
}

// RolePolicy governs role management inside an account.
var RolePolicy = Policy{
	Entity: "role",
	Permissions: map[Action]string{
		ActionView:   auth.PermRolesView,
		ActionCreate: auth.PermRolesManage,
		ActionUpdate: auth.PermRolesManage,
		ActionDelete: auth.PermRolesManage,
		ActionManage: auth.PermRolesManage,
	},
}

func notSelf(pr auth.Principal, res Resource) bool {
	target, ok := res.(*auth.User)
	if !ok || target == nil {
		return false
	}
	return target.ID != pr.User.ID
}
