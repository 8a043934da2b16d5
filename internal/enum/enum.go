package enum

// ── Roles (CHECK constrained in DB) ──

const (
	UserRoleSuperAdmin = "SUPER_ADMIN"
	UserRoleOwner      = "OWNER"
	UserRoleManager    = "MANAGER"
	UserRoleWaiter     = "WAITER"
	UserRoleKitchen    = "KITCHEN"
	UserRoleCashier    = "CASHIER"
)

// ── Role groups used by capability checks ──

// ManagementRoles may perform every order-pipeline operation inside their scope.
var ManagementRoles = []string{UserRoleSuperAdmin, UserRoleOwner, UserRoleManager}

var (
	SessionOpenerRoles = withManagement(UserRoleWaiter)
	BatchRoles         = withManagement(UserRoleWaiter)
	KitchenRoles       = withManagement(UserRoleKitchen)
	ServingRoles       = withManagement(UserRoleWaiter)
	CancelRoles        = withManagement(UserRoleWaiter, UserRoleKitchen)
	BillingRoles       = withManagement(UserRoleCashier)
	KitchenViewRoles   = withManagement(UserRoleKitchen, UserRoleWaiter)
	AllRoles           = withManagement(UserRoleWaiter, UserRoleKitchen, UserRoleCashier)
)

func withManagement(roles ...string) []string {
	out := make([]string, 0, len(ManagementRoles)+len(roles))
	out = append(out, ManagementRoles...)
	return append(out, roles...)
}

// IsValidRole reports whether s is a known role.
func IsValidRole(s string) bool {
	switch s {
	case UserRoleSuperAdmin, UserRoleOwner, UserRoleManager,
		UserRoleWaiter, UserRoleKitchen, UserRoleCashier:
		return true
	}
	return false
}

// HasRole reports whether role is one of roles.
func HasRole(role string, roles []string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
