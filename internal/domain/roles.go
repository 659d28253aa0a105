package domain

// Role is the account role
type Role string

const (
	RoleGuest      Role = "guest"
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// Capability is something a role is allowed to do
type Capability string

const (
	CapTrade              Capability = "trade"
	CapWallet             Capability = "wallet"
	CapWishlist           Capability = "wishlist"
	CapViewAdminDashboard Capability = "view_admin_dashboard"
	CapManageUsers        Capability = "manage_users"
	CapManageMargins      Capability = "manage_margins"
	CapViewTrades         Capability = "view_trades"
	CapViewSecurityLogs   Capability = "view_security_logs"
)

var (
	userCaps  = []Capability{CapTrade, CapWallet, CapWishlist}
	adminCaps = append(append([]Capability{}, userCaps...),
		CapViewAdminDashboard, CapManageUsers, CapManageMargins, CapViewTrades)
	superAdminCaps = append(append([]Capability{}, adminCaps...), CapViewSecurityLogs)
)

// ParseRole maps unknown or empty roles to user
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAdmin, RoleSuperAdmin, RoleGuest:
		return Role(s)
	}
	return RoleUser
}

// Capabilities lists what the role may do
func (r Role) Capabilities() []Capability {
	var caps []Capability
	switch r {
	case RoleUser:
		caps = userCaps
	case RoleAdmin:
		caps = adminCaps
	case RoleSuperAdmin:
		caps = superAdminCaps
	default:
		return []Capability{}
	}
	return append([]Capability(nil), caps...)
}

// Can reports whether the role has capability c
func (r Role) Can(c Capability) bool {
	for _, have := range r.Capabilities() {
		if have == c {
			return true
		}
	}
	return false
}

// RedirectsToAdmin is true for roles whose landing page is the admin dashboard
func (r Role) RedirectsToAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Can reports whether the user's role has capability c
func (u User) Can(c Capability) bool {
	return u.Role.Can(c)
}
