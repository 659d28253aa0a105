package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleCapabilities(t *testing.T) {
	tests := []struct {
		role    Role
		allowed []Capability
		denied  []Capability
		admin   bool
	}{
		{RoleGuest, nil, []Capability{CapTrade, CapWallet, CapWishlist}, false},
		{RoleUser, []Capability{CapTrade, CapWallet, CapWishlist}, []Capability{CapViewAdminDashboard, CapManageUsers}, false},
		{RoleAdmin, []Capability{CapTrade, CapViewAdminDashboard, CapManageUsers, CapManageMargins, CapViewTrades}, []Capability{CapViewSecurityLogs}, true},
		{RoleSuperAdmin, []Capability{CapTrade, CapManageUsers, CapViewSecurityLogs}, nil, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			for _, c := range tt.allowed {
				assert.True(t, tt.role.Can(c), "expected %s to have %s", tt.role, c)
			}
			for _, c := range tt.denied {
				assert.False(t, tt.role.Can(c), "expected %s to lack %s", tt.role, c)
			}
			assert.Equal(t, tt.admin, tt.role.RedirectsToAdmin())
		})
	}

	assert.Empty(t, RoleGuest.Capabilities())
	assert.Len(t, RoleSuperAdmin.Capabilities(), 8)
}

func TestCapabilitiesReturnsCopy(t *testing.T) {
	caps := RoleUser.Capabilities()
	caps[0] = CapViewSecurityLogs
	assert.False(t, RoleUser.Can(CapViewSecurityLogs))
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, ParseRole("admin"))
	assert.Equal(t, RoleSuperAdmin, ParseRole("superadmin"))
	assert.Equal(t, RoleUser, ParseRole(""))
	assert.Equal(t, RoleUser, ParseRole("trader"))
	assert.True(t, User{Role: RoleUser}.Can(CapWallet))
}
