package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/support-desk/internal/domain"
)

func TestSupportStaffCapabilities(t *testing.T) {
	role := domain.RoleSupportStaff

	assert.True(t, HasPermission(role, TicketsCreate))
	assert.True(t, HasPermission(role, TicketsView))
	assert.True(t, HasPermission(role, TicketsComment))
	assert.True(t, HasPermission(role, TicketsStart))
	assert.True(t, HasPermission(role, TicketsResolve))

	assert.False(t, HasPermission(role, TicketsViewAll))
	assert.False(t, HasPermission(role, TicketsAssign))
	assert.False(t, HasPermission(role, TicketsClose))
	assert.False(t, HasPermission(role, TicketsReopen))
	assert.False(t, HasPermission(role, TicketsEscalate))
	assert.False(t, HasPermission(role, TicketsDeescalate))
	assert.False(t, HasPermission(role, TaxonomyManage))
}

func TestTeamMemberCapabilities(t *testing.T) {
	role := domain.RoleTeamMember

	assert.True(t, HasPermission(role, TicketsViewAll))
	assert.True(t, HasPermission(role, TicketsAssign))
	assert.True(t, HasPermission(role, TicketsPriority))
	assert.True(t, HasPermission(role, TicketsEscalate))

	assert.False(t, HasPermission(role, TicketsClose))
	assert.False(t, HasPermission(role, TicketsReopen))
	assert.False(t, HasPermission(role, TicketsDeescalate))
	assert.False(t, HasPermission(role, FormsManage))
}

func TestManagerCapabilities(t *testing.T) {
	role := domain.RoleManager

	assert.True(t, HasPermission(role, TicketsClose))
	assert.True(t, HasPermission(role, TicketsReopen))
	assert.True(t, HasPermission(role, TicketsDeescalate))

	assert.False(t, HasPermission(role, TaxonomyManage))
	assert.False(t, HasPermission(role, FormsManage))
	assert.False(t, HasPermission(role, UsersManage))
}

func TestAdminCapabilities(t *testing.T) {
	role := domain.RoleAdmin

	assert.True(t, HasAll(role, TaxonomyManage, FormsManage, UsersManage))
	assert.True(t, HasAll(role, TicketsCreate, TicketsClose, TicketsDeescalate))
}

// Each broader role must hold everything the narrower role holds; the capability table
// is strictly cumulative.
func TestRoleGrantsAreCumulative(t *testing.T) {
	chain := []domain.Role{
		domain.RoleSupportStaff,
		domain.RoleTeamMember,
		domain.RoleManager,
		domain.RoleAdmin,
	}
	for i := 1; i < len(chain); i++ {
		narrower, broader := chain[i-1], chain[i]
		for _, grant := range Grants(narrower) {
			assert.Truef(t, HasPermission(broader, grant),
				"%s should hold %s granted to %s", broader, grant, narrower)
		}
		assert.Greater(t, len(Grants(broader)), len(Grants(narrower)))
	}
}

func TestUnknownRoleHasNoGrants(t *testing.T) {
	assert.Empty(t, Grants(domain.Role("intern")))
	assert.False(t, HasPermission(domain.Role("intern"), TicketsView))
	assert.False(t, HasAny(domain.Role(""), TicketsCreate, TicketsView))
}

func TestHasAllAndHasAny(t *testing.T) {
	assert.True(t, HasAny(domain.RoleSupportStaff, TicketsClose, TicketsCreate))
	assert.False(t, HasAll(domain.RoleSupportStaff, TicketsClose, TicketsCreate))
	assert.True(t, HasAll(domain.RoleSupportStaff))
}

func TestGrantsReturnsCopy(t *testing.T) {
	grants := Grants(domain.RoleSupportStaff)
	grants[0] = TaxonomyManage
	assert.False(t, HasPermission(domain.RoleSupportStaff, TaxonomyManage))
}
