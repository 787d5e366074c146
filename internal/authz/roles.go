package authz

import "github.com/spec-kit/support-desk/internal/domain"

// Role capability sets. Broader roles repeat the narrower role's grants explicitly in
// the table data; there is no inheritance mechanism to trace through.
var supportStaffGrants = []Permission{
	TicketsCreate,
	TicketsView,
	TicketsComment,
	TicketsStart,
	TicketsResolve,
}

var teamMemberGrants = append(supportStaffGrants[:len(supportStaffGrants):len(supportStaffGrants)],
	TicketsViewAll,
	TicketsAssign,
	TicketsPriority,
	TicketsEscalate,
)

var managerGrants = append(teamMemberGrants[:len(teamMemberGrants):len(teamMemberGrants)],
	TicketsClose,
	TicketsReopen,
	TicketsDeescalate,
)

var adminGrants = append(managerGrants[:len(managerGrants):len(managerGrants)],
	TaxonomyManage,
	FormsManage,
	UsersManage,
)

var roleGrants = map[domain.Role][]Permission{
	domain.RoleSupportStaff: supportStaffGrants,
	domain.RoleTeamMember:   teamMemberGrants,
	domain.RoleManager:      managerGrants,
	domain.RoleAdmin:        adminGrants,
}
