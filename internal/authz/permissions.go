package authz

// Permission tokens. Role capability sets are composed from these; services gate every
// lifecycle mutation on them before invoking the state machine.
type Permission string

const (
	// Tickets
	TicketsCreate     Permission = "tickets:create"
	TicketsView       Permission = "tickets:view"
	TicketsViewAll    Permission = "tickets:view:all"
	TicketsComment    Permission = "tickets:comment"
	TicketsStart      Permission = "tickets:start"
	TicketsResolve    Permission = "tickets:resolve"
	TicketsClose      Permission = "tickets:close"
	TicketsReopen     Permission = "tickets:reopen"
	TicketsAssign     Permission = "tickets:assign"
	TicketsPriority   Permission = "tickets:priority"
	TicketsEscalate   Permission = "tickets:escalate"
	TicketsDeescalate Permission = "tickets:deescalate"

	// Taxonomy and form schema administration
	TaxonomyManage Permission = "taxonomy:manage"
	FormsManage    Permission = "forms:manage"

	// Users
	UsersManage Permission = "users:manage"
)
