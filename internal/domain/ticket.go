package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets. Any stored value outside this
// enumeration is a data-integrity error, not something to coerce.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "new"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// Valid reports whether the status is a member of the closed enumeration.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusNew, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityNormal TicketPriority = "normal"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// Valid reports whether the priority is a member of the closed enumeration.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityNormal, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// FormData maps field id to the submitted value (string, []string, number or bool).
// It is validated against the resolved schema at submission time and preserved verbatim
// thereafter.
type FormData map[string]any

// Ticket is the aggregate for support requests. It is created once by the submitting
// actor and mutated exclusively through lifecycle transitions; never deleted, only
// status-terminated.
type Ticket struct {
	ID            string         `json:"id"`
	TicketNumber  string         `json:"ticketNumber"`
	CategoryID    string         `json:"categoryId"`
	SubcategoryID string         `json:"subCategoryId"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	FormData      FormData       `json:"formData"`
	Status        TicketStatus   `json:"status"`
	Priority      TicketPriority `json:"priority"`
	Department    string         `json:"department,omitempty"`
	AssigneeID    *string        `json:"assigneeId,omitempty"`
	ReportedByID  string         `json:"reportedById"`

	SLADeadline     *time.Time `json:"slaDeadline,omitempty"`
	FirstResponseAt *time.Time `json:"firstResponseAt,omitempty"`
	ResolvedAt      *time.Time `json:"resolvedAt,omitempty"`
	ClosedAt        *time.Time `json:"closedAt,omitempty"`

	IsEscalated      bool       `json:"isEscalated"`
	EscalatedAt      *time.Time `json:"escalatedAt,omitempty"`
	EscalatedToID    *string    `json:"escalatedToId,omitempty"`
	EscalationReason string     `json:"escalationReason,omitempty"`

	FollowUpRequired bool       `json:"followUpRequired"`
	FollowUpDate     *time.Time `json:"followUpDate,omitempty"`

	// Populated by the external AI-assist collaborator; read-only to the engines.
	Tags              []string `json:"tags,omitempty"`
	Sentiment         *string  `json:"sentiment,omitempty"`
	SuggestedCategory *string  `json:"suggestedCategory,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
