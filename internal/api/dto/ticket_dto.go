package dto

import (
	"github.com/spec-kit/support-desk/internal/domain"
)

// CreateTicketRequest payload. FormData is validated against the subcategory's resolved
// schema before the ticket exists.
type CreateTicketRequest struct {
	CategoryID    string                `json:"categoryId"`
	SubcategoryID string                `json:"subCategoryId"`
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	FormData      domain.FormData       `json:"formData"`
	Priority      domain.TicketPriority `json:"priority"`
	Department    string                `json:"department"`
}

// TransitionRequest payload for status changes.
type TransitionRequest struct {
	Status  domain.TicketStatus `json:"status"`
	Comment string              `json:"comment"`
}

// AssignRequest payload. A null assigneeId clears the assignment.
type AssignRequest struct {
	AssigneeID *string `json:"assigneeId"`
}

// PriorityRequest payload.
type PriorityRequest struct {
	Priority domain.TicketPriority `json:"priority"`
}

// EscalateRequest payload.
type EscalateRequest struct {
	EscalatedToID string `json:"escalatedToId"`
	Reason        string `json:"reason"`
}

// CommentRequest payload.
type CommentRequest struct {
	Body       string `json:"body"`
	IsInternal bool   `json:"isInternal"`
}
