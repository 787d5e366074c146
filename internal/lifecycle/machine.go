package lifecycle

import (
	"time"

	"github.com/spec-kit/support-desk/internal/authz"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/pkg/util"
)

// allowedTransitions is the complete status machine. The in_progress self-loop models
// reassignment; closed is terminal except for an explicit reopen.
var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusNew:        {domain.TicketStatusInProgress},
	domain.TicketStatusInProgress: {domain.TicketStatusResolved, domain.TicketStatusInProgress},
	domain.TicketStatusResolved:   {domain.TicketStatusClosed, domain.TicketStatusInProgress},
	domain.TicketStatusClosed:     {domain.TicketStatusInProgress},
}

// transitionPermissions names the capability a caller must hold for each transition.
// The machine itself is role-agnostic; services perform the check.
var transitionPermissions = map[domain.TicketStatus]map[domain.TicketStatus]authz.Permission{
	domain.TicketStatusNew: {
		domain.TicketStatusInProgress: authz.TicketsStart,
	},
	domain.TicketStatusInProgress: {
		domain.TicketStatusResolved:   authz.TicketsResolve,
		domain.TicketStatusInProgress: authz.TicketsAssign,
	},
	domain.TicketStatusResolved: {
		domain.TicketStatusClosed:     authz.TicketsClose,
		domain.TicketStatusInProgress: authz.TicketsReopen,
	},
	domain.TicketStatusClosed: {
		domain.TicketStatusInProgress: authz.TicketsReopen,
	},
}

// CanTransition reports whether the status change is listed in the transition table.
func CanTransition(from, to domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// RequiredPermission returns the capability gating a transition. The bool is false when
// the transition is not in the table at all.
func RequiredPermission(from, to domain.TicketStatus) (authz.Permission, bool) {
	permission, ok := transitionPermissions[from][to]
	return permission, ok
}

// Transition applies a status change and its derived side effects to the ticket in
// memory. It never clamps to a "closest legal" state: anything outside the table fails
// with an invalid-transition error and leaves the ticket untouched.
func Transition(ticket *domain.Ticket, to domain.TicketStatus, now time.Time) error {
	if !ticket.Status.Valid() {
		return util.NewPreconditionFailed("stored ticket status is outside the known enumeration",
			map[string]any{"status": string(ticket.Status)})
	}
	if !to.Valid() || !CanTransition(ticket.Status, to) {
		return util.NewInvalidTransition(string(ticket.Status), string(to))
	}

	from := ticket.Status
	switch to {
	case domain.TicketStatusInProgress:
		if from == domain.TicketStatusNew && ticket.FirstResponseAt == nil {
			stamp := now
			ticket.FirstResponseAt = &stamp
		}
		// Reopening resets resolution bookkeeping so a later close requires a fresh
		// resolve.
		if from == domain.TicketStatusResolved || from == domain.TicketStatusClosed {
			ticket.ResolvedAt = nil
			ticket.ClosedAt = nil
		}
	case domain.TicketStatusResolved:
		stamp := now
		ticket.ResolvedAt = &stamp
	case domain.TicketStatusClosed:
		if ticket.ResolvedAt == nil {
			return util.NewPreconditionFailed("cannot close a ticket that was never resolved",
				map[string]any{"ticketId": ticket.ID})
		}
		stamp := now
		ticket.ClosedAt = &stamp
	}

	ticket.Status = to
	ticket.UpdatedAt = now
	return nil
}

// Escalate raises the orthogonal escalation flag. A ticket can be escalated while new
// or in_progress, and only once per escalation cycle.
func Escalate(ticket *domain.Ticket, escalatedToID, reason string, now time.Time) error {
	if ticket.Status != domain.TicketStatusNew && ticket.Status != domain.TicketStatusInProgress {
		return util.NewPreconditionFailed("ticket can only be escalated while new or in progress",
			map[string]any{"status": string(ticket.Status)})
	}
	if ticket.IsEscalated {
		return util.NewPreconditionFailed("ticket is already escalated",
			map[string]any{"ticketId": ticket.ID})
	}
	stamp := now
	ticket.IsEscalated = true
	ticket.EscalatedAt = &stamp
	if escalatedToID != "" {
		ticket.EscalatedToID = &escalatedToID
	}
	ticket.EscalationReason = reason
	ticket.UpdatedAt = now
	return nil
}

// Deescalate resets the escalation flag, allowing a later re-escalation.
func Deescalate(ticket *domain.Ticket, now time.Time) error {
	if !ticket.IsEscalated {
		return util.NewPreconditionFailed("ticket is not escalated",
			map[string]any{"ticketId": ticket.ID})
	}
	ticket.IsEscalated = false
	ticket.EscalatedAt = nil
	ticket.EscalatedToID = nil
	ticket.EscalationReason = ""
	ticket.UpdatedAt = now
	return nil
}

// ChangePriority updates priority and recomputes the SLA deadline from "now" when the
// ticket is still new or in progress. In later states the deadline is frozen.
func ChangePriority(ticket *domain.Ticket, priority domain.TicketPriority, policy *SLAPolicy, now time.Time) error {
	if !priority.Valid() {
		return util.NewValidationError("unknown priority", map[string]any{"priority": string(priority)})
	}
	ticket.Priority = priority
	if ticket.Status == domain.TicketStatusNew || ticket.Status == domain.TicketStatusInProgress {
		deadline := policy.Deadline(priority, now)
		ticket.SLADeadline = &deadline
	}
	ticket.UpdatedAt = now
	return nil
}

// InitializeNew stamps a freshly created ticket with its initial state and SLA deadline.
func InitializeNew(ticket *domain.Ticket, policy *SLAPolicy, now time.Time) {
	ticket.Status = domain.TicketStatusNew
	if !ticket.Priority.Valid() {
		ticket.Priority = domain.TicketPriorityNormal
	}
	deadline := policy.Deadline(ticket.Priority, now)
	ticket.SLADeadline = &deadline
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
}
