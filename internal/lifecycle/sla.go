package lifecycle

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// SLAPolicy maps priority to the due-by interval for a ticket. The table is external
// configuration the engine consumes; it never derives it.
type SLAPolicy struct {
	targets map[domain.TicketPriority]time.Duration
}

// NewSLAPolicy builds a policy from a priority -> duration table. Missing priorities
// fall back to the normal target.
func NewSLAPolicy(targets map[domain.TicketPriority]time.Duration) *SLAPolicy {
	copied := make(map[domain.TicketPriority]time.Duration, len(targets))
	for priority, target := range targets {
		copied[priority] = target
	}
	return &SLAPolicy{targets: copied}
}

// DefaultSLAPolicy returns the stock table: urgent 4h, high 24h, normal 72h, low 1 week.
func DefaultSLAPolicy() *SLAPolicy {
	return NewSLAPolicy(map[domain.TicketPriority]time.Duration{
		domain.TicketPriorityUrgent: 4 * time.Hour,
		domain.TicketPriorityHigh:   24 * time.Hour,
		domain.TicketPriorityNormal: 72 * time.Hour,
		domain.TicketPriorityLow:    7 * 24 * time.Hour,
	})
}

// Deadline computes the SLA deadline for a priority relative to the given instant.
func (p *SLAPolicy) Deadline(priority domain.TicketPriority, from time.Time) time.Time {
	target, ok := p.targets[priority]
	if !ok {
		target = p.targets[domain.TicketPriorityNormal]
	}
	return from.Add(target)
}
