package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
)

// SLAMonitor periodically sweeps open tickets and logs SLA breaches. It only observes;
// escalation remains a deliberate human action.
type SLAMonitor struct {
	tickets  repository.TicketRepository
	logger   *zap.Logger
	interval time.Duration
}

// NewSLAMonitor builds the monitor. Interval defaults to five minutes.
func NewSLAMonitor(tickets repository.TicketRepository, logger *zap.Logger, interval time.Duration) *SLAMonitor {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &SLAMonitor{tickets: tickets, logger: logger, interval: interval}
}

// Run sweeps until the context is cancelled.
func (m *SLAMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

func (m *SLAMonitor) sweep(ctx context.Context) {
	now := time.Now().UTC()
	open, err := m.tickets.ListWithFilter(ctx, repository.TicketFilter{
		Statuses: []domain.TicketStatus{domain.TicketStatusNew, domain.TicketStatusInProgress},
		Limit:    500,
	})
	if err != nil {
		m.logger.Warn("sla sweep failed", zap.Error(err))
		return
	}

	breached := 0
	for _, ticket := range open {
		if ticket.SLADeadline == nil || ticket.SLADeadline.After(now) {
			continue
		}
		breached++
		m.logger.Warn("sla deadline breached",
			zap.String("ticket_id", ticket.ID),
			zap.String("ticket_number", ticket.TicketNumber),
			zap.String("priority", string(ticket.Priority)),
			zap.Time("deadline", *ticket.SLADeadline),
			zap.Bool("escalated", ticket.IsEscalated))
	}
	if breached > 0 {
		m.logger.Info("sla sweep complete", zap.Int("open", len(open)), zap.Int("breached", breached))
	}
}
