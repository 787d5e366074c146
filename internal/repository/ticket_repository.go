package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// ErrStaleStatus is returned by UpdateWithStatusCheck when the compare-and-set guard
// finds the ticket's status already moved past the expected source state.
var ErrStaleStatus = errors.New("ticket status changed concurrently")

// TicketFilter captures listing parameters.
type TicketFilter struct {
	ReportedByID  *string
	AssigneeID    *string
	CategoryID    *string
	SubcategoryID *string
	Statuses      []domain.TicketStatus
	Priorities    []domain.TicketPriority
	Escalated     *bool
	SearchTerm    *string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Limit         int
	Offset        int
}

// TicketRepository encapsulates ticket persistence. Status changes go through
// UpdateWithStatusCheck so two concurrent transitions cannot both succeed from a state
// one of them has already left.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	UpdateWithStatusCheck(ctx context.Context, ticket *domain.Ticket, expected domain.TicketStatus) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByNumber(ctx context.Context, number string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, ticket_number, category_id, subcategory_id, title, description, form_data,
               status, priority, department, assignee_id, reported_by_id,
               sla_deadline, first_response_at, resolved_at, closed_at,
               is_escalated, escalated_at, escalated_to_id, escalation_reason,
               follow_up_required, follow_up_date, tags, sentiment, suggested_category,
               created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	formData, err := marshalFormData(ticket.FormData)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO tickets (id, ticket_number, category_id, subcategory_id, title, description, form_data,
                             status, priority, department, assignee_id, reported_by_id,
                             sla_deadline, first_response_at, resolved_at, closed_at,
                             is_escalated, escalated_at, escalated_to_id, escalation_reason,
                             follow_up_required, follow_up_date, tags, sentiment, suggested_category,
                             created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27)`
	_, err = r.pool.Exec(ctx, query,
		ticket.ID,
		ticket.TicketNumber,
		ticket.CategoryID,
		ticket.SubcategoryID,
		ticket.Title,
		ticket.Description,
		formData,
		ticket.Status,
		ticket.Priority,
		ticket.Department,
		ticket.AssigneeID,
		ticket.ReportedByID,
		ticket.SLADeadline,
		ticket.FirstResponseAt,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.IsEscalated,
		ticket.EscalatedAt,
		ticket.EscalatedToID,
		ticket.EscalationReason,
		ticket.FollowUpRequired,
		ticket.FollowUpDate,
		ticket.Tags,
		ticket.Sentiment,
		ticket.SuggestedCategory,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	)
	return err
}

const ticketUpdateSet = `title=$1, description=$2, status=$3, priority=$4, department=$5,
            assignee_id=$6, sla_deadline=$7, first_response_at=$8, resolved_at=$9, closed_at=$10,
            is_escalated=$11, escalated_at=$12, escalated_to_id=$13, escalation_reason=$14,
            follow_up_required=$15, follow_up_date=$16, tags=$17, sentiment=$18, suggested_category=$19,
            updated_at=$20`

func (r *ticketRepository) updateArgs(ticket *domain.Ticket) []any {
	return []any{
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.Department,
		ticket.AssigneeID,
		ticket.SLADeadline,
		ticket.FirstResponseAt,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.IsEscalated,
		ticket.EscalatedAt,
		ticket.EscalatedToID,
		ticket.EscalationReason,
		ticket.FollowUpRequired,
		ticket.FollowUpDate,
		ticket.Tags,
		ticket.Sentiment,
		ticket.SuggestedCategory,
		ticket.UpdatedAt,
	}
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	query := `UPDATE tickets SET ` + ticketUpdateSet + ` WHERE id=$21`
	args := append(r.updateArgs(ticket), ticket.ID)
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// UpdateWithStatusCheck writes the ticket only when the stored status still equals
// expected. A zero row count on an existing ticket means the CAS lost a race.
func (r *ticketRepository) UpdateWithStatusCheck(ctx context.Context, ticket *domain.Ticket, expected domain.TicketStatus) error {
	query := `UPDATE tickets SET ` + ticketUpdateSet + ` WHERE id=$21 AND status=$22`
	args := append(r.updateArgs(ticket), ticket.ID, expected)
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id=$1)`, ticket.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return pgx.ErrNoRows
		}
		return ErrStaleStatus
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE ticket_number=$1`
	return r.fetchSingle(ctx, query, number)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, arg), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ReportedByID != nil {
		args = append(args, *filter.ReportedByID)
		clauses = append(clauses, fmt.Sprintf("reported_by_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_id=$%d", len(args)))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		clauses = append(clauses, fmt.Sprintf("category_id=$%d", len(args)))
	}
	if filter.SubcategoryID != nil {
		args = append(args, *filter.SubcategoryID)
		clauses = append(clauses, fmt.Sprintf("subcategory_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Escalated != nil {
		args = append(args, *filter.Escalated)
		clauses = append(clauses, fmt.Sprintf("is_escalated=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	var formData []byte
	if err := row.Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.CategoryID,
		&ticket.SubcategoryID,
		&ticket.Title,
		&ticket.Description,
		&formData,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Department,
		&ticket.AssigneeID,
		&ticket.ReportedByID,
		&ticket.SLADeadline,
		&ticket.FirstResponseAt,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
		&ticket.IsEscalated,
		&ticket.EscalatedAt,
		&ticket.EscalatedToID,
		&ticket.EscalationReason,
		&ticket.FollowUpRequired,
		&ticket.FollowUpDate,
		&ticket.Tags,
		&ticket.Sentiment,
		&ticket.SuggestedCategory,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return err
	}
	if len(formData) > 0 {
		if err := json.Unmarshal(formData, &ticket.FormData); err != nil {
			return err
		}
	}
	return nil
}

func marshalFormData(data domain.FormData) ([]byte, error) {
	if data == nil {
		data = domain.FormData{}
	}
	return json.Marshal(data)
}
