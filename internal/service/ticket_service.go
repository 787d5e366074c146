package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/authz"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/lifecycle"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// TicketNumberAllocator hands out monotonically increasing human-facing ticket numbers.
type TicketNumberAllocator interface {
	Next(ctx context.Context) (string, error)
}

// TicketService owns ticket creation and every lifecycle mutation. Status writes go
// through a compare-and-set on the source status; a lost race is retried once against
// the re-read state before surfacing to the caller.
type TicketService struct {
	tickets       repository.TicketRepository
	comments      repository.TicketCommentRepository
	history       repository.TicketHistoryRepository
	users         repository.UserRepository
	categories    repository.CategoryRepository
	subcategories repository.SubcategoryRepository
	schemas       *SchemaService
	numbers       TicketNumberAllocator
	slaPolicy     *lifecycle.SLAPolicy
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	now           func() time.Time
}

// TicketDependencies bundles dependencies for the ticket service.
type TicketDependencies struct {
	TicketRepo      repository.TicketRepository
	CommentRepo     repository.TicketCommentRepository
	HistoryRepo     repository.TicketHistoryRepository
	UserRepo        repository.UserRepository
	CategoryRepo    repository.CategoryRepository
	SubcategoryRepo repository.SubcategoryRepository
	SchemaService   *SchemaService
	NumberAllocator TicketNumberAllocator
	SLAPolicy       *lifecycle.SLAPolicy
	Dispatcher      events.Dispatcher
	Logger          *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	policy := deps.SLAPolicy
	if policy == nil {
		policy = lifecycle.DefaultSLAPolicy()
	}
	return &TicketService{
		tickets:       deps.TicketRepo,
		comments:      deps.CommentRepo,
		history:       deps.HistoryRepo,
		users:         deps.UserRepo,
		categories:    deps.CategoryRepo,
		subcategories: deps.SubcategoryRepo,
		schemas:       deps.SchemaService,
		numbers:       deps.NumberAllocator,
		slaPolicy:     policy,
		dispatcher:    deps.Dispatcher,
		logger:        logger,
		now:           time.Now,
	}
}

// CreateTicketInput carries the submission payload.
type CreateTicketInput struct {
	CategoryID    string
	SubcategoryID string
	Title         string
	Description   string
	FormData      domain.FormData
	Priority      domain.TicketPriority
	Department    string
}

// CreateTicket validates the submission against the subcategory's resolved schema and
// creates the ticket in status new with its SLA deadline stamped.
func (s *TicketService) CreateTicket(ctx context.Context, actor events.Actor, input CreateTicketInput) (*domain.Ticket, error) {
	if !authz.HasPermission(actor.Role, authz.TicketsCreate) {
		return nil, apperrors.NewPermissionDenied("role cannot create tickets")
	}
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return nil, apperrors.NewValidationError("ticket title is required", nil)
	}
	if input.Priority != "" && !input.Priority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": string(input.Priority)})
	}

	category, err := s.categories.GetByID(ctx, input.CategoryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("category", map[string]any{"categoryId": input.CategoryID})
		}
		return nil, apperrors.MapError(err)
	}
	if !category.IsActive {
		return nil, apperrors.NewValidationError("category is not accepting tickets", map[string]any{"categoryId": category.ID})
	}
	subcategory, err := s.subcategories.GetByID(ctx, input.SubcategoryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("subcategory", map[string]any{"subCategoryId": input.SubcategoryID})
		}
		return nil, apperrors.MapError(err)
	}
	if subcategory.CategoryID != category.ID {
		return nil, apperrors.NewValidationError("subcategory does not belong to category",
			map[string]any{"categoryId": category.ID, "subCategoryId": subcategory.ID})
	}
	if !subcategory.IsActive {
		return nil, apperrors.NewValidationError("subcategory is not accepting tickets", map[string]any{"subCategoryId": subcategory.ID})
	}

	if err := s.schemas.ValidateSubmission(ctx, subcategory.ID, input.FormData); err != nil {
		return nil, err
	}

	number, err := s.numbers.Next(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	now := s.now().UTC()
	ticket := &domain.Ticket{
		ID:            uuid.NewString(),
		TicketNumber:  number,
		CategoryID:    category.ID,
		SubcategoryID: subcategory.ID,
		Title:         input.Title,
		Description:   input.Description,
		FormData:      input.FormData,
		Priority:      input.Priority,
		Department:    input.Department,
		ReportedByID:  actor.UserID,
	}
	lifecycle.InitializeNew(ticket, s.slaPolicy, now)

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("ticket_number", ticket.TicketNumber),
		zap.String("reported_by", actor.UserID))
	s.publish(ctx, events.EventTicketCreated, ticket.ID, actor, events.TicketCreatedPayload{
		TicketNumber:  ticket.TicketNumber,
		CategoryID:    ticket.CategoryID,
		SubcategoryID: ticket.SubcategoryID,
		Priority:      ticket.Priority,
		SLADeadline:   ticket.SLADeadline,
		Title:         ticket.Title,
	})
	return ticket, nil
}

// GetTicket returns a ticket the actor is allowed to see: its reporter, its assignee,
// its escalation target, or anyone holding the view-all capability.
func (s *TicketService) GetTicket(ctx context.Context, actor events.Actor, id string) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canView(actor, ticket) {
		return nil, apperrors.NewPermissionDenied("not allowed to view this ticket")
	}
	return ticket, nil
}

// GetTicketByNumber looks a ticket up by its human-facing number.
func (s *TicketService) GetTicketByNumber(ctx context.Context, actor events.Actor, number string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticketNumber": number})
		}
		return nil, apperrors.MapError(err)
	}
	if !s.canView(actor, ticket) {
		return nil, apperrors.NewPermissionDenied("not allowed to view this ticket")
	}
	return ticket, nil
}

// ListTickets lists tickets matching the filter. Callers without view-all are pinned to
// their own submissions regardless of what the filter asks for.
func (s *TicketService) ListTickets(ctx context.Context, actor events.Actor, filter repository.TicketFilter) ([]domain.Ticket, error) {
	if !authz.HasPermission(actor.Role, authz.TicketsViewAll) {
		reporter := actor.UserID
		filter.ReportedByID = &reporter
	}
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// Transition moves the ticket to the target status. The write is a compare-and-set on
// the status the decision was made against; when the CAS loses a race the ticket is
// re-read and the transition re-validated once before any error is surfaced.
func (s *TicketService) Transition(ctx context.Context, actor events.Actor, ticketID string, to domain.TicketStatus, comment string) (*domain.Ticket, error) {
	for attempt := 0; ; attempt++ {
		ticket, err := s.loadTicket(ctx, ticketID)
		if err != nil {
			return nil, err
		}
		from := ticket.Status

		permission, known := lifecycle.RequiredPermission(from, to)
		if !known {
			return nil, apperrors.NewInvalidTransition(string(from), string(to))
		}
		if !authz.HasPermission(actor.Role, permission) {
			return nil, apperrors.NewPermissionDenied("role cannot perform this transition")
		}
		if err := lifecycle.Transition(ticket, to, s.now().UTC()); err != nil {
			return nil, err
		}

		err = s.tickets.UpdateWithStatusCheck(ctx, ticket, from)
		if errors.Is(err, repository.ErrStaleStatus) {
			if attempt == 0 {
				s.logger.Debug("status write lost a race, re-validating",
					zap.String("ticket_id", ticketID),
					zap.String("from", string(from)),
					zap.String("to", string(to)))
				continue
			}
			return nil, apperrors.NewStaleWrite("ticket")
		}
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("ticket", map[string]any{"ticketId": ticketID})
			}
			return nil, apperrors.MapError(err)
		}

		s.recordHistory(ctx, ticket.ID, actor, domain.ChangeTypeStatus,
			map[string]any{"status": string(from)},
			map[string]any{"status": string(to)})
		s.publish(ctx, events.EventTicketStatusChanged, ticket.ID, actor, events.TicketStatusChangedPayload{
			OldStatus: from,
			NewStatus: to,
			Comment:   comment,
		})
		return ticket, nil
	}
}

// AssignTicket sets or clears the assignee. Assignment does not change status; it is
// still CAS-guarded so it cannot land on a ticket that moved to a terminal state
// mid-flight.
func (s *TicketService) AssignTicket(ctx context.Context, actor events.Actor, ticketID string, assigneeID *string) (*domain.Ticket, error) {
	if !authz.HasPermission(actor.Role, authz.TicketsAssign) {
		return nil, apperrors.NewPermissionDenied("role cannot assign tickets")
	}
	if assigneeID != nil {
		assignee, err := s.users.GetByID(ctx, *assigneeID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("user", map[string]any{"userId": *assigneeID})
			}
			return nil, apperrors.MapError(err)
		}
		if !assignee.IsActive {
			return nil, apperrors.NewValidationError("assignee is deactivated", map[string]any{"userId": assignee.ID})
		}
	}
	var previous *string
	ticket, err := s.mutateGuarded(ctx, ticketID, func(ticket *domain.Ticket, now time.Time) error {
		if ticket.Status != domain.TicketStatusNew && ticket.Status != domain.TicketStatusInProgress {
			return apperrors.NewPreconditionFailed("ticket can only be assigned while new or in progress",
				map[string]any{"status": string(ticket.Status)})
		}
		previous = ticket.AssigneeID
		ticket.AssigneeID = assigneeID
		ticket.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordHistory(ctx, ticket.ID, actor, domain.ChangeTypeAssignee,
		map[string]any{"assigneeId": deref(previous)},
		map[string]any{"assigneeId": deref(assigneeID)})
	s.publish(ctx, events.EventTicketAssigned, ticket.ID, actor, events.TicketAssignedPayload{
		AssigneeID: assigneeID,
	})
	return ticket, nil
}

// ChangePriority updates priority; the SLA deadline is recomputed from now while the
// ticket is still new or in progress and left frozen afterwards.
func (s *TicketService) ChangePriority(ctx context.Context, actor events.Actor, ticketID string, priority domain.TicketPriority) (*domain.Ticket, error) {
	if !authz.HasPermission(actor.Role, authz.TicketsPriority) {
		return nil, apperrors.NewPermissionDenied("role cannot change ticket priority")
	}
	var previous domain.TicketPriority
	ticket, err := s.mutateGuarded(ctx, ticketID, func(ticket *domain.Ticket, now time.Time) error {
		previous = ticket.Priority
		return lifecycle.ChangePriority(ticket, priority, s.slaPolicy, now)
	})
	if err != nil {
		return nil, err
	}
	s.recordHistory(ctx, ticket.ID, actor, domain.ChangeTypePriority,
		map[string]any{"priority": string(previous)},
		map[string]any{"priority": string(priority)})
	s.publish(ctx, events.EventTicketPriorityChanged, ticket.ID, actor, events.TicketPriorityChangedPayload{
		OldPriority: previous,
		NewPriority: priority,
		SLADeadline: ticket.SLADeadline,
	})
	return ticket, nil
}

// Escalate raises the escalation flag on an active ticket.
func (s *TicketService) Escalate(ctx context.Context, actor events.Actor, ticketID, escalatedToID, reason string) (*domain.Ticket, error) {
	if !authz.HasPermission(actor.Role, authz.TicketsEscalate) {
		return nil, apperrors.NewPermissionDenied("role cannot escalate tickets")
	}
	if escalatedToID != "" {
		if _, err := s.users.GetByID(ctx, escalatedToID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("user", map[string]any{"userId": escalatedToID})
			}
			return nil, apperrors.MapError(err)
		}
	}
	ticket, err := s.mutateGuarded(ctx, ticketID, func(ticket *domain.Ticket, now time.Time) error {
		return lifecycle.Escalate(ticket, escalatedToID, reason, now)
	})
	if err != nil {
		return nil, err
	}
	s.recordHistory(ctx, ticket.ID, actor, domain.ChangeTypeEscalation,
		map[string]any{"isEscalated": false},
		map[string]any{"isEscalated": true, "escalatedToId": escalatedToID, "reason": reason})
	s.publish(ctx, events.EventTicketEscalated, ticket.ID, actor, events.TicketEscalatedPayload{
		EscalatedToID: ticket.EscalatedToID,
		Reason:        reason,
	})
	return ticket, nil
}

// Deescalate clears the escalation flag, permitting a later re-escalation.
func (s *TicketService) Deescalate(ctx context.Context, actor events.Actor, ticketID string) (*domain.Ticket, error) {
	if !authz.HasPermission(actor.Role, authz.TicketsDeescalate) {
		return nil, apperrors.NewPermissionDenied("role cannot de-escalate tickets")
	}
	ticket, err := s.mutateGuarded(ctx, ticketID, func(ticket *domain.Ticket, now time.Time) error {
		return lifecycle.Deescalate(ticket, now)
	})
	if err != nil {
		return nil, err
	}
	s.recordHistory(ctx, ticket.ID, actor, domain.ChangeTypeEscalation,
		map[string]any{"isEscalated": true},
		map[string]any{"isEscalated": false})
	s.publish(ctx, events.EventTicketDeescalated, ticket.ID, actor, nil)
	return ticket, nil
}

// AddComment appends to the ticket thread. Internal notes require view-all; reporters
// never see them and cannot write them.
func (s *TicketService) AddComment(ctx context.Context, actor events.Actor, ticketID, body string, isInternal bool) (*domain.TicketComment, error) {
	if !authz.HasPermission(actor.Role, authz.TicketsComment) {
		return nil, apperrors.NewPermissionDenied("role cannot comment on tickets")
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("comment body is required", nil)
	}
	if isInternal && !authz.HasPermission(actor.Role, authz.TicketsViewAll) {
		return nil, apperrors.NewPermissionDenied("role cannot write internal notes")
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.canView(actor, ticket) {
		return nil, apperrors.NewPermissionDenied("not allowed to view this ticket")
	}
	comment := &domain.TicketComment{
		ID:         uuid.NewString(),
		TicketID:   ticket.ID,
		AuthorID:   actor.UserID,
		Body:       body,
		IsInternal: isInternal,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}
	preview := body
	if len(preview) > 120 {
		preview = preview[:120]
	}
	s.publish(ctx, events.EventTicketCommented, ticket.ID, actor, events.TicketCommentedPayload{
		CommentID:   comment.ID,
		IsInternal:  isInternal,
		BodyPreview: preview,
	})
	return comment, nil
}

// ListComments returns the ticket thread, with internal notes stripped for callers
// without view-all.
func (s *TicketService) ListComments(ctx context.Context, actor events.Actor, ticketID string) ([]domain.TicketComment, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.canView(actor, ticket) {
		return nil, apperrors.NewPermissionDenied("not allowed to view this ticket")
	}
	comments, err := s.comments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if authz.HasPermission(actor.Role, authz.TicketsViewAll) {
		return comments, nil
	}
	visible := comments[:0]
	for _, comment := range comments {
		if !comment.IsInternal {
			visible = append(visible, comment)
		}
	}
	return visible, nil
}

// ListHistory returns the audit trail. Reserved for staff with view-all.
func (s *TicketService) ListHistory(ctx context.Context, actor events.Actor, ticketID string, limit, offset int) ([]domain.TicketHistory, error) {
	if !authz.HasPermission(actor.Role, authz.TicketsViewAll) {
		return nil, apperrors.NewPermissionDenied("role cannot view ticket history")
	}
	if _, err := s.loadTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByTicket(ctx, ticketID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// TicketInsights carries analysis produced outside the lifecycle engines.
type TicketInsights struct {
	Tags              []string
	Sentiment         *string
	SuggestedCategory *string
}

// ApplyInsights writes collaborator-produced analysis onto the ticket. It touches only
// the insight columns and never competes with status writes.
func (s *TicketService) ApplyInsights(ctx context.Context, ticketID string, insights TicketInsights) error {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if insights.Tags != nil {
		ticket.Tags = insights.Tags
	}
	if insights.Sentiment != nil {
		ticket.Sentiment = insights.Sentiment
	}
	if insights.SuggestedCategory != nil {
		ticket.SuggestedCategory = insights.SuggestedCategory
	}
	ticket.UpdatedAt = s.now().UTC()
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// mutateGuarded applies a non-status mutation under the same CAS guard as transitions so
// it cannot land on a ticket whose status moved mid-flight. The mutate closure re-runs
// after a lost race and its changes may never commit, so history writes and event
// publishes belong in the caller, after this returns.
func (s *TicketService) mutateGuarded(ctx context.Context, ticketID string, mutate func(*domain.Ticket, time.Time) error) (*domain.Ticket, error) {
	for attempt := 0; ; attempt++ {
		ticket, err := s.loadTicket(ctx, ticketID)
		if err != nil {
			return nil, err
		}
		expected := ticket.Status

		if err := mutate(ticket, s.now().UTC()); err != nil {
			return nil, err
		}

		err = s.tickets.UpdateWithStatusCheck(ctx, ticket, expected)
		if errors.Is(err, repository.ErrStaleStatus) {
			if attempt == 0 {
				continue
			}
			return nil, apperrors.NewStaleWrite("ticket")
		}
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("ticket", map[string]any{"ticketId": ticketID})
			}
			return nil, apperrors.MapError(err)
		}
		return ticket, nil
	}
}

func (s *TicketService) loadTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticketId": id})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) canView(actor events.Actor, ticket *domain.Ticket) bool {
	if authz.HasPermission(actor.Role, authz.TicketsViewAll) {
		return true
	}
	if ticket.ReportedByID == actor.UserID {
		return true
	}
	if ticket.AssigneeID != nil && *ticket.AssigneeID == actor.UserID {
		return true
	}
	if ticket.EscalatedToID != nil && *ticket.EscalatedToID == actor.UserID {
		return true
	}
	return false
}

// recordHistory appends an audit entry. History is observability, not a ledger the
// mutation depends on; failures are logged and swallowed.
func (s *TicketService) recordHistory(ctx context.Context, ticketID string, actor events.Actor, changeType domain.TicketChangeType, oldValue, newValue map[string]any) {
	changedBy := actor.UserID
	entry := &domain.TicketHistory{
		ID:          uuid.NewString(),
		TicketID:    ticketID,
		ChangedByID: &changedBy,
		ChangeType:  changeType,
		OldValue:    oldValue,
		NewValue:    newValue,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record ticket history",
			zap.String("ticket_id", ticketID),
			zap.String("change_type", string(changeType)),
			zap.Error(err))
	}
}

func (s *TicketService) publish(ctx context.Context, eventType events.EventType, ticketID string, actor events.Actor, payload any) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     actor,
		Timestamp: s.now().UTC(),
		Payload:   payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed",
			zap.String("event_type", string(eventType)),
			zap.String("ticket_id", ticketID),
			zap.Error(err))
	}
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
