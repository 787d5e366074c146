package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/repository/memory"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

var fixedNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

const (
	reporterID = "usr-reporter"
	helperID   = "usr-helper"
	agentID    = "usr-agent"
	managerID  = "usr-manager"
)

var (
	reporter = events.Actor{UserID: reporterID, Role: domain.RoleSupportStaff}
	helper   = events.Actor{UserID: helperID, Role: domain.RoleSupportStaff}
	agent    = events.Actor{UserID: agentID, Role: domain.RoleTeamMember}
	manager  = events.Actor{UserID: managerID, Role: domain.RoleManager}
)

// seqAllocator is a deterministic stand-in for the Redis-backed allocator.
type seqAllocator struct{ n int }

func (a *seqAllocator) Next(context.Context) (string, error) {
	a.n++
	return fmt.Sprintf("TKT-%06d", a.n), nil
}

type staleOnceRepo struct {
	repository.TicketRepository
	interfere func()
	calls     int
}

func (r *staleOnceRepo) UpdateWithStatusCheck(ctx context.Context, ticket *domain.Ticket, expected domain.TicketStatus) error {
	r.calls++
	if r.calls == 1 && r.interfere != nil {
		r.interfere()
	}
	return r.TicketRepository.UpdateWithStatusCheck(ctx, ticket, expected)
}

type alwaysStaleRepo struct{ repository.TicketRepository }

func (r *alwaysStaleRepo) UpdateWithStatusCheck(context.Context, *domain.Ticket, domain.TicketStatus) error {
	return repository.ErrStaleStatus
}

func seedTicketStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	require.NoError(t, store.Categories().Create(ctx, &domain.Category{
		ID: "cat-it", Name: "IT Support", IsActive: true,
	}))
	require.NoError(t, store.Categories().Create(ctx, &domain.Category{
		ID: "cat-fac", Name: "Facilities", IsActive: true,
	}))
	require.NoError(t, store.Subcategories().Create(ctx, &domain.Subcategory{
		ID: "sub-hw", CategoryID: "cat-it", Name: "Hardware Failure", IsActive: true,
		FormFields: []domain.FormField{
			{
				ID: "fld-desc", Label: "Problem Description", Type: domain.FieldTypeLongText,
				IsRequired: true, IsActive: true,
				Validation: []domain.ValidationRule{{Kind: domain.RuleMinLength, Param: "10"}},
			},
		},
	}))

	users := []domain.User{
		{ID: reporterID, FirstName: "Rey", Email: "rey@example.com", Role: domain.RoleSupportStaff, IsActive: true},
		{ID: helperID, FirstName: "Hal", Email: "hal@example.com", Role: domain.RoleSupportStaff, IsActive: true},
		{ID: agentID, FirstName: "Ada", Email: "ada@example.com", Role: domain.RoleTeamMember, IsActive: true},
		{ID: managerID, FirstName: "Mia", Email: "mia@example.com", Role: domain.RoleManager, IsActive: true},
		{ID: "usr-gone", FirstName: "Gus", Email: "gus@example.com", Role: domain.RoleTeamMember, IsActive: false},
	}
	for i := range users {
		require.NoError(t, store.Users().Create(ctx, &users[i]))
	}
	return store
}

func buildTicketService(store *memory.Store, tickets repository.TicketRepository) *TicketService {
	schemas := NewSchemaService(SchemaDependencies{
		SubcategoryRepo: store.Subcategories(),
		FieldGroupRepo:  store.FieldGroups(),
		FormFieldRepo:   store.FormFields(),
		Logger:          zap.NewNop(),
	})
	svc := NewTicketService(TicketDependencies{
		TicketRepo:      tickets,
		CommentRepo:     store.Comments(),
		HistoryRepo:     store.History(),
		UserRepo:        store.Users(),
		CategoryRepo:    store.Categories(),
		SubcategoryRepo: store.Subcategories(),
		SchemaService:   schemas,
		NumberAllocator: &seqAllocator{},
		Logger:          zap.NewNop(),
	})
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func newTicketService(t *testing.T) (*TicketService, *memory.Store) {
	t.Helper()
	store := seedTicketStore(t)
	return buildTicketService(store, store.Tickets()), store
}

func mustCreateTicket(t *testing.T, svc *TicketService, actor events.Actor) *domain.Ticket {
	t.Helper()
	ticket, err := svc.CreateTicket(context.Background(), actor, CreateTicketInput{
		CategoryID:    "cat-it",
		SubcategoryID: "sub-hw",
		Title:         "Laptop will not boot",
		FormData:      domain.FormData{"fld-desc": "Blank screen on power up, battery light blinks"},
	})
	require.NoError(t, err)
	return ticket
}

func TestCreateTicket(t *testing.T) {
	svc, _ := newTicketService(t)

	ticket := mustCreateTicket(t, svc, reporter)

	assert.Equal(t, "TKT-000001", ticket.TicketNumber)
	assert.Equal(t, domain.TicketStatusNew, ticket.Status)
	assert.Equal(t, domain.TicketPriorityNormal, ticket.Priority)
	assert.Equal(t, reporterID, ticket.ReportedByID)
	require.NotNil(t, ticket.SLADeadline)
	assert.Equal(t, fixedNow.Add(72*time.Hour), *ticket.SLADeadline)
	assert.Nil(t, ticket.FirstResponseAt)

	second := mustCreateTicket(t, svc, reporter)
	assert.Equal(t, "TKT-000002", second.TicketNumber)
}

func TestCreateTicketFormValidationFailure(t *testing.T) {
	svc, _ := newTicketService(t)

	_, err := svc.CreateTicket(context.Background(), reporter, CreateTicketInput{
		CategoryID:    "cat-it",
		SubcategoryID: "sub-hw",
		Title:         "Broken laptop",
		FormData:      domain.FormData{"fld-desc": "short"},
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	details := apperrors.ToDomainError(err).Details
	fields, ok := details["fields"].(map[string][]string)
	require.True(t, ok)
	assert.Len(t, fields["fld-desc"], 1)
}

func TestCreateTicketRejectsMismatchedSubcategory(t *testing.T) {
	svc, _ := newTicketService(t)

	_, err := svc.CreateTicket(context.Background(), reporter, CreateTicketInput{
		CategoryID:    "cat-fac",
		SubcategoryID: "sub-hw",
		Title:         "Wrong tree",
		FormData:      domain.FormData{"fld-desc": "long enough description"},
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

func TestCreateTicketRejectsInactiveSubcategory(t *testing.T) {
	svc, store := newTicketService(t)
	ctx := context.Background()

	sub, err := store.Subcategories().GetByID(ctx, "sub-hw")
	require.NoError(t, err)
	sub.IsActive = false
	require.NoError(t, store.Subcategories().Update(ctx, sub))

	_, err = svc.CreateTicket(ctx, reporter, CreateTicketInput{
		CategoryID:    "cat-it",
		SubcategoryID: "sub-hw",
		Title:         "Too late",
		FormData:      domain.FormData{"fld-desc": "long enough description"},
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

func TestCreateTicketRejectsUnknownRole(t *testing.T) {
	svc, _ := newTicketService(t)

	_, err := svc.CreateTicket(context.Background(), events.Actor{UserID: "usr-x", Role: "guest"}, CreateTicketInput{
		CategoryID: "cat-it", SubcategoryID: "sub-hw", Title: "nope",
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodePermissionDenied))
}

func TestTransitionLifecycle(t *testing.T) {
	svc, _ := newTicketService(t)
	ctx := context.Background()
	ticket := mustCreateTicket(t, svc, reporter)

	started, err := svc.Transition(ctx, reporter, ticket.ID, domain.TicketStatusInProgress, "")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, started.Status)
	require.NotNil(t, started.FirstResponseAt)

	resolved, err := svc.Transition(ctx, reporter, ticket.ID, domain.TicketStatusResolved, "swapped the drive")
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedAt)

	// Closing is reserved for managers.
	_, err = svc.Transition(ctx, reporter, ticket.ID, domain.TicketStatusClosed, "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodePermissionDenied))

	closed, err := svc.Transition(ctx, manager, ticket.ID, domain.TicketStatusClosed, "")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)

	reopened, err := svc.Transition(ctx, manager, ticket.ID, domain.TicketStatusInProgress, "came back")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, reopened.Status)
	assert.Nil(t, reopened.ResolvedAt)
	assert.Nil(t, reopened.ClosedAt)

	history, err := svc.ListHistory(ctx, manager, ticket.ID, 50, 0)
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestTransitionRejectsOffTableMove(t *testing.T) {
	svc, _ := newTicketService(t)
	ticket := mustCreateTicket(t, svc, reporter)

	_, err := svc.Transition(context.Background(), manager, ticket.ID, domain.TicketStatusClosed, "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
}

func TestTransitionRetriesAfterLostRace(t *testing.T) {
	store := seedTicketStore(t)
	ctx := context.Background()
	ticket := mustCreateTicket(t, buildTicketService(store, store.Tickets()), reporter)

	wrapped := &staleOnceRepo{TicketRepository: store.Tickets()}
	wrapped.interfere = func() {
		// Another caller starts the ticket between our read and our write.
		current, err := store.Tickets().GetByID(ctx, ticket.ID)
		require.NoError(t, err)
		current.Status = domain.TicketStatusInProgress
		require.NoError(t, store.Tickets().Update(ctx, current))
	}
	svc := buildTicketService(store, wrapped)

	// The retry re-reads in_progress and revalidates the move as the assignment
	// self-loop, which the manager is allowed to make.
	updated, err := svc.Transition(ctx, manager, ticket.ID, domain.TicketStatusInProgress, "")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
	assert.Equal(t, 2, wrapped.calls)
}

func TestTransitionRaceRevalidationFails(t *testing.T) {
	store := seedTicketStore(t)
	ctx := context.Background()
	setup := buildTicketService(store, store.Tickets())
	ticket := mustCreateTicket(t, setup, reporter)
	_, err := setup.Transition(ctx, manager, ticket.ID, domain.TicketStatusInProgress, "")
	require.NoError(t, err)

	wrapped := &staleOnceRepo{TicketRepository: store.Tickets()}
	wrapped.interfere = func() {
		current, getErr := store.Tickets().GetByID(ctx, ticket.ID)
		require.NoError(t, getErr)
		current.Status = domain.TicketStatusResolved
		stamp := fixedNow
		current.ResolvedAt = &stamp
		require.NoError(t, store.Tickets().Update(ctx, current))
	}
	svc := buildTicketService(store, wrapped)

	// Someone else resolved first; re-reading leaves no resolved -> resolved move.
	_, err = svc.Transition(ctx, manager, ticket.ID, domain.TicketStatusResolved, "")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
}

func TestTransitionSurfacesStaleWriteAfterRetry(t *testing.T) {
	store := seedTicketStore(t)
	ctx := context.Background()
	setup := buildTicketService(store, store.Tickets())
	ticket := mustCreateTicket(t, setup, reporter)

	svc := buildTicketService(store, &alwaysStaleRepo{TicketRepository: store.Tickets()})

	_, err := svc.Transition(ctx, reporter, ticket.ID, domain.TicketStatusInProgress, "")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeStaleWrite))
}

func TestAssignTicket(t *testing.T) {
	svc, _ := newTicketService(t)
	ctx := context.Background()
	ticket := mustCreateTicket(t, svc, reporter)

	assigneeID := helperID
	assigned, err := svc.AssignTicket(ctx, manager, ticket.ID, &assigneeID)
	require.NoError(t, err)
	require.NotNil(t, assigned.AssigneeID)
	assert.Equal(t, helperID, *assigned.AssigneeID)

	// Unassign.
	cleared, err := svc.AssignTicket(ctx, manager, ticket.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, cleared.AssigneeID)

	gone := "usr-gone"
	_, err = svc.AssignTicket(ctx, manager, ticket.ID, &gone)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	_, err = svc.AssignTicket(ctx, reporter, ticket.ID, &assigneeID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodePermissionDenied))
}

func TestAssignTicketRejectedInTerminalStates(t *testing.T) {
	svc, _ := newTicketService(t)
	ctx := context.Background()
	ticket := mustCreateTicket(t, svc, reporter)

	_, err := svc.Transition(ctx, reporter, ticket.ID, domain.TicketStatusInProgress, "")
	require.NoError(t, err)
	_, err = svc.Transition(ctx, reporter, ticket.ID, domain.TicketStatusResolved, "")
	require.NoError(t, err)

	assigneeID := helperID
	_, err = svc.AssignTicket(ctx, manager, ticket.ID, &assigneeID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodePreconditionFailed))
}

func TestAssigneeGainsVisibility(t *testing.T) {
	svc, _ := newTicketService(t)
	ctx := context.Background()
	ticket := mustCreateTicket(t, svc, reporter)

	_, err := svc.GetTicket(ctx, helper, ticket.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodePermissionDenied))

	assigneeID := helperID
	_, err = svc.AssignTicket(ctx, manager, ticket.ID, &assigneeID)
	require.NoError(t, err)

	seen, err := svc.GetTicket(ctx, helper, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, seen.ID)
}

func TestListTicketsScopesReportersToTheirOwn(t *testing.T) {
	svc, _ := newTicketService(t)
	ctx := context.Background()
	mustCreateTicket(t, svc, reporter)
	mustCreateTicket(t, svc, manager)

	// Asking for someone else's tickets is overridden, not rejected.
	managerFilter := managerID
	mine, err := svc.ListTickets(ctx, reporter, repository.TicketFilter{ReportedByID: &managerFilter})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, reporterID, mine[0].ReportedByID)

	all, err := svc.ListTickets(ctx, agent, repository.TicketFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestChangePriorityRecomputesAndFreezesSLA(t *testing.T) {
	svc, _ := newTicketService(t)
	ctx := context.Background()
	ticket := mustCreateTicket(t, svc, reporter)

	updated, err := svc.ChangePriority(ctx, agent, ticket.ID, domain.TicketPriorityUrgent)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityUrgent, updated.Priority)
	require.NotNil(t, updated.SLADeadline)
	assert.Equal(t, fixedNow.Add(4*time.Hour), *updated.SLADeadline)

	_, err = svc.Transition(ctx, reporter, ticket.ID, domain.TicketStatusInProgress, "")
	require.NoError(t, err)
	_, err = svc.Transition(ctx, reporter, ticket.ID, domain.TicketStatusResolved, "")
	require.NoError(t, err)

	frozen, err := svc.ChangePriority(ctx, agent, ticket.ID, domain.TicketPriorityLow)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityLow, frozen.Priority)
	assert.Equal(t, fixedNow.Add(4*time.Hour), *frozen.SLADeadline)

	_, err = svc.ChangePriority(ctx, reporter, ticket.ID, domain.TicketPriorityHigh)
	assert.True(t, apperrors.HasCode(err, apperrors.CodePermissionDenied))
}

func TestEscalationCycle(t *testing.T) {
	svc, _ := newTicketService(t)
	ctx := context.Background()
	ticket := mustCreateTicket(t, svc, reporter)

	escalated, err := svc.Escalate(ctx, agent, ticket.ID, managerID, "no response in 3 days")
	require.NoError(t, err)
	assert.True(t, escalated.IsEscalated)
	require.NotNil(t, escalated.EscalatedToID)
	assert.Equal(t, managerID, *escalated.EscalatedToID)

	_, err = svc.Escalate(ctx, agent, ticket.ID, "", "still stuck")
	assert.True(t, apperrors.HasCode(err, apperrors.CodePreconditionFailed))

	_, err = svc.Deescalate(ctx, agent, ticket.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodePermissionDenied))

	calmed, err := svc.Deescalate(ctx, manager, ticket.ID)
	require.NoError(t, err)
	assert.False(t, calmed.IsEscalated)
	assert.Nil(t, calmed.EscalatedToID)

	again, err := svc.Escalate(ctx, agent, ticket.ID, "", "stuck again")
	require.NoError(t, err)
	assert.True(t, again.IsEscalated)
}

func TestGuardedMutationEmitsHistoryOnlyAfterCommit(t *testing.T) {
	store := seedTicketStore(t)
	ctx := context.Background()
	ticket := mustCreateTicket(t, buildTicketService(store, store.Tickets()), reporter)

	// A write that never lands must leave no audit trail behind.
	stale := buildTicketService(store, &alwaysStaleRepo{TicketRepository: store.Tickets()})
	_, err := stale.Escalate(ctx, agent, ticket.ID, managerID, "no movement")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeStaleWrite))

	unchanged, err := store.Tickets().GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.False(t, unchanged.IsEscalated)

	entries, err := store.History().ListByTicket(ctx, ticket.ID, 50, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// A lost race that commits on the retry records the escalation exactly once.
	wrapped := &staleOnceRepo{TicketRepository: store.Tickets()}
	wrapped.interfere = func() {
		current, getErr := store.Tickets().GetByID(ctx, ticket.ID)
		require.NoError(t, getErr)
		current.Status = domain.TicketStatusInProgress
		require.NoError(t, store.Tickets().Update(ctx, current))
	}
	svc := buildTicketService(store, wrapped)
	escalated, err := svc.Escalate(ctx, agent, ticket.ID, managerID, "no movement")
	require.NoError(t, err)
	assert.True(t, escalated.IsEscalated)
	assert.Equal(t, 2, wrapped.calls)

	entries, err = store.History().ListByTicket(ctx, ticket.ID, 50, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ChangeTypeEscalation, entries[0].ChangeType)
}

func TestCommentsVisibility(t *testing.T) {
	svc, _ := newTicketService(t)
	ctx := context.Background()
	ticket := mustCreateTicket(t, svc, reporter)

	_, err := svc.AddComment(ctx, reporter, ticket.ID, "any update?", false)
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, manager, ticket.ID, "customer sounds frustrated", true)
	require.NoError(t, err)

	// Reporters cannot write internal notes.
	_, err = svc.AddComment(ctx, reporter, ticket.ID, "sneaky", true)
	assert.True(t, apperrors.HasCode(err, apperrors.CodePermissionDenied))

	// Unrelated staff cannot see the ticket at all.
	_, err = svc.AddComment(ctx, helper, ticket.ID, "me too", false)
	assert.True(t, apperrors.HasCode(err, apperrors.CodePermissionDenied))

	visible, err := svc.ListComments(ctx, reporter, ticket.ID)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "any update?", visible[0].Body)

	staffView, err := svc.ListComments(ctx, manager, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, staffView, 2)
}

func TestListHistoryRequiresViewAll(t *testing.T) {
	svc, _ := newTicketService(t)
	ctx := context.Background()
	ticket := mustCreateTicket(t, svc, reporter)

	_, err := svc.ListHistory(ctx, reporter, ticket.ID, 50, 0)
	assert.True(t, apperrors.HasCode(err, apperrors.CodePermissionDenied))
}

func TestApplyInsights(t *testing.T) {
	svc, store := newTicketService(t)
	ctx := context.Background()
	ticket := mustCreateTicket(t, svc, reporter)

	sentiment := "negative"
	require.NoError(t, svc.ApplyInsights(ctx, ticket.ID, TicketInsights{
		Tags:      []string{"hardware", "boot"},
		Sentiment: &sentiment,
	}))

	stored, err := store.Tickets().GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"hardware", "boot"}, stored.Tags)
	require.NotNil(t, stored.Sentiment)
	assert.Equal(t, "negative", *stored.Sentiment)
	// Untouched columns survive.
	assert.Equal(t, domain.TicketStatusNew, stored.Status)
}

func TestGetTicketByNumber(t *testing.T) {
	svc, _ := newTicketService(t)
	ctx := context.Background()
	ticket := mustCreateTicket(t, svc, reporter)

	found, err := svc.GetTicketByNumber(ctx, reporter, ticket.TicketNumber)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, found.ID)

	_, err = svc.GetTicketByNumber(ctx, reporter, "TKT-999999")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}
