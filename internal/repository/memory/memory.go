// Package memory provides in-memory implementations of the repository interfaces.
// They back the service when no database is configured and double as fixtures for
// service-level tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
)

// Store holds every entity map behind one mutex. Operations mimic the Postgres
// repositories, including pgx.ErrNoRows for misses and ErrStaleStatus for lost
// compare-and-set races.
type Store struct {
	mu            sync.RWMutex
	categories    map[string]domain.Category
	subcategories map[string]domain.Subcategory
	groups        map[string]domain.FieldGroup
	fields        map[string]domain.FormField
	tickets       map[string]domain.Ticket
	comments      map[string][]domain.TicketComment
	history       map[string][]domain.TicketHistory
	users         map[string]domain.User
}

// NewStore builds an empty store.
func NewStore() *Store {
	return &Store{
		categories:    make(map[string]domain.Category),
		subcategories: make(map[string]domain.Subcategory),
		groups:        make(map[string]domain.FieldGroup),
		fields:        make(map[string]domain.FormField),
		tickets:       make(map[string]domain.Ticket),
		comments:      make(map[string][]domain.TicketComment),
		history:       make(map[string][]domain.TicketHistory),
		users:         make(map[string]domain.User),
	}
}

// Categories returns the in-memory category repository.
func (s *Store) Categories() repository.CategoryRepository { return &categoryRepo{s} }

// Subcategories returns the in-memory subcategory repository.
func (s *Store) Subcategories() repository.SubcategoryRepository { return &subcategoryRepo{s} }

// FieldGroups returns the in-memory field group repository.
func (s *Store) FieldGroups() repository.FieldGroupRepository { return &fieldGroupRepo{s} }

// FormFields returns the in-memory form field repository.
func (s *Store) FormFields() repository.FormFieldRepository { return &formFieldRepo{s} }

// Tickets returns the in-memory ticket repository.
func (s *Store) Tickets() repository.TicketRepository { return &ticketRepo{s} }

// Comments returns the in-memory comment repository.
func (s *Store) Comments() repository.TicketCommentRepository { return &commentRepo{s} }

// History returns the in-memory history repository.
func (s *Store) History() repository.TicketHistoryRepository { return &historyRepo{s} }

// Users returns the in-memory user repository.
func (s *Store) Users() repository.UserRepository { return &userRepo{s} }

type categoryRepo struct{ store *Store }

func (r *categoryRepo) Create(_ context.Context, category *domain.Category) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	now := time.Now()
	category.CreatedAt = now
	category.UpdatedAt = now
	r.store.categories[category.ID] = *category
	return nil
}

func (r *categoryRepo) Update(_ context.Context, category *domain.Category) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.categories[category.ID]; !ok {
		return pgx.ErrNoRows
	}
	category.UpdatedAt = time.Now()
	r.store.categories[category.ID] = *category
	return nil
}

func (r *categoryRepo) GetByID(_ context.Context, id string) (*domain.Category, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	category, ok := r.store.categories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &category, nil
}

func (r *categoryRepo) GetByName(_ context.Context, name string) (*domain.Category, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, category := range r.store.categories {
		if strings.EqualFold(category.Name, name) {
			found := category
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *categoryRepo) ListActive(_ context.Context) ([]domain.Category, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var result []domain.Category
	for _, category := range r.store.categories {
		if category.IsActive {
			result = append(result, category)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

type subcategoryRepo struct{ store *Store }

func (r *subcategoryRepo) Create(_ context.Context, subcategory *domain.Subcategory) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	now := time.Now()
	subcategory.CreatedAt = now
	subcategory.UpdatedAt = now
	r.store.subcategories[subcategory.ID] = cloneSubcategory(*subcategory)
	return nil
}

func (r *subcategoryRepo) Update(_ context.Context, subcategory *domain.Subcategory) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.subcategories[subcategory.ID]; !ok {
		return pgx.ErrNoRows
	}
	subcategory.UpdatedAt = time.Now()
	r.store.subcategories[subcategory.ID] = cloneSubcategory(*subcategory)
	return nil
}

func (r *subcategoryRepo) UpdateFormFields(_ context.Context, id string, fields []domain.FormField) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	subcategory, ok := r.store.subcategories[id]
	if !ok {
		return pgx.ErrNoRows
	}
	subcategory.FormFields = append([]domain.FormField(nil), fields...)
	subcategory.UpdatedAt = time.Now()
	r.store.subcategories[id] = subcategory
	return nil
}

func (r *subcategoryRepo) GetByID(_ context.Context, id string) (*domain.Subcategory, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	subcategory, ok := r.store.subcategories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	found := cloneSubcategory(subcategory)
	return &found, nil
}

func (r *subcategoryRepo) GetByName(_ context.Context, categoryID, name string) (*domain.Subcategory, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, subcategory := range r.store.subcategories {
		if subcategory.CategoryID == categoryID && strings.EqualFold(subcategory.Name, name) {
			found := cloneSubcategory(subcategory)
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *subcategoryRepo) ListByCategory(_ context.Context, categoryID string) ([]domain.Subcategory, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var result []domain.Subcategory
	for _, subcategory := range r.store.subcategories {
		if subcategory.CategoryID == categoryID {
			result = append(result, cloneSubcategory(subcategory))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

type fieldGroupRepo struct{ store *Store }

func (r *fieldGroupRepo) Upsert(_ context.Context, group *domain.FieldGroup) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	now := time.Now()
	if existing, ok := r.store.groups[group.ID]; ok {
		group.CreatedAt = existing.CreatedAt
	} else {
		group.CreatedAt = now
	}
	group.UpdatedAt = now
	r.store.groups[group.ID] = cloneGroup(*group)
	return nil
}

func (r *fieldGroupRepo) GetByID(_ context.Context, id string) (*domain.FieldGroup, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	group, ok := r.store.groups[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	found := cloneGroup(group)
	return &found, nil
}

func (r *fieldGroupRepo) ListBySubcategory(_ context.Context, subcategoryID string) ([]domain.FieldGroup, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var result []domain.FieldGroup
	for _, group := range r.store.groups {
		if group.SubcategoryID == subcategoryID {
			result = append(result, cloneGroup(group))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].OrderIndex != result[j].OrderIndex {
			return result[i].OrderIndex < result[j].OrderIndex
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *fieldGroupRepo) ListByFieldID(_ context.Context, fieldID string) ([]domain.FieldGroup, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var result []domain.FieldGroup
	for _, group := range r.store.groups {
		for _, id := range group.FieldIDs {
			if id == fieldID {
				result = append(result, cloneGroup(group))
				break
			}
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].OrderIndex != result[j].OrderIndex {
			return result[i].OrderIndex < result[j].OrderIndex
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *fieldGroupRepo) Delete(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.groups[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.store.groups, id)
	return nil
}

type formFieldRepo struct{ store *Store }

func (r *formFieldRepo) Upsert(_ context.Context, field *domain.FormField) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	now := time.Now()
	if existing, ok := r.store.fields[field.ID]; ok {
		field.CreatedAt = existing.CreatedAt
	} else {
		field.CreatedAt = now
	}
	field.UpdatedAt = now
	r.store.fields[field.ID] = cloneField(*field)
	return nil
}

func (r *formFieldRepo) GetByID(_ context.Context, id string) (*domain.FormField, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	field, ok := r.store.fields[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	found := cloneField(field)
	return &found, nil
}

func (r *formFieldRepo) GetByIDs(_ context.Context, ids []string) (map[string]domain.FormField, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	result := make(map[string]domain.FormField, len(ids))
	for _, id := range ids {
		if field, ok := r.store.fields[id]; ok {
			result[id] = cloneField(field)
		}
	}
	return result, nil
}

func (r *formFieldRepo) SearchByLabel(_ context.Context, term string, limit int) ([]domain.FormField, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if limit <= 0 {
		limit = 50
	}
	var result []domain.FormField
	for _, field := range r.store.fields {
		if strings.Contains(strings.ToLower(field.Label), strings.ToLower(term)) {
			result = append(result, cloneField(field))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Label < result[j].Label })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *formFieldRepo) Deactivate(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	field, ok := r.store.fields[id]
	if !ok {
		return pgx.ErrNoRows
	}
	field.IsActive = false
	field.UpdatedAt = time.Now()
	r.store.fields[id] = field
	return nil
}

type ticketRepo struct{ store *Store }

func (r *ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (r *ticketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.store.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (r *ticketRepo) UpdateWithStatusCheck(_ context.Context, ticket *domain.Ticket, expected domain.TicketStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	stored, ok := r.store.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Status != expected {
		return repository.ErrStaleStatus
	}
	r.store.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (r *ticketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	ticket, ok := r.store.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	found := cloneTicket(ticket)
	return &found, nil
}

func (r *ticketRepo) GetByNumber(_ context.Context, number string) (*domain.Ticket, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, ticket := range r.store.tickets {
		if ticket.TicketNumber == number {
			found := cloneTicket(ticket)
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *ticketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var result []domain.Ticket
	for _, ticket := range r.store.tickets {
		if !matchesFilter(ticket, filter) {
			continue
		}
		result = append(result, cloneTicket(ticket))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UpdatedAt.After(result[j].UpdatedAt) })

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func matchesFilter(ticket domain.Ticket, filter repository.TicketFilter) bool {
	if filter.ReportedByID != nil && ticket.ReportedByID != *filter.ReportedByID {
		return false
	}
	if filter.AssigneeID != nil && (ticket.AssigneeID == nil || *ticket.AssigneeID != *filter.AssigneeID) {
		return false
	}
	if filter.CategoryID != nil && ticket.CategoryID != *filter.CategoryID {
		return false
	}
	if filter.SubcategoryID != nil && ticket.SubcategoryID != *filter.SubcategoryID {
		return false
	}
	if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
		return false
	}
	if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, ticket.Priority) {
		return false
	}
	if filter.Escalated != nil && ticket.IsEscalated != *filter.Escalated {
		return false
	}
	if filter.CreatedFrom != nil && ticket.CreatedAt.Before(*filter.CreatedFrom) {
		return false
	}
	if filter.CreatedTo != nil && ticket.CreatedAt.After(*filter.CreatedTo) {
		return false
	}
	if filter.SearchTerm != nil {
		term := strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
		if term != "" &&
			!strings.Contains(strings.ToLower(ticket.Title), term) &&
			!strings.Contains(strings.ToLower(ticket.Description), term) {
			return false
		}
	}
	return true
}

func containsStatus(list []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, candidate := range list {
		if candidate == status {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.TicketPriority, priority domain.TicketPriority) bool {
	for _, candidate := range list {
		if candidate == priority {
			return true
		}
	}
	return false
}

type commentRepo struct{ store *Store }

func (r *commentRepo) Create(_ context.Context, comment *domain.TicketComment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	comment.CreatedAt = time.Now()
	r.store.comments[comment.TicketID] = append(r.store.comments[comment.TicketID], *comment)
	return nil
}

func (r *commentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketComment, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return append([]domain.TicketComment(nil), r.store.comments[ticketID]...), nil
}

type historyRepo struct{ store *Store }

func (r *historyRepo) Create(_ context.Context, entry *domain.TicketHistory) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	entry.CreatedAt = time.Now()
	r.store.history[entry.TicketID] = append(r.store.history[entry.TicketID], *entry)
	return nil
}

func (r *historyRepo) ListByTicket(_ context.Context, ticketID string, limit, offset int) ([]domain.TicketHistory, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	entries := append([]domain.TicketHistory(nil), r.store.history[ticketID]...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) })
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(entries) {
		return nil, nil
	}
	entries = entries[offset:]
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

type userRepo struct{ store *Store }

func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.store.users[user.ID] = *user
	return nil
}

func (r *userRepo) Update(_ context.Context, user *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	user.UpdatedAt = time.Now()
	r.store.users[user.ID] = *user
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	user, ok := r.store.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, user := range r.store.users {
		if strings.EqualFold(user.Email, email) {
			found := user
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func cloneSubcategory(subcategory domain.Subcategory) domain.Subcategory {
	subcategory.FormFields = append([]domain.FormField(nil), subcategory.FormFields...)
	return subcategory
}

func cloneGroup(group domain.FieldGroup) domain.FieldGroup {
	group.FieldIDs = append([]string(nil), group.FieldIDs...)
	return group
}

func cloneField(field domain.FormField) domain.FormField {
	field.Options = append([]string(nil), field.Options...)
	field.Validation = append([]domain.ValidationRule(nil), field.Validation...)
	return field
}

func cloneTicket(ticket domain.Ticket) domain.Ticket {
	if ticket.FormData != nil {
		data := make(domain.FormData, len(ticket.FormData))
		for key, value := range ticket.FormData {
			data[key] = value
		}
		ticket.FormData = data
	}
	ticket.Tags = append([]string(nil), ticket.Tags...)
	return ticket
}
