package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/authz"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// TaxonomyService administers the category tree and the form building blocks behind it.
// Every mutation that can change a subcategory's resolved schema recomputes the cache
// before returning.
type TaxonomyService struct {
	categories    repository.CategoryRepository
	subcategories repository.SubcategoryRepository
	groups        repository.FieldGroupRepository
	fields        repository.FormFieldRepository
	schemas       *SchemaService
	logger        *zap.Logger
}

// TaxonomyDependencies bundles dependencies for the taxonomy service.
type TaxonomyDependencies struct {
	CategoryRepo    repository.CategoryRepository
	SubcategoryRepo repository.SubcategoryRepository
	FieldGroupRepo  repository.FieldGroupRepository
	FormFieldRepo   repository.FormFieldRepository
	SchemaService   *SchemaService
	Logger          *zap.Logger
}

// NewTaxonomyService constructs the service.
func NewTaxonomyService(deps TaxonomyDependencies) *TaxonomyService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaxonomyService{
		categories:    deps.CategoryRepo,
		subcategories: deps.SubcategoryRepo,
		groups:        deps.FieldGroupRepo,
		fields:        deps.FormFieldRepo,
		schemas:       deps.SchemaService,
		logger:        logger,
	}
}

// CreateCategory registers a new top-level category. Names are unique
// case-insensitively.
func (s *TaxonomyService) CreateCategory(ctx context.Context, actor events.Actor, category *domain.Category) error {
	if !authz.HasPermission(actor.Role, authz.TaxonomyManage) {
		return apperrors.NewPermissionDenied("role cannot manage the taxonomy")
	}
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return apperrors.NewValidationError("category name is required", nil)
	}
	if existing, err := s.categories.GetByName(ctx, category.Name); err == nil && existing != nil {
		return apperrors.NewConflict("category name already in use", map[string]any{"name": category.Name})
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return apperrors.MapError(err)
	}
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	category.IsActive = true
	if err := s.categories.Create(ctx, category); err != nil {
		return apperrors.MapError(err)
	}
	s.logger.Info("category created",
		zap.String("category_id", category.ID),
		zap.String("name", category.Name))
	return nil
}

// UpdateCategory applies administrative edits, including deactivation.
func (s *TaxonomyService) UpdateCategory(ctx context.Context, actor events.Actor, category *domain.Category) error {
	if !authz.HasPermission(actor.Role, authz.TaxonomyManage) {
		return apperrors.NewPermissionDenied("role cannot manage the taxonomy")
	}
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return apperrors.NewValidationError("category name is required", nil)
	}
	if existing, err := s.categories.GetByName(ctx, category.Name); err == nil && existing.ID != category.ID {
		return apperrors.NewConflict("category name already in use", map[string]any{"name": category.Name})
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return apperrors.MapError(err)
	}
	if err := s.categories.Update(ctx, category); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("category", map[string]any{"categoryId": category.ID})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// GetCategory returns a category by id.
func (s *TaxonomyService) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("category", map[string]any{"categoryId": id})
		}
		return nil, apperrors.MapError(err)
	}
	return category, nil
}

// ListCategories returns active categories for the submission form. Any authenticated
// caller can browse the taxonomy.
func (s *TaxonomyService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.categories.ListActive(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return categories, nil
}

// CreateSubcategory registers a subcategory under an existing category.
func (s *TaxonomyService) CreateSubcategory(ctx context.Context, actor events.Actor, subcategory *domain.Subcategory) error {
	if !authz.HasPermission(actor.Role, authz.TaxonomyManage) {
		return apperrors.NewPermissionDenied("role cannot manage the taxonomy")
	}
	subcategory.Name = strings.TrimSpace(subcategory.Name)
	if subcategory.Name == "" {
		return apperrors.NewValidationError("subcategory name is required", nil)
	}
	if _, err := s.categories.GetByID(ctx, subcategory.CategoryID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("category", map[string]any{"categoryId": subcategory.CategoryID})
		}
		return apperrors.MapError(err)
	}
	if existing, err := s.subcategories.GetByName(ctx, subcategory.CategoryID, subcategory.Name); err == nil && existing != nil {
		return apperrors.NewConflict("subcategory name already in use within category", map[string]any{"name": subcategory.Name})
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return apperrors.MapError(err)
	}
	if subcategory.ID == "" {
		subcategory.ID = uuid.NewString()
	}
	subcategory.IsActive = true
	if subcategory.FormFields == nil {
		subcategory.FormFields = []domain.FormField{}
	}
	if err := s.subcategories.Create(ctx, subcategory); err != nil {
		return apperrors.MapError(err)
	}
	s.logger.Info("subcategory created",
		zap.String("subcategory_id", subcategory.ID),
		zap.String("category_id", subcategory.CategoryID),
		zap.String("name", subcategory.Name))
	return nil
}

// UpdateSubcategory applies administrative edits. The schema cache is not touched here;
// it only changes through group/field mutations.
func (s *TaxonomyService) UpdateSubcategory(ctx context.Context, actor events.Actor, subcategory *domain.Subcategory) error {
	if !authz.HasPermission(actor.Role, authz.TaxonomyManage) {
		return apperrors.NewPermissionDenied("role cannot manage the taxonomy")
	}
	subcategory.Name = strings.TrimSpace(subcategory.Name)
	if subcategory.Name == "" {
		return apperrors.NewValidationError("subcategory name is required", nil)
	}
	current, err := s.subcategories.GetByID(ctx, subcategory.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("subcategory", map[string]any{"subCategoryId": subcategory.ID})
		}
		return apperrors.MapError(err)
	}
	// The cache column is owned by RecomputeCache; carry the stored value through.
	subcategory.CategoryID = current.CategoryID
	subcategory.FormFields = current.FormFields
	if err := s.subcategories.Update(ctx, subcategory); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// GetSubcategory returns a subcategory by id, including its cached schema.
func (s *TaxonomyService) GetSubcategory(ctx context.Context, id string) (*domain.Subcategory, error) {
	subcategory, err := s.subcategories.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("subcategory", map[string]any{"subCategoryId": id})
		}
		return nil, apperrors.MapError(err)
	}
	return subcategory, nil
}

// ListSubcategories returns all subcategories under a category.
func (s *TaxonomyService) ListSubcategories(ctx context.Context, categoryID string) ([]domain.Subcategory, error) {
	if _, err := s.categories.GetByID(ctx, categoryID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("category", map[string]any{"categoryId": categoryID})
		}
		return nil, apperrors.MapError(err)
	}
	subcategories, err := s.subcategories.ListByCategory(ctx, categoryID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return subcategories, nil
}

// UpsertFieldGroup creates or updates a field group, then synchronously recomputes the
// owning subcategory's schema cache.
func (s *TaxonomyService) UpsertFieldGroup(ctx context.Context, actor events.Actor, group *domain.FieldGroup) error {
	if !authz.HasPermission(actor.Role, authz.FormsManage) {
		return apperrors.NewPermissionDenied("role cannot manage form schemas")
	}
	group.Name = strings.TrimSpace(group.Name)
	if group.Name == "" {
		return apperrors.NewValidationError("field group name is required", nil)
	}
	subcategory, err := s.subcategories.GetByID(ctx, group.SubcategoryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("subcategory", map[string]any{"subCategoryId": group.SubcategoryID})
		}
		return apperrors.MapError(err)
	}
	if group.CategoryID != subcategory.CategoryID {
		return apperrors.NewValidationError("field group category does not match its subcategory",
			map[string]any{"categoryId": group.CategoryID, "subCategoryId": group.SubcategoryID})
	}
	if err := s.verifyFieldIDs(ctx, group.FieldIDs); err != nil {
		return err
	}
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	if err := s.groups.Upsert(ctx, group); err != nil {
		return apperrors.MapError(err)
	}
	if _, err := s.schemas.RecomputeCache(ctx, group.SubcategoryID); err != nil {
		return err
	}
	return nil
}

// DeleteFieldGroup removes a group and recomputes the affected schema cache.
func (s *TaxonomyService) DeleteFieldGroup(ctx context.Context, actor events.Actor, id string) error {
	if !authz.HasPermission(actor.Role, authz.FormsManage) {
		return apperrors.NewPermissionDenied("role cannot manage form schemas")
	}
	group, err := s.groups.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("field group", map[string]any{"fieldGroupId": id})
		}
		return apperrors.MapError(err)
	}
	if err := s.groups.Delete(ctx, id); err != nil {
		return apperrors.MapError(err)
	}
	if _, err := s.schemas.RecomputeCache(ctx, group.SubcategoryID); err != nil {
		return err
	}
	return nil
}

// UpsertFormField creates or updates a field definition, then recomputes the cache of
// every subcategory whose groups reference it.
func (s *TaxonomyService) UpsertFormField(ctx context.Context, actor events.Actor, field *domain.FormField) error {
	if !authz.HasPermission(actor.Role, authz.FormsManage) {
		return apperrors.NewPermissionDenied("role cannot manage form schemas")
	}
	field.Label = strings.TrimSpace(field.Label)
	if field.Label == "" {
		return apperrors.NewValidationError("field label is required", nil)
	}
	if !field.Type.Valid() {
		return apperrors.NewValidationError("unknown field type", map[string]any{"fieldType": string(field.Type)})
	}
	if field.Type.IsChoice() && len(field.Options) == 0 {
		return apperrors.NewValidationError("choice fields require at least one option", map[string]any{"fieldType": string(field.Type)})
	}
	for _, rule := range field.Validation {
		if !rule.Kind.Valid() {
			return apperrors.NewValidationError("unknown validation rule kind", map[string]any{"kind": string(rule.Kind)})
		}
	}
	if field.ID == "" {
		field.ID = uuid.NewString()
	}
	if err := s.fields.Upsert(ctx, field); err != nil {
		return apperrors.MapError(err)
	}
	return s.recomputeReferencing(ctx, field.ID)
}

// DeactivateFormField soft-deletes a field. Referencing groups keep the id, but
// resolution drops inactive fields, so affected caches shrink immediately.
func (s *TaxonomyService) DeactivateFormField(ctx context.Context, actor events.Actor, id string) error {
	if !authz.HasPermission(actor.Role, authz.FormsManage) {
		return apperrors.NewPermissionDenied("role cannot manage form schemas")
	}
	if err := s.fields.Deactivate(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("form field", map[string]any{"fieldId": id})
		}
		return apperrors.MapError(err)
	}
	return s.recomputeReferencing(ctx, id)
}

// SearchFormFields finds field definitions by label for the form builder UI.
func (s *TaxonomyService) SearchFormFields(ctx context.Context, actor events.Actor, term string, limit int) ([]domain.FormField, error) {
	if !authz.HasPermission(actor.Role, authz.FormsManage) {
		return nil, apperrors.NewPermissionDenied("role cannot manage form schemas")
	}
	fields, err := s.fields.SearchByLabel(ctx, term, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return fields, nil
}

func (s *TaxonomyService) verifyFieldIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := s.fields.GetByIDs(ctx, ids)
	if err != nil {
		return apperrors.MapError(err)
	}
	var missing []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("field group references unknown fields", map[string]any{"fieldIds": missing})
	}
	return nil
}

func (s *TaxonomyService) recomputeReferencing(ctx context.Context, fieldID string) error {
	groups, err := s.groups.ListByFieldID(ctx, fieldID)
	if err != nil {
		return apperrors.MapError(err)
	}
	seen := make(map[string]struct{}, len(groups))
	for _, group := range groups {
		if _, done := seen[group.SubcategoryID]; done {
			continue
		}
		seen[group.SubcategoryID] = struct{}{}
		if _, err := s.schemas.RecomputeCache(ctx, group.SubcategoryID); err != nil {
			return err
		}
	}
	return nil
}
