package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/forms"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// SchemaService resolves subcategory form schemas and keeps the denormalized
// Subcategory.FormFields cache in sync with the normalized group/field source.
type SchemaService struct {
	subcategories repository.SubcategoryRepository
	groups        repository.FieldGroupRepository
	fields        repository.FormFieldRepository
	evaluator     *forms.Evaluator
	logger        *zap.Logger
}

// SchemaDependencies bundles repositories for the schema service.
type SchemaDependencies struct {
	SubcategoryRepo repository.SubcategoryRepository
	FieldGroupRepo  repository.FieldGroupRepository
	FormFieldRepo   repository.FormFieldRepository
	Logger          *zap.Logger
}

// NewSchemaService constructs the service.
func NewSchemaService(deps SchemaDependencies) *SchemaService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchemaService{
		subcategories: deps.SubcategoryRepo,
		groups:        deps.FieldGroupRepo,
		fields:        deps.FormFieldRepo,
		evaluator:     forms.NewEvaluator(),
		logger:        logger,
	}
}

// Evaluator exposes the rule evaluator so callers can register custom validators.
func (s *SchemaService) Evaluator() *forms.Evaluator {
	return s.evaluator
}

// ResolveSchema flattens the subcategory's field groups into the ordered, deduplicated
// schema, resolving from the normalized source rather than the cache.
func (s *SchemaService) ResolveSchema(ctx context.Context, subcategoryID string) ([]domain.FormField, error) {
	if _, err := s.subcategories.GetByID(ctx, subcategoryID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("subcategory", map[string]any{"subCategoryId": subcategoryID})
		}
		return nil, apperrors.MapError(err)
	}
	groups, err := s.groups.ListBySubcategory(ctx, subcategoryID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	fieldIDs := make([]string, 0)
	for _, group := range groups {
		fieldIDs = append(fieldIDs, group.FieldIDs...)
	}
	fields, err := s.fields.GetByIDs(ctx, fieldIDs)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return forms.Resolve(groups, fields), nil
}

// RecomputeCache re-resolves the schema and persists it on the subcategory. Called
// synchronously from every mutation touching the subcategory's groups or fields;
// staleness between the cache and the live resolution is a bug, not an accepted window.
func (s *SchemaService) RecomputeCache(ctx context.Context, subcategoryID string) ([]domain.FormField, error) {
	schema, err := s.ResolveSchema(ctx, subcategoryID)
	if err != nil {
		return nil, err
	}
	if err := s.subcategories.UpdateFormFields(ctx, subcategoryID, schema); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("subcategory", map[string]any{"subCategoryId": subcategoryID})
		}
		return nil, apperrors.MapError(err)
	}
	s.logger.Debug("form schema cache recomputed",
		zap.String("subcategory_id", subcategoryID),
		zap.Int("field_count", len(schema)))
	return schema, nil
}

// ValidateSubmission checks formData against the subcategory's cached schema — the
// cache is the only thing the submission form reads. Returns a ValidationFailed error
// carrying the complete fieldId -> messages map when any field fails.
func (s *SchemaService) ValidateSubmission(ctx context.Context, subcategoryID string, data domain.FormData) error {
	subcategory, err := s.subcategories.GetByID(ctx, subcategoryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("subcategory", map[string]any{"subCategoryId": subcategoryID})
		}
		return apperrors.MapError(err)
	}
	fieldErrors := forms.ValidateSubmission(s.evaluator, subcategory.FormFields, data)
	if len(fieldErrors) > 0 {
		return apperrors.NewValidationFailed("form submission failed validation", fieldErrors)
	}
	return nil
}
