package seeder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/service"
)

// Seeder loads the template taxonomy. It is idempotent: taxonomy ids are derived from
// the template names and field ids come from the templates themselves, so a re-run
// updates rows in place and then recomputes schema caches.
type Seeder struct {
	categories    repository.CategoryRepository
	subcategories repository.SubcategoryRepository
	groups        repository.FieldGroupRepository
	fields        repository.FormFieldRepository
	schemas       *service.SchemaService
	logger        *zap.Logger
}

// New builds a seeder.
func New(
	categories repository.CategoryRepository,
	subcategories repository.SubcategoryRepository,
	groups repository.FieldGroupRepository,
	fields repository.FormFieldRepository,
	schemas *service.SchemaService,
	logger *zap.Logger,
) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{
		categories:    categories,
		subcategories: subcategories,
		groups:        groups,
		fields:        fields,
		schemas:       schemas,
		logger:        logger,
	}
}

// Run seeds all templates.
func (s *Seeder) Run(ctx context.Context, templates []CategoryTemplate) error {
	for _, tpl := range templates {
		if err := s.seedCategory(ctx, tpl); err != nil {
			return fmt.Errorf("seed category %q: %w", tpl.Name, err)
		}
	}
	return nil
}

func (s *Seeder) seedCategory(ctx context.Context, tpl CategoryTemplate) error {
	categoryID := slug("cat", tpl.Name)
	category := &domain.Category{
		ID:          categoryID,
		Name:        tpl.Name,
		Description: tpl.Description,
		Icon:        tpl.Icon,
		Color:       tpl.Color,
		IsActive:    true,
	}

	existing, err := s.categories.GetByID(ctx, categoryID)
	switch {
	case err == nil:
		category.CreatedAt = existing.CreatedAt
		if err := s.categories.Update(ctx, category); err != nil {
			return err
		}
	case errors.Is(err, pgx.ErrNoRows):
		if err := s.categories.Create(ctx, category); err != nil {
			return err
		}
	default:
		return err
	}

	for _, subTpl := range tpl.Subcategories {
		if err := s.seedSubcategory(ctx, categoryID, subTpl); err != nil {
			return fmt.Errorf("subcategory %q: %w", subTpl.Name, err)
		}
	}
	s.logger.Info("seeded category", zap.String("category_id", categoryID), zap.String("name", tpl.Name))
	return nil
}

func (s *Seeder) seedSubcategory(ctx context.Context, categoryID string, tpl SubcategoryTemplate) error {
	subcategoryID := slug("sub", categoryID, tpl.Name)
	subcategory := &domain.Subcategory{
		ID:          subcategoryID,
		CategoryID:  categoryID,
		Name:        tpl.Name,
		Description: tpl.Description,
		IsActive:    true,
	}

	existing, err := s.subcategories.GetByID(ctx, subcategoryID)
	switch {
	case err == nil:
		subcategory.FormFields = existing.FormFields
		if err := s.subcategories.Update(ctx, subcategory); err != nil {
			return err
		}
	case errors.Is(err, pgx.ErrNoRows):
		if err := s.subcategories.Create(ctx, subcategory); err != nil {
			return err
		}
	default:
		return err
	}

	for groupIndex, groupTpl := range tpl.Groups {
		fieldIDs := make([]string, 0, len(groupTpl.Fields))
		for fieldIndex, fieldTpl := range groupTpl.Fields {
			// The template-declared id is the stable key historical formData hangs off;
			// the slug fallback is label-derived and breaks on renames.
			fieldID := fieldTpl.ID
			if fieldID == "" {
				fieldID = slug("fld", subcategoryID, groupTpl.Name, fieldTpl.Label)
			}
			field := &domain.FormField{
				ID:          fieldID,
				Label:       fieldTpl.Label,
				Type:        fieldTpl.Type,
				Options:     fieldTpl.Options,
				IsRequired:  fieldTpl.IsRequired,
				IsHidden:    fieldTpl.IsHidden,
				Description: fieldTpl.Description,
				OrderIndex:  fieldIndex,
				Validation:  fieldTpl.Validation,
				IsActive:    true,
			}
			if err := s.fields.Upsert(ctx, field); err != nil {
				return fmt.Errorf("field %q: %w", fieldTpl.Label, err)
			}
			fieldIDs = append(fieldIDs, fieldID)
		}

		group := &domain.FieldGroup{
			ID:                   slug("grp", subcategoryID, groupTpl.Name),
			Name:                 groupTpl.Name,
			CategoryID:           categoryID,
			SubcategoryID:        subcategoryID,
			FieldIDs:             fieldIDs,
			OrderIndex:           groupIndex,
			IsCollapsible:        groupTpl.IsCollapsible,
			IsCollapsedByDefault: groupTpl.IsCollapsedByDefault,
		}
		if err := s.groups.Upsert(ctx, group); err != nil {
			return fmt.Errorf("group %q: %w", groupTpl.Name, err)
		}
	}

	if _, err := s.schemas.RecomputeCache(ctx, subcategoryID); err != nil {
		return fmt.Errorf("recompute schema: %w", err)
	}
	return nil
}

// slug builds a stable identifier from name parts: lowercase, spaces to dashes.
func slug(parts ...string) string {
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.ToLower(strings.TrimSpace(part))
		part = strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
				return r
			case r == ' ' || r == '-' || r == '_':
				return '-'
			default:
				return -1
			}
		}, part)
		cleaned = append(cleaned, part)
	}
	return strings.Join(cleaned, "-")
}
