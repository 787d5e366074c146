package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository/memory"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

var admin = events.Actor{UserID: "usr-admin", Role: domain.RoleAdmin}

func newTaxonomyFixture(t *testing.T) (*TaxonomyService, *SchemaService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	schemas := NewSchemaService(SchemaDependencies{
		SubcategoryRepo: store.Subcategories(),
		FieldGroupRepo:  store.FieldGroups(),
		FormFieldRepo:   store.FormFields(),
		Logger:          zap.NewNop(),
	})
	taxonomy := NewTaxonomyService(TaxonomyDependencies{
		CategoryRepo:    store.Categories(),
		SubcategoryRepo: store.Subcategories(),
		FieldGroupRepo:  store.FieldGroups(),
		FormFieldRepo:   store.FormFields(),
		SchemaService:   schemas,
		Logger:          zap.NewNop(),
	})
	return taxonomy, schemas, store
}

func seedTaxonomy(t *testing.T, taxonomy *TaxonomyService) (categoryID, subcategoryID string) {
	t.Helper()
	ctx := context.Background()

	category := &domain.Category{Name: "Facilities"}
	require.NoError(t, taxonomy.CreateCategory(ctx, admin, category))

	subcategory := &domain.Subcategory{CategoryID: category.ID, Name: "Leak Report"}
	require.NoError(t, taxonomy.CreateSubcategory(ctx, admin, subcategory))
	return category.ID, subcategory.ID
}

func upsertField(t *testing.T, taxonomy *TaxonomyService, field *domain.FormField) {
	t.Helper()
	require.NoError(t, taxonomy.UpsertFormField(context.Background(), admin, field))
}

func TestCategoryNameUniqueness(t *testing.T) {
	taxonomy, _, _ := newTaxonomyFixture(t)
	ctx := context.Background()

	require.NoError(t, taxonomy.CreateCategory(ctx, admin, &domain.Category{Name: "Facilities"}))

	err := taxonomy.CreateCategory(ctx, admin, &domain.Category{Name: "  facilities "})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
}

func TestTaxonomyMutationsRequireRole(t *testing.T) {
	taxonomy, _, _ := newTaxonomyFixture(t)
	ctx := context.Background()
	staff := events.Actor{UserID: "usr-1", Role: domain.RoleSupportStaff}

	err := taxonomy.CreateCategory(ctx, staff, &domain.Category{Name: "Facilities"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodePermissionDenied))

	err = taxonomy.UpsertFormField(ctx, staff, &domain.FormField{Label: "Location", Type: domain.FieldTypeShortText})
	assert.True(t, apperrors.HasCode(err, apperrors.CodePermissionDenied))
}

func TestUpsertFormFieldValidation(t *testing.T) {
	taxonomy, _, _ := newTaxonomyFixture(t)
	ctx := context.Background()

	err := taxonomy.UpsertFormField(ctx, admin, &domain.FormField{Label: "Thing", Type: "HOLOGRAM"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	err = taxonomy.UpsertFormField(ctx, admin, &domain.FormField{Label: "Severity", Type: domain.FieldTypeDropdown})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	err = taxonomy.UpsertFormField(ctx, admin, &domain.FormField{
		Label: "Zone", Type: domain.FieldTypeShortText,
		Validation: []domain.ValidationRule{{Kind: "telepathy", Param: ""}},
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

func TestFieldGroupRejectsUnknownFieldIDs(t *testing.T) {
	taxonomy, _, _ := newTaxonomyFixture(t)
	ctx := context.Background()
	categoryID, subcategoryID := seedTaxonomy(t, taxonomy)

	err := taxonomy.UpsertFieldGroup(ctx, admin, &domain.FieldGroup{
		Name:          "Details",
		CategoryID:    categoryID,
		SubcategoryID: subcategoryID,
		FieldIDs:      []string{"fld-never-created"},
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

func TestGroupMutationsKeepCacheInSync(t *testing.T) {
	taxonomy, schemas, store := newTaxonomyFixture(t)
	ctx := context.Background()
	categoryID, subcategoryID := seedTaxonomy(t, taxonomy)

	location := &domain.FormField{ID: "fld-loc", Label: "Location", Type: domain.FieldTypeShortText, IsRequired: true, IsActive: true}
	severity := &domain.FormField{ID: "fld-sev", Label: "Severity", Type: domain.FieldTypeDropdown, Options: []string{"Low", "Medium", "High"}, IsActive: true}
	upsertField(t, taxonomy, location)
	upsertField(t, taxonomy, severity)

	group := &domain.FieldGroup{
		ID:            "grp-details",
		Name:          "Leak Details",
		CategoryID:    categoryID,
		SubcategoryID: subcategoryID,
		FieldIDs:      []string{"fld-loc", "fld-sev"},
	}
	require.NoError(t, taxonomy.UpsertFieldGroup(ctx, admin, group))

	cached, err := store.Subcategories().GetByID(ctx, subcategoryID)
	require.NoError(t, err)
	require.Len(t, cached.FormFields, 2)
	assert.Equal(t, "fld-loc", cached.FormFields[0].ID)
	assert.Equal(t, "fld-sev", cached.FormFields[1].ID)

	// The cache always matches a live resolution.
	live, err := schemas.ResolveSchema(ctx, subcategoryID)
	require.NoError(t, err)
	assert.Equal(t, live, cached.FormFields)

	// Deleting the group empties the cache.
	require.NoError(t, taxonomy.DeleteFieldGroup(ctx, admin, "grp-details"))
	cached, err = store.Subcategories().GetByID(ctx, subcategoryID)
	require.NoError(t, err)
	assert.Empty(t, cached.FormFields)
}

func TestFieldEditFansOutToReferencingCaches(t *testing.T) {
	taxonomy, _, store := newTaxonomyFixture(t)
	ctx := context.Background()
	categoryID, subcategoryID := seedTaxonomy(t, taxonomy)

	other := &domain.Subcategory{CategoryID: categoryID, Name: "Climate Control"}
	require.NoError(t, taxonomy.CreateSubcategory(ctx, admin, other))

	shared := &domain.FormField{ID: "fld-zone", Label: "Zone", Type: domain.FieldTypeShortText, IsActive: true}
	upsertField(t, taxonomy, shared)

	for i, subID := range []string{subcategoryID, other.ID} {
		require.NoError(t, taxonomy.UpsertFieldGroup(ctx, admin, &domain.FieldGroup{
			ID:            "grp-" + subID,
			Name:          "Details",
			CategoryID:    categoryID,
			SubcategoryID: subID,
			FieldIDs:      []string{"fld-zone"},
			OrderIndex:    i,
		}))
	}

	// Editing the shared field refreshes both caches.
	shared.Label = "Zone / Room"
	upsertField(t, taxonomy, shared)
	for _, subID := range []string{subcategoryID, other.ID} {
		cached, err := store.Subcategories().GetByID(ctx, subID)
		require.NoError(t, err)
		require.Len(t, cached.FormFields, 1)
		assert.Equal(t, "Zone / Room", cached.FormFields[0].Label)
	}

	// Deactivating it drops it from both caches immediately.
	require.NoError(t, taxonomy.DeactivateFormField(ctx, admin, "fld-zone"))
	for _, subID := range []string{subcategoryID, other.ID} {
		cached, err := store.Subcategories().GetByID(ctx, subID)
		require.NoError(t, err)
		assert.Empty(t, cached.FormFields)
	}
}

func TestResolveSchemaFirstGroupWinsAcrossGroups(t *testing.T) {
	taxonomy, schemas, _ := newTaxonomyFixture(t)
	ctx := context.Background()
	categoryID, subcategoryID := seedTaxonomy(t, taxonomy)

	upsertField(t, taxonomy, &domain.FormField{ID: "fld-shared", Label: "Shared", Type: domain.FieldTypeShortText, IsActive: true})
	upsertField(t, taxonomy, &domain.FormField{ID: "fld-extra", Label: "Extra", Type: domain.FieldTypeShortText, IsActive: true})

	require.NoError(t, taxonomy.UpsertFieldGroup(ctx, admin, &domain.FieldGroup{
		ID: "grp-a", Name: "First", CategoryID: categoryID, SubcategoryID: subcategoryID,
		FieldIDs: []string{"fld-shared"}, OrderIndex: 0,
	}))
	require.NoError(t, taxonomy.UpsertFieldGroup(ctx, admin, &domain.FieldGroup{
		ID: "grp-b", Name: "Second", CategoryID: categoryID, SubcategoryID: subcategoryID,
		FieldIDs: []string{"fld-shared", "fld-extra"}, OrderIndex: 1,
	}))

	schema, err := schemas.ResolveSchema(ctx, subcategoryID)
	require.NoError(t, err)
	require.Len(t, schema, 2)
	assert.Equal(t, "fld-shared", schema[0].ID)
	assert.Equal(t, "fld-extra", schema[1].ID)
}

func TestValidateSubmissionReadsCache(t *testing.T) {
	taxonomy, schemas, _ := newTaxonomyFixture(t)
	ctx := context.Background()
	categoryID, subcategoryID := seedTaxonomy(t, taxonomy)

	upsertField(t, taxonomy, &domain.FormField{
		ID: "fld-desc", Label: "Leak Description", Type: domain.FieldTypeLongText,
		IsRequired: true, IsActive: true,
		Validation: []domain.ValidationRule{{Kind: domain.RuleMinLength, Param: "50"}},
	})
	require.NoError(t, taxonomy.UpsertFieldGroup(ctx, admin, &domain.FieldGroup{
		ID: "grp-leak", Name: "Details", CategoryID: categoryID, SubcategoryID: subcategoryID,
		FieldIDs: []string{"fld-desc"},
	}))

	err := schemas.ValidateSubmission(ctx, subcategoryID, domain.FormData{"fld-desc": "too short"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	err = schemas.ValidateSubmission(ctx, subcategoryID, domain.FormData{
		"fld-desc": "Steady drip from the ceiling tile nearest the east stairwell on floor three.",
	})
	assert.NoError(t, err)
}

func TestFieldGroupCategoryMustMatchSubcategory(t *testing.T) {
	taxonomy, _, _ := newTaxonomyFixture(t)
	ctx := context.Background()
	_, subcategoryID := seedTaxonomy(t, taxonomy)

	otherCategory := &domain.Category{Name: "IT Support"}
	require.NoError(t, taxonomy.CreateCategory(ctx, admin, otherCategory))

	err := taxonomy.UpsertFieldGroup(ctx, admin, &domain.FieldGroup{
		Name:          "Details",
		CategoryID:    otherCategory.ID,
		SubcategoryID: subcategoryID,
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}
