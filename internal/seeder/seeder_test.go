package seeder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository/memory"
	"github.com/spec-kit/support-desk/internal/service"
)

func newSeeder(store *memory.Store) *Seeder {
	schemas := service.NewSchemaService(service.SchemaDependencies{
		SubcategoryRepo: store.Subcategories(),
		FieldGroupRepo:  store.FieldGroups(),
		FormFieldRepo:   store.FormFields(),
		Logger:          zap.NewNop(),
	})
	return New(
		store.Categories(),
		store.Subcategories(),
		store.FieldGroups(),
		store.FormFields(),
		schemas,
		zap.NewNop(),
	)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "cat-it-support", slug("cat", "IT Support"))
	assert.Equal(t, "fld-sub-x-device-details-asset-tag", slug("fld", "sub-x", "Device Details", "Asset Tag"))
	// Punctuation is dropped, not encoded.
	assert.Equal(t, "grp-qa", slug("grp", "Q&A!"))
}

func TestRunSeedsTemplates(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	require.NoError(t, newSeeder(store).Run(ctx, Templates))

	categories, err := store.Categories().ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, len(Templates))

	leak, err := store.Subcategories().GetByID(ctx, "sub-cat-facilities-leak-report")
	require.NoError(t, err)
	assert.Equal(t, "cat-facilities", leak.CategoryID)
	assert.True(t, leak.IsActive)

	// Cache holds both groups' fields in group order, under the template-declared ids.
	require.Len(t, leak.FormFields, 5)
	labels := make([]string, 0, len(leak.FormFields))
	ids := make([]string, 0, len(leak.FormFields))
	for _, field := range leak.FormFields {
		labels = append(labels, field.Label)
		ids = append(ids, field.ID)
	}
	assert.Equal(t, []string{
		"Location",
		"Leak Description",
		"Severity",
		"Electrical Hazard Nearby",
		"Area Cordoned Off",
	}, labels)
	assert.Equal(t, []string{
		"fld-leak-location",
		"fld-leak-description",
		"fld-leak-severity",
		"fld-leak-electrical-hazard",
		"fld-leak-cordoned-off",
	}, ids)

	description := leak.FormFields[1]
	assert.True(t, description.IsRequired)
	require.Len(t, description.Validation, 1)
	assert.Equal(t, domain.RuleMinLength, description.Validation[0].Kind)
	assert.Equal(t, "50", description.Validation[0].Param)

	severity := leak.FormFields[2]
	assert.Equal(t, domain.FieldTypeDropdown, severity.Type)
	assert.Equal(t, []string{"Low", "Medium", "High"}, severity.Options)
}

func TestRunIsIdempotent(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	seed := newSeeder(store)

	require.NoError(t, seed.Run(ctx, Templates))

	first, err := store.Subcategories().GetByID(ctx, "sub-cat-it-support-hardware-failure")
	require.NoError(t, err)

	require.NoError(t, seed.Run(ctx, Templates))

	categories, err := store.Categories().ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, len(Templates))

	second, err := store.Subcategories().GetByID(ctx, "sub-cat-it-support-hardware-failure")
	require.NoError(t, err)
	assert.Len(t, second.FormFields, len(first.FormFields))

	fields, err := store.FormFields().SearchByLabel(ctx, "", 500)
	require.NoError(t, err)
	fieldCount := len(fields)

	require.NoError(t, seed.Run(ctx, Templates))
	fields, err = store.FormFields().SearchByLabel(ctx, "", 500)
	require.NoError(t, err)
	assert.Len(t, fields, fieldCount)
}

func TestRunKeepsFieldIDsWhenLabelsChange(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	seed := newSeeder(store)

	templates := []CategoryTemplate{{
		Name: "Facilities",
		Subcategories: []SubcategoryTemplate{{
			Name: "Leak Report",
			Groups: []GroupTemplate{{
				Name: "Leak Details",
				Fields: []FieldTemplate{{
					ID:         "fld-leak-description",
					Label:      "Leak Description",
					Type:       domain.FieldTypeLongText,
					IsRequired: true,
				}},
			}},
		}},
	}}
	require.NoError(t, seed.Run(ctx, templates))

	// Rewording the label must update the same row, never mint a new id: tickets
	// already filed hold formData keyed by the original id.
	templates[0].Subcategories[0].Groups[0].Fields[0].Label = "Description of the Leak"
	require.NoError(t, seed.Run(ctx, templates))

	sub, err := store.Subcategories().GetByID(ctx, "sub-cat-facilities-leak-report")
	require.NoError(t, err)
	require.Len(t, sub.FormFields, 1)
	assert.Equal(t, "fld-leak-description", sub.FormFields[0].ID)
	assert.Equal(t, "Description of the Leak", sub.FormFields[0].Label)

	fields, err := store.FormFields().SearchByLabel(ctx, "", 500)
	require.NoError(t, err)
	assert.Len(t, fields, 1)
}

func TestRunFallsBackToSlugForTemplatesWithoutIDs(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	templates := []CategoryTemplate{{
		Name: "Legacy",
		Subcategories: []SubcategoryTemplate{{
			Name: "Imported",
			Groups: []GroupTemplate{{
				Name: "Details",
				Fields: []FieldTemplate{{
					Label: "Free Text",
					Type:  domain.FieldTypeShortText,
				}},
			}},
		}},
	}}
	require.NoError(t, newSeeder(store).Run(ctx, templates))

	sub, err := store.Subcategories().GetByID(ctx, "sub-cat-legacy-imported")
	require.NoError(t, err)
	require.Len(t, sub.FormFields, 1)
	assert.Equal(t, "fld-sub-cat-legacy-imported-details-free-text", sub.FormFields[0].ID)
}

func TestTemplatesAreInternallyConsistent(t *testing.T) {
	seenIDs := make(map[string]string)
	for _, category := range Templates {
		for _, subcategory := range category.Subcategories {
			for _, group := range subcategory.Groups {
				require.NotEmptyf(t, group.Fields, "%s/%s/%s has no fields",
					category.Name, subcategory.Name, group.Name)
				for _, field := range group.Fields {
					require.NotEmptyf(t, field.ID, "%s has no id", field.Label)
					if prior, dup := seenIDs[field.ID]; dup {
						t.Fatalf("field id %s used by both %q and %q", field.ID, prior, field.Label)
					}
					seenIDs[field.ID] = field.Label
					assert.Truef(t, field.Type.Valid(), "%s has unknown type %s", field.Label, field.Type)
					if field.Type.IsChoice() {
						assert.NotEmptyf(t, field.Options, "%s is a choice field with no options", field.Label)
					}
					for _, rule := range field.Validation {
						assert.Truef(t, rule.Kind.Valid(), "%s has unknown rule kind %s", field.Label, rule.Kind)
					}
				}
			}
		}
	}
}
