package forms

import (
	"sort"

	"github.com/spec-kit/support-desk/internal/domain"
)

// Resolve flattens a subcategory's field groups into the ordered submission schema.
// Groups are taken in orderIndex order, fields in their stored position within each
// group. A field id listed by more than one group keeps only its first occurrence:
// group order encodes presentation priority, so first-group-wins, not last-write-wins.
// Inactive fields and dangling ids are skipped.
func Resolve(groups []domain.FieldGroup, fields map[string]domain.FormField) []domain.FormField {
	ordered := make([]domain.FieldGroup, len(groups))
	copy(ordered, groups)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].OrderIndex != ordered[j].OrderIndex {
			return ordered[i].OrderIndex < ordered[j].OrderIndex
		}
		return ordered[i].ID < ordered[j].ID
	})

	seen := make(map[string]struct{})
	schema := make([]domain.FormField, 0, len(fields))
	for _, group := range ordered {
		for _, fieldID := range group.FieldIDs {
			if _, dup := seen[fieldID]; dup {
				continue
			}
			field, ok := fields[fieldID]
			if !ok || !field.IsActive {
				continue
			}
			seen[fieldID] = struct{}{}
			schema = append(schema, field)
		}
	}
	return schema
}

// ValidateSubmission checks formData against a resolved schema. Every failing rule is
// collected per field; validation does not short-circuit because callers need the
// complete error set for form re-display. Hidden fields are validated when a value is
// supplied but are never required, regardless of their isRequired flag.
func ValidateSubmission(eval *Evaluator, schema []domain.FormField, data domain.FormData) map[string][]string {
	fieldErrors := make(map[string][]string)
	for _, field := range schema {
		value, present := data[field.ID]
		if !present || IsEmpty(value) {
			if field.IsRequired && !field.IsHidden {
				fieldErrors[field.ID] = append(fieldErrors[field.ID], "required")
			}
			continue
		}
		if field.Type.IsChoice() {
			for _, item := range stringItems(value) {
				if !containsOption(field.Options, item) {
					fieldErrors[field.ID] = append(fieldErrors[field.ID], "invalid option")
					break
				}
			}
		}
		for _, rule := range field.Validation {
			if result := eval.Evaluate(rule, value); !result.OK {
				fieldErrors[field.ID] = append(fieldErrors[field.ID], result.Message)
			}
		}
	}
	return fieldErrors
}

func containsOption(options []string, candidate string) bool {
	for _, option := range options {
		if option == candidate {
			return true
		}
	}
	return false
}
