package domain

import "time"

// FieldType enumerates supported form field kinds.
type FieldType string

const (
	FieldTypeShortText FieldType = "SHORT_TEXT"
	FieldTypeLongText  FieldType = "LONG_TEXT"
	FieldTypeEmail     FieldType = "EMAIL"
	FieldTypePhone     FieldType = "PHONE"
	FieldTypeDropdown  FieldType = "DROPDOWN"
	FieldTypeDate      FieldType = "DATE"
	FieldTypeNumber    FieldType = "NUMBER"
	FieldTypeCheckbox  FieldType = "CHECKBOX"
)

// Valid reports whether the type is a member of the closed enumeration.
func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeShortText, FieldTypeLongText, FieldTypeEmail, FieldTypePhone,
		FieldTypeDropdown, FieldTypeDate, FieldTypeNumber, FieldTypeCheckbox:
		return true
	}
	return false
}

// IsChoice reports whether the type selects from a fixed option list.
func (t FieldType) IsChoice() bool {
	return t == FieldTypeDropdown || t == FieldTypeCheckbox
}

// RuleKind enumerates declarative validation rule kinds.
type RuleKind string

const (
	RuleMinLength RuleKind = "minLength"
	RuleMaxLength RuleKind = "maxLength"
	RulePattern   RuleKind = "pattern"
	RuleRange     RuleKind = "range"
	RuleCustom    RuleKind = "custom"
)

// Valid reports whether the rule kind is recognized. Unrecognized kinds still fail
// closed at evaluation time; this only exists for earlier feedback at authoring time.
func (k RuleKind) Valid() bool {
	switch k {
	case RuleMinLength, RuleMaxLength, RulePattern, RuleRange, RuleCustom:
		return true
	}
	return false
}

// ValidationRule is pure declarative data; the forms evaluator is the only code that
// interprets it.
type ValidationRule struct {
	Kind    RuleKind `json:"kind"`
	Param   string   `json:"parameter"`
	Message string   `json:"message"`
}

// FormField is a reusable field definition. The id is globally unique and stable across
// re-seeding so templates can rename labels without orphaning historical formData keys.
type FormField struct {
	ID          string           `json:"id"`
	Label       string           `json:"label"`
	Type        FieldType        `json:"fieldType"`
	Options     []string         `json:"options,omitempty"`
	IsRequired  bool             `json:"isRequired"`
	IsHidden    bool             `json:"isHidden"`
	Description string           `json:"description,omitempty"`
	OrderIndex  int              `json:"orderIndex"`
	Validation  []ValidationRule `json:"validation,omitempty"`
	IsActive    bool             `json:"isActive"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}
