package domain

import "time"

// Category is the top level of the two-level ticket taxonomy.
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon,omitempty"`
	Color       string    `json:"color,omitempty"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Subcategory owns the form schema a submission is validated against. FormFields is the
// denormalized, resolved schema cache; it is recomputed synchronously whenever any field
// group or form field referenced by this subcategory changes.
type Subcategory struct {
	ID          string      `json:"id"`
	CategoryID  string      `json:"categoryId"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	FormFields  []FormField `json:"formFields"`
	IsActive    bool        `json:"isActive"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// FieldGroup is a named, ordered cluster of form fields within a subcategory. FieldIDs
// must reference fields belonging to the same category/subcategory pairing.
type FieldGroup struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	CategoryID           string    `json:"categoryId"`
	SubcategoryID        string    `json:"subCategoryId"`
	FieldIDs             []string  `json:"fieldIds"`
	OrderIndex           int       `json:"orderIndex"`
	IsCollapsible        bool      `json:"isCollapsible"`
	IsCollapsedByDefault bool      `json:"isCollapsedByDefault"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}
