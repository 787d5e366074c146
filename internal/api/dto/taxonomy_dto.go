package dto

import (
	"github.com/spec-kit/support-desk/internal/domain"
)

// CategoryRequest payload for category create/update.
type CategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	IsActive    *bool  `json:"isActive"`
}

// SubcategoryRequest payload for subcategory create/update.
type SubcategoryRequest struct {
	CategoryID  string `json:"categoryId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    *bool  `json:"isActive"`
}

// FieldGroupRequest payload for group upsert.
type FieldGroupRequest struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	CategoryID           string   `json:"categoryId"`
	SubcategoryID        string   `json:"subCategoryId"`
	FieldIDs             []string `json:"fieldIds"`
	OrderIndex           int      `json:"orderIndex"`
	IsCollapsible        bool     `json:"isCollapsible"`
	IsCollapsedByDefault bool     `json:"isCollapsedByDefault"`
}

// FormFieldRequest payload for field upsert.
type FormFieldRequest struct {
	ID          string                  `json:"id"`
	Label       string                  `json:"label"`
	FieldType   domain.FieldType        `json:"fieldType"`
	Options     []string                `json:"options"`
	IsRequired  bool                    `json:"isRequired"`
	IsHidden    bool                    `json:"isHidden"`
	Description string                  `json:"description"`
	OrderIndex  int                     `json:"orderIndex"`
	Validation  []domain.ValidationRule `json:"validation"`
	IsActive    *bool                   `json:"isActive"`
}
