package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/service"
)

// TaxonomyHandler exposes category, subcategory and form-schema administration.
type TaxonomyHandler struct {
	taxonomy *service.TaxonomyService
	schemas  *service.SchemaService
}

// NewTaxonomyHandler constructs handler.
func NewTaxonomyHandler(taxonomy *service.TaxonomyService, schemas *service.SchemaService) *TaxonomyHandler {
	return &TaxonomyHandler{taxonomy: taxonomy, schemas: schemas}
}

// ListCategories handles GET /categories.
func (h *TaxonomyHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.taxonomy.ListCategories(c.Context())
	if err != nil {
		return err
	}
	if categories == nil {
		categories = []domain.Category{}
	}
	return dataResponse(c, categories)
}

// CreateCategory handles POST /categories.
func (h *TaxonomyHandler) CreateCategory(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	category := &domain.Category{
		Name:        req.Name,
		Description: req.Description,
		Icon:        req.Icon,
		Color:       req.Color,
	}
	if err := h.taxonomy.CreateCategory(c.Context(), actor, category); err != nil {
		return err
	}
	return createdResponse(c, category)
}

// UpdateCategory handles PUT /categories/:id.
func (h *TaxonomyHandler) UpdateCategory(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	category, err := h.taxonomy.GetCategory(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	category.Name = req.Name
	category.Description = req.Description
	category.Icon = req.Icon
	category.Color = req.Color
	if req.IsActive != nil {
		category.IsActive = *req.IsActive
	}
	if err := h.taxonomy.UpdateCategory(c.Context(), actor, category); err != nil {
		return err
	}
	return dataResponse(c, category)
}

// ListSubcategories handles GET /categories/:id/subcategories.
func (h *TaxonomyHandler) ListSubcategories(c *fiber.Ctx) error {
	subcategories, err := h.taxonomy.ListSubcategories(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	if subcategories == nil {
		subcategories = []domain.Subcategory{}
	}
	return dataResponse(c, subcategories)
}

// CreateSubcategory handles POST /subcategories.
func (h *TaxonomyHandler) CreateSubcategory(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.SubcategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	subcategory := &domain.Subcategory{
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := h.taxonomy.CreateSubcategory(c.Context(), actor, subcategory); err != nil {
		return err
	}
	return createdResponse(c, subcategory)
}

// UpdateSubcategory handles PUT /subcategories/:id.
func (h *TaxonomyHandler) UpdateSubcategory(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.SubcategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	subcategory, err := h.taxonomy.GetSubcategory(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	subcategory.Name = req.Name
	subcategory.Description = req.Description
	if req.IsActive != nil {
		subcategory.IsActive = *req.IsActive
	}
	if err := h.taxonomy.UpdateSubcategory(c.Context(), actor, subcategory); err != nil {
		return err
	}
	return dataResponse(c, subcategory)
}

// GetSchema handles GET /subcategories/:id/schema — the cached resolved form schema a
// client renders for submission.
func (h *TaxonomyHandler) GetSchema(c *fiber.Ctx) error {
	subcategory, err := h.taxonomy.GetSubcategory(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	fields := subcategory.FormFields
	if fields == nil {
		fields = []domain.FormField{}
	}
	return dataResponse(c, fiber.Map{
		"subCategoryId": subcategory.ID,
		"formFields":    fields,
	})
}

// ResolveSchema handles GET /subcategories/:id/schema/resolve — a live resolution from
// the normalized source, for admins verifying the cache.
func (h *TaxonomyHandler) ResolveSchema(c *fiber.Ctx) error {
	fields, err := h.schemas.ResolveSchema(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	if fields == nil {
		fields = []domain.FormField{}
	}
	return dataResponse(c, fiber.Map{
		"subCategoryId": c.Params("id"),
		"formFields":    fields,
	})
}

// UpsertFieldGroup handles PUT /field-groups.
func (h *TaxonomyHandler) UpsertFieldGroup(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.FieldGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	group := &domain.FieldGroup{
		ID:                   req.ID,
		Name:                 req.Name,
		CategoryID:           req.CategoryID,
		SubcategoryID:        req.SubcategoryID,
		FieldIDs:             req.FieldIDs,
		OrderIndex:           req.OrderIndex,
		IsCollapsible:        req.IsCollapsible,
		IsCollapsedByDefault: req.IsCollapsedByDefault,
	}
	if err := h.taxonomy.UpsertFieldGroup(c.Context(), actor, group); err != nil {
		return err
	}
	return dataResponse(c, group)
}

// DeleteFieldGroup handles DELETE /field-groups/:id.
func (h *TaxonomyHandler) DeleteFieldGroup(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	if err := h.taxonomy.DeleteFieldGroup(c.Context(), actor, c.Params("id")); err != nil {
		return err
	}
	return dataResponse(c, fiber.Map{"deleted": true})
}

// UpsertFormField handles PUT /form-fields.
func (h *TaxonomyHandler) UpsertFormField(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.FormFieldRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	field := &domain.FormField{
		ID:          req.ID,
		Label:       req.Label,
		Type:        req.FieldType,
		Options:     req.Options,
		IsRequired:  req.IsRequired,
		IsHidden:    req.IsHidden,
		Description: req.Description,
		OrderIndex:  req.OrderIndex,
		Validation:  req.Validation,
		IsActive:    active,
	}
	if err := h.taxonomy.UpsertFormField(c.Context(), actor, field); err != nil {
		return err
	}
	return dataResponse(c, field)
}

// DeactivateFormField handles DELETE /form-fields/:id.
func (h *TaxonomyHandler) DeactivateFormField(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	if err := h.taxonomy.DeactivateFormField(c.Context(), actor, c.Params("id")); err != nil {
		return err
	}
	return dataResponse(c, fiber.Map{"deactivated": true})
}

// SearchFormFields handles GET /form-fields.
func (h *TaxonomyHandler) SearchFormFields(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	fields, err := h.taxonomy.SearchFormFields(c.Context(), actor, c.Query("q"), limit)
	if err != nil {
		return err
	}
	if fields == nil {
		fields = []domain.FormField{}
	}
	return dataResponse(c, fields)
}
