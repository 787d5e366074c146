package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/authz"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Taxonomy       *handlers.TaxonomyHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Route-level permission guards reject obviously
// unauthorized calls early; services re-check before mutating.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)

	authed := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())

	authed.Get("/auth/me", cfg.Auth.Me)
	authed.Post("/auth/password/change", cfg.Auth.ChangePassword)

	users := authed.Group("/users", auth.RequirePermission(authz.UsersManage))
	users.Put("/:id/role", cfg.Auth.SetRole)
	users.Put("/:id/active", cfg.Auth.SetActive)

	// Browsing the taxonomy and reading a form schema is open to any authenticated
	// caller; it is what the submission form renders from.
	authed.Get("/categories", cfg.Taxonomy.ListCategories)
	authed.Get("/categories/:id/subcategories", cfg.Taxonomy.ListSubcategories)
	authed.Get("/subcategories/:id/schema", cfg.Taxonomy.GetSchema)

	taxonomyAdmin := authed.Group("", auth.RequirePermission(authz.TaxonomyManage))
	taxonomyAdmin.Post("/categories", cfg.Taxonomy.CreateCategory)
	taxonomyAdmin.Put("/categories/:id", cfg.Taxonomy.UpdateCategory)
	taxonomyAdmin.Post("/subcategories", cfg.Taxonomy.CreateSubcategory)
	taxonomyAdmin.Put("/subcategories/:id", cfg.Taxonomy.UpdateSubcategory)

	formsAdmin := authed.Group("", auth.RequirePermission(authz.FormsManage))
	formsAdmin.Get("/subcategories/:id/schema/resolve", cfg.Taxonomy.ResolveSchema)
	formsAdmin.Put("/field-groups", cfg.Taxonomy.UpsertFieldGroup)
	formsAdmin.Delete("/field-groups/:id", cfg.Taxonomy.DeleteFieldGroup)
	formsAdmin.Get("/form-fields", cfg.Taxonomy.SearchFormFields)
	formsAdmin.Put("/form-fields", cfg.Taxonomy.UpsertFormField)
	formsAdmin.Delete("/form-fields/:id", cfg.Taxonomy.DeactivateFormField)

	tickets := authed.Group("/tickets")
	tickets.Post("", cfg.Tickets.Create)
	tickets.Get("", cfg.Tickets.List)
	tickets.Get("/number/:number", cfg.Tickets.GetByNumber)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Post("/:id/transition", cfg.Tickets.Transition)
	tickets.Put("/:id/assignee", cfg.Tickets.Assign)
	tickets.Put("/:id/priority", cfg.Tickets.ChangePriority)
	tickets.Post("/:id/escalate", cfg.Tickets.Escalate)
	tickets.Post("/:id/deescalate", cfg.Tickets.Deescalate)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Get("/:id/comments", cfg.Tickets.ListComments)
	tickets.Get("/:id/history", cfg.Tickets.ListHistory)
}
