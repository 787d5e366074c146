package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/events"
)

// actorFrom extracts the acting identity from the authenticated principal.
func actorFrom(c *fiber.Ctx) (events.Actor, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return events.Actor{}, fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}
	return events.Actor{UserID: principal.User.ID, Role: principal.User.Role}, nil
}

func dataResponse(c *fiber.Ctx, payload any) error {
	return c.JSON(fiber.Map{"data": payload})
}

func createdResponse(c *fiber.Ctx, payload any) error {
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": payload})
}
