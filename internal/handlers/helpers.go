package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/services"
)

func paramID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	return services.ParseID(c.Params(name), name)
}

func currentActor(c *fiber.Ctx) (services.Actor, error) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return services.Actor{}, fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	return actor, nil
}

// subjectID resolves the user a request acts for: the body value when given,
// otherwise the caller. Only admins may act for someone else.
func subjectID(actor services.Actor, bodyValue string) (uuid.UUID, error) {
	if bodyValue == "" {
		return actor.ID, nil
	}
	id, err := services.ParseID(bodyValue, "user_id")
	if err != nil {
		return uuid.Nil, err
	}
	if !actor.CanAccess(id) {
		return uuid.Nil, fiber.NewError(fiber.StatusForbidden, "you can only access your own resources")
	}
	return id, nil
}
