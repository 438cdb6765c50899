package middleware

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/example/storefront/internal/services"
)

// ErrorHandler renders every error as {"success": false, "error": msg}.
// Domain errors map to their kind's status; unknown errors are logged and
// hidden behind a generic 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status, msg := classify(err)
	if status == fiber.StatusInternalServerError {
		log.Printf("[HTTP] %s %s: %v", c.Method(), c.Path(), err)
	}

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   msg,
	})
}

func classify(err error) (int, string) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, fe.Message
	}

	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrBusinessRule):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound, err.Error()
	case errors.Is(err, services.ErrUnauthorized):
		return fiber.StatusUnauthorized, err.Error()
	case errors.Is(err, services.ErrForbidden):
		return fiber.StatusForbidden, err.Error()
	default:
		return fiber.StatusInternalServerError, "internal server error"
	}
}
