package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/storefront/internal/services"
	"github.com/example/storefront/internal/utils"
)

const claimsContextKey = "currentClaims"

// AuthMiddleware validates the bearer token and stores its claims in context.
func AuthMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header")
		}

		claims, err := utils.ParseToken(secret, strings.TrimSpace(parts[1]))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals(claimsContextKey, claims)
		return c.Next()
	}
}

// CurrentActor returns the authenticated caller.
func CurrentActor(c *fiber.Ctx) (services.Actor, bool) {
	claims, ok := c.Locals(claimsContextKey).(*utils.Claims)
	if !ok || claims == nil {
		return services.Actor{}, false
	}
	return services.Actor{ID: claims.ID(), Role: claims.Role}, true
}

// RequireRole allows only callers holding one of roles. It must run after
// AuthMiddleware.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := CurrentActor(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
		}
		for _, role := range roles {
			if actor.Role == role {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "insufficient permissions")
	}
}

// SelfOrAdmin allows the caller whose id equals the named route parameter,
// or any admin.
func SelfOrAdmin(param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := CurrentActor(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
		}
		if actor.IsAdmin() || strings.EqualFold(c.Params(param), actor.ID.String()) {
			return c.Next()
		}
		return fiber.NewError(fiber.StatusForbidden, "you can only access your own resources")
	}
}
