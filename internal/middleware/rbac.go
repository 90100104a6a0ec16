package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-eval-api/internal/session"
	"github.com/noah-isme/gema-eval-api/internal/utils"
)

// RequireState lets the request through only when the live session is in one of states.
func RequireState(states ...session.State) fiber.Handler {
	allowed := make(map[session.State]struct{}, len(states))
	for _, state := range states {
		allowed[state] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		controller := SessionFrom(c)
		if controller == nil {
			return utils.SendErrorCode(c, fiber.StatusUnauthorized, "unauthenticated", "authentication required")
		}
		if _, ok := allowed[controller.State()]; !ok {
			return utils.SendErrorCode(c, fiber.StatusForbidden, "not_permitted", "insufficient permissions")
		}
		return c.Next()
	}
}
