package serverutils

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// UserContextMiddleware resolves the acting user for data isolation. The
// desktop client sends its local user id with every request; there is no
// account system behind it, so a parseable id is all that is required.
func UserContextMiddleware(ctx *fiber.Ctx) error {
	userIdStr := ctx.Get("X-User-Id")
	if userIdStr == "" {
		userIdStr = ctx.Query("user_id")
	}

	if _, err := uuid.Parse(userIdStr); err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Missing or invalid X-User-Id"})
	}

	ctx.Locals("user_id", userIdStr)
	return ctx.Next()
}
