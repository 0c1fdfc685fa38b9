package handlers

import (
	applog "techstock/internal/log"
	"techstock/internal/validate"

	"github.com/gofiber/fiber/v2"
)

const OperatorHeader = "X-Operator"

// RequireOperator enforces an operator identity for audit stamping. Who the
// operator is gets decided upstream; this only checks the header is sane.
func RequireOperator() fiber.Handler {
	return func(c *fiber.Ctx) error {
		op, ok := validate.Operator(c.Get(OperatorHeader))
		if !ok {
			applog.Security(c, "access.denied.operator", map[string]any{"header": OperatorHeader})
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing or invalid operator"})
		}
		c.Locals("operator", op)
		return c.Next()
	}
}

func operator(c *fiber.Ctx) string {
	op, _ := c.Locals("operator").(string)
	return op
}
