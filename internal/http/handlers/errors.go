package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	applog "techstock/internal/log"
)

const msgSomethingWrong = "Algo salió mal. Intente nuevamente."

// ErrorHandler is the app-wide fallback. Client errors raised by fiber keep
// their status; everything else is logged and answered with a generic 500
// so internal details never reach the operator.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
		applog.Warn(c, "server.client_error", map[string]any{"code": fe.Code})
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	applog.Error(c, "server.error", err, nil)
	if strings.HasPrefix(c.Path(), "/api/") {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": msgSomethingWrong})
	}
	if rerr := c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{
		"Message": msgSomethingWrong,
	}); rerr != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(msgSomethingWrong)
	}
	return nil
}
