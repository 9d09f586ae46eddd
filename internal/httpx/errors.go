package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler renders errors as {"error": "..."} JSON. Unclassified errors become
// 500 with a generic message and are logged with their detail.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := http.StatusInternalServerError
		message := "internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		} else {
			logger.Error("unhandled error", "method", c.Method(), "path", c.Path(), "error", err)
		}

		body := fiber.Map{"error": message}
		if id, ok := c.Locals("X-Request-ID").(string); ok && id != "" {
			body["request_id"] = id
		}
		return c.Status(code).JSON(body)
	}
}
