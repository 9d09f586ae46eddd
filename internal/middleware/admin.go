package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminTokenHeader = "X-Admin-Token"
	adminNameHeader  = "X-Admin-Name"
	// AdminLocal holds the acting administrator's name for downstream handlers.
	AdminLocal = "admin"
)

// AdminAuth admits requests whose X-Admin-Token matches the bcrypt hash. An empty
// hash closes the admin surface entirely.
func AdminAuth(tokenHash string) fiber.Handler {
	hash := []byte(strings.TrimSpace(tokenHash))
	return func(c *fiber.Ctx) error {
		if len(hash) == 0 {
			return fiber.NewError(http.StatusForbidden, "admin access is not configured")
		}
		token := c.Get(adminTokenHeader)
		if token == "" {
			return fiber.NewError(http.StatusUnauthorized, "missing admin token")
		}
		if err := bcrypt.CompareHashAndPassword(hash, []byte(token)); err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid admin token")
		}
		name := strings.TrimSpace(c.Get(adminNameHeader))
		if name == "" {
			name = "admin"
		}
		c.Locals(AdminLocal, name)
		return c.Next()
	}
}
