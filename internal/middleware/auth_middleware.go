package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/thetankguide/featuretank/internal/models"
)

const AdminSessionCookie = "ft_admin_session"

// SessionValidator decides whether a session cookie value is current.
type SessionValidator interface {
	ValidSession(cookie string) bool
}

// AdminAuth rejects requests without a valid admin session cookie. Missing
// and mismatched cookies get the same response.
func AdminAuth(sessions SessionValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !sessions.ValidSession(c.Cookies(AdminSessionCookie)) {
			return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse("Unauthorized"))
		}
		return c.Next()
	}
}
