package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/nutonium/merchant-auth/internal/session"
)

// SessionAuth validates the bearer session token and stores the bound
// account id in request locals.
func SessionAuth(issuer *session.Issuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		token := strings.TrimSpace(authz[len("Bearer "):])

		accountID, err := issuer.Verify(token)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid or expired token")
		}

		c.Locals("account_id", accountID)
		return c.Next()
	}
}
