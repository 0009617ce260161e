package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nutonium/merchant-auth/internal/session"
)

func TestSessionAuth(t *testing.T) {
	issuer := session.NewIssuer("test-secret", time.Hour)

	app := fiber.New()
	app.Get("/me", SessionAuth(issuer), func(c *fiber.Ctx) error {
		id, _ := c.Locals("account_id").(string)
		return c.SendString(id)
	})

	request := func(authz string) (int, string) {
		req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
		if authz != "" {
			req.Header.Set(fiber.HeaderAuthorization, authz)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		defer resp.Body.Close()
		buf := make([]byte, 64)
		n, _ := resp.Body.Read(buf)
		return resp.StatusCode, string(buf[:n])
	}

	sess, err := issuer.Issue("acct-1", "9999999999")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if status, body := request("Bearer " + sess.Token); status != fiber.StatusOK || body != "acct-1" {
		t.Fatalf("valid token: expected 200/acct-1, got %d/%q", status, body)
	}
	if status, _ := request(""); status != fiber.StatusUnauthorized {
		t.Fatalf("missing token: expected 401, got %d", status)
	}
	if status, _ := request("Bearer garbage"); status != fiber.StatusUnauthorized {
		t.Fatalf("garbage token: expected 401, got %d", status)
	}
}
