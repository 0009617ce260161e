package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/nutonium/merchant-auth/internal/logging"
)

func setupIdempotencyApp(t *testing.T) (*fiber.App, *atomic.Int64) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	var calls atomic.Int64
	app := fiber.New()
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/resource", func(c *fiber.Ctx) error {
		calls.Add(1)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true})
	})

	return app, &calls
}

func postResource(t *testing.T, app *fiber.App, key string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/resource", strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode, string(body)
}

func TestIdempotencyPassesThroughWithoutHeader(t *testing.T) {
	app, calls := setupIdempotencyApp(t)

	for i := 0; i < 2; i++ {
		status, _ := postResource(t, app, "")
		if status != fiber.StatusCreated {
			t.Fatalf("expected %d got %d", fiber.StatusCreated, status)
		}
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected handler invoked twice without header, got %d", got)
	}
}

func TestIdempotencyReturnsCachedResponse(t *testing.T) {
	app, calls := setupIdempotencyApp(t)

	status, first := postResource(t, app, "abc123")
	if status != fiber.StatusCreated {
		t.Fatalf("expected %d got %d", fiber.StatusCreated, status)
	}

	status, second := postResource(t, app, "abc123")
	if status != fiber.StatusCreated {
		t.Fatalf("expected cached %d got %d", fiber.StatusCreated, status)
	}
	if first != second {
		t.Fatalf("expected cached payload %q, got %q", first, second)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected handler invoked once for repeated key, got %d", got)
	}
}
