package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nutonium/merchant-auth/internal/account"
	"github.com/nutonium/merchant-auth/internal/auth"
	"github.com/nutonium/merchant-auth/internal/config"
	"github.com/nutonium/merchant-auth/internal/credential"
	"github.com/nutonium/merchant-auth/internal/middleware"
	"github.com/nutonium/merchant-auth/internal/notification"
	"github.com/nutonium/merchant-auth/internal/otp"
	"github.com/nutonium/merchant-auth/internal/session"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Health
	RegisterHealthRoutes(app, d)

	// Services and handlers
	var repo account.Repository
	if d.DB != nil {
		repo = account.NewPostgresRepository(d.DB)
	} else {
		repo = account.NewMemoryRepository()
	}
	vault := credential.NewVault(d.Cfg.BcryptCost)
	codes := otp.NewLifecycle(repo, d.Cfg.OTPTTL)
	sender := notification.NewLoggerSender(d.Logger)
	sessions := session.NewIssuer(d.Cfg.SessionSecret, d.Cfg.SessionTTL)

	authSvc, err := auth.NewService(repo, vault, codes, sender, sessions, d.Logger)
	if err != nil {
		return err
	}
	authHandler := auth.NewHandler(authSvc)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterAuthRoutes(api, authHandler, middleware.SessionAuth(sessions), d.Cache, d.Cfg.AuthRateLimit)

	return nil
}
