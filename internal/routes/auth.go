package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/nutonium/merchant-auth/internal/auth"
	"github.com/nutonium/merchant-auth/internal/middleware"
)

// RegisterAuthRoutes wires the signup, login, and OTP endpoints plus the
// session-protected profile route. Credential and code endpoints sit behind
// per-phone rate limiting when Redis is available.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, sessionAuth fiber.Handler, cache *redis.Client, maxPerMin int) {
	group := r.Group("/auth")

	group.Post("/signup", h.Signup)
	group.Post("/login", middleware.PhoneRateLimit(cache, "login", maxPerMin), h.Login)
	group.Post("/send-otp", middleware.PhoneRateLimit(cache, "otp", maxPerMin), h.SendCode)
	group.Post("/verify-otp", h.VerifyCode)
	group.Post("/resend-otp", middleware.PhoneRateLimit(cache, "otp", maxPerMin), h.ResendCode)

	group.Get("/me", sessionAuth, h.Me)
}
