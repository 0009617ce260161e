package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// PhoneRateLimit caps attempts per phone number (falling back to client IP)
// within a one minute fixed window, keyed in Redis under the given scope.
// The limiter fails open: a cache outage never blocks authentication.
func PhoneRateLimit(cache *redis.Client, scope string, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next() // no-op without Redis
		}
		var req struct {
			PhoneNumber string `json:"phoneNumber"`
		}
		_ = c.BodyParser(&req)
		key := strings.TrimSpace(req.PhoneNumber)
		if key == "" {
			key = c.IP()
		}
		cacheKey := "rl:" + scope + ":" + key
		cnt, err := cache.Incr(c.UserContext(), cacheKey).Result()
		if err != nil {
			return c.Next() // fail-open on cache errors
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), cacheKey, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many attempts, try again later")
		}
		return c.Next()
	}
}
