package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	defaultLoginAttempts = 5
	loginWindow          = time.Minute
	loginKeyPrefix       = "rl:login:"
)

// LoginRateLimit caps login attempts per identifier, falling back to the
// client IP when the body has none. Without Redis it is a no-op, and Redis
// errors let the request through.
func LoginRateLimit(cache *redis.Client, maxPerMin int, logger *slog.Logger) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = defaultLoginAttempts
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}

		var req struct {
			EmailOrPhone string `json:"emailOrPhone"`
		}
		_ = c.BodyParser(&req)
		subject := strings.ToLower(strings.TrimSpace(req.EmailOrPhone))
		if subject == "" {
			subject = c.IP()
		}
		key := loginKeyPrefix + subject

		ctx := c.UserContext()
		count, err := cache.Incr(ctx, key).Result()
		if err != nil {
			logger.Warn("login rate limit unavailable", slog.Any("error", err))
			return c.Next()
		}
		if count == 1 {
			cache.Expire(ctx, key, loginWindow)
		}
		if count > int64(maxPerMin) {
			return reject(c, http.StatusTooManyRequests, "too many login attempts, try again later")
		}
		return c.Next()
	}
}
