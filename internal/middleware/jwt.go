package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/indiantrademart/backend/internal/auth"
	"github.com/indiantrademart/backend/internal/identity"
)

const bearerPrefix = "bearer "

// TokenParser verifies a bearer token.
type TokenParser interface {
	Parse(token string) (auth.Claims, error)
}

// JWTAuth rejects requests without a valid bearer token and stores the
// verified claims under auth.ClaimsLocal.
func JWTAuth(tokens TokenParser, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
			return reject(c, http.StatusUnauthorized, "missing bearer token")
		}

		claims, err := tokens.Parse(strings.TrimSpace(header[len(bearerPrefix):]))
		if err != nil {
			logger.Warn("invalid jwt",
				slog.String("kind", auth.TokenErrorKind(err)),
				slog.String("request_id", RequestIDFrom(c)),
			)
			return reject(c, http.StatusUnauthorized, "invalid token")
		}

		c.Locals(auth.ClaimsLocal, claims)
		return c.Next()
	}
}

// RequireRole only admits callers whose token carries one of roles. It must
// run after JWTAuth.
func RequireRole(roles ...identity.Role) fiber.Handler {
	allowed := make(map[identity.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		claims, ok := auth.ClaimsFrom(c)
		if !ok {
			return reject(c, http.StatusUnauthorized, "missing bearer token")
		}
		if _, ok := allowed[claims.Role]; !ok {
			return reject(c, http.StatusForbidden, "forbidden")
		}
		return c.Next()
	}
}
