package routes

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/indiantrademart/backend/internal/identity"
)

// UserStats is the read side used by the admin endpoints.
type UserStats interface {
	CountByRole(ctx context.Context) (map[identity.Role]int64, error)
	CountUnverified(ctx context.Context) (int64, error)
}

// RegisterAdminRoutes wires the admin-only endpoints onto r.
func RegisterAdminRoutes(r fiber.Router, stats UserStats, logger *slog.Logger) {
	r.Get("/users/stats", func(c *fiber.Ctx) error {
		byRole, err := stats.CountByRole(c.UserContext())
		if err != nil {
			logger.Error("count users by role", slog.Any("error", err))
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Internal error"})
		}
		unverified, err := stats.CountUnverified(c.UserContext())
		if err != nil {
			logger.Error("count unverified users", slog.Any("error", err))
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Internal error"})
		}

		roles := make(map[string]int64, len(identity.Roles))
		var total int64
		for _, role := range identity.Roles {
			roles[role.String()] = byRole[role]
			total += byRole[role]
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"success":    true,
			"total":      total,
			"byRole":     roles,
			"unverified": unverified,
		})
	})
}
