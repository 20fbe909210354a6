package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/indiantrademart/backend/internal/auth"
)

// AuthMiddleware groups the handlers guarding the auth endpoints.
type AuthMiddleware struct {
	RateLimit   fiber.Handler
	Idempotency fiber.Handler
	JWT         fiber.Handler
}

// RegisterAuthRoutes wires authentication endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, mw AuthMiddleware) {
	group := r.Group("/auth")
	group.Post("/login", mw.RateLimit, h.Login)
	group.Post("/verify", h.Verify)
	group.Post("/verify-otp", h.Verify)
	group.Post("/register", mw.Idempotency, h.Register)
	group.Post("/vendor/register", mw.Idempotency, h.RegisterVendor)
	group.Get("/userinfo", mw.JWT, h.UserInfo)
}
