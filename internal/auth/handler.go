package auth

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// ClaimsLocal is the fiber.Ctx local under which verified token claims are stored.
const ClaimsLocal = "auth_claims"

// ClaimsFrom returns the claims stored by the JWT middleware.
func ClaimsFrom(c *fiber.Ctx) (Claims, bool) {
	claims, ok := c.Locals(ClaimsLocal).(Claims)
	return claims, ok
}

// Handler exposes the auth flows over HTTP.
type Handler struct {
	svc *Service
}

// NewHandler constructs an auth HTTP handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type messageResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

type sessionResponse struct {
	Success bool `json:"success"`
	Session
}

// Login handles password and passwordless login.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	res, err := h.svc.Login(c.UserContext(), req)
	return respond(c, res, err)
}

// Verify handles one-time code verification.
func (h *Handler) Verify(c *fiber.Ctx) error {
	var req VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	res, err := h.svc.Verify(c.UserContext(), req)
	return respond(c, res, err)
}

// Register handles account creation.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	res, err := h.svc.Register(c.UserContext(), req)
	return respond(c, res, err)
}

// RegisterVendor handles vendor account creation.
func (h *Handler) RegisterVendor(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	res, err := h.svc.RegisterVendor(c.UserContext(), req)
	return respond(c, res, err)
}

// UserInfo returns the account behind the bearer token.
func (h *Handler) UserInfo(c *fiber.Ctx) error {
	claims, ok := ClaimsFrom(c)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(messageResponse{Message: "unauthorized"})
	}
	profile, err := h.svc.Profile(c.UserContext(), claims)
	if err != nil {
		return respond(c, Result{}, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success":   true,
		"user":      profile,
		"expiresAt": claims.ExpiresAt.UTC(),
	})
}

func respond(c *fiber.Ctx, res Result, err error) error {
	if err != nil {
		status := http.StatusBadRequest
		body := messageResponse{Message: kindMessages[KindInternal]}
		var authErr *Error
		if errors.As(err, &authErr) {
			body.Message = authErr.Message
			body.Errors = authErr.Fields
			if authErr.Kind == KindInternal {
				status = http.StatusInternalServerError
			}
		} else {
			status = http.StatusInternalServerError
		}
		return c.Status(status).JSON(body)
	}
	if res.Session != nil {
		return c.Status(http.StatusOK).JSON(sessionResponse{Success: true, Session: *res.Session})
	}
	return c.Status(http.StatusOK).JSON(messageResponse{Success: true, Message: res.Message})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(http.StatusBadRequest).JSON(messageResponse{Message: "invalid request body"})
}
