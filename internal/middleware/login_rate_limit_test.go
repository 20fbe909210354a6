package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/indiantrademart/backend/internal/logging"
)

func loginStatus(t *testing.T, app *fiber.App, body string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestLoginRateLimitPerIdentifier(t *testing.T) {
	mr, cache := newRedis(t)
	app := fiber.New()
	app.Post("/auth/login", LoginRateLimit(cache, 2, logging.Discard()), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	alice := `{"emailOrPhone":"Alice@Example.com"}`
	for i := 0; i < 2; i++ {
		if got := loginStatus(t, app, alice); got != fiber.StatusOK {
			t.Fatalf("attempt %d: expected 200 got %d", i+1, got)
		}
	}
	if got := loginStatus(t, app, `{"emailOrPhone":" alice@example.com "}`); got != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", got)
	}
	if got := loginStatus(t, app, `{"emailOrPhone":"bob@example.com"}`); got != fiber.StatusOK {
		t.Fatalf("other identifiers should not be limited, got %d", got)
	}

	if ttl := mr.TTL(loginKeyPrefix + "alice@example.com"); ttl <= 0 {
		t.Fatalf("expected window ttl on counter, got %s", ttl)
	}
	mr.FastForward(loginWindow)
	if got := loginStatus(t, app, alice); got != fiber.StatusOK {
		t.Fatalf("expected window reset, got %d", got)
	}
}

func TestLoginRateLimitWithoutRedis(t *testing.T) {
	app := fiber.New()
	app.Post("/auth/login", LoginRateLimit(nil, 1, logging.Discard()), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	for i := 0; i < 3; i++ {
		if got := loginStatus(t, app, `{}`); got != fiber.StatusOK {
			t.Fatalf("expected no limiting, got %d", got)
		}
	}
}
