package server

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/indiantrademart/backend/internal/config"
	"github.com/indiantrademart/backend/internal/logging"
)

func devConfig() config.Config {
	return config.Config{
		AppName:        "test",
		AppEnv:         "development",
		Port:           "0",
		JWTSecret:      "0123456789abcdef0123456789abcdef",
		JWTExpiration:  time.Hour,
		NotifyTimeout:  time.Second,
		CORSOrigins:    "http://localhost:3000",
		IdempotencyTTL: time.Minute,
	}
}

func TestUnknownRouteUsesJSONEnvelope(t *testing.T) {
	srv, err := New(devConfig(), nil, nil, nil, logging.Discard())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	resp, err := srv.App().Test(httptest.NewRequest(fiber.MethodGet, "/nope", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["success"] != false || body["message"] == "" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestCORSAllowsWebClient(t *testing.T) {
	srv, err := New(devConfig(), nil, nil, nil, logging.Discard())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	req := httptest.NewRequest(fiber.MethodOptions, "/auth/login", nil)
	req.Header.Set(fiber.HeaderOrigin, "http://localhost:3000")
	req.Header.Set(fiber.HeaderAccessControlRequestMethod, fiber.MethodPost)
	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(fiber.HeaderAccessControlAllowOrigin); got != "http://localhost:3000" {
		t.Fatalf("expected allowed origin, got %q", got)
	}
}

func TestNewRejectsShortSecret(t *testing.T) {
	cfg := devConfig()
	cfg.JWTSecret = "short"
	if _, err := New(cfg, nil, nil, nil, logging.Discard()); err == nil {
		t.Fatal("expected error for short jwt secret")
	}
}
