package routes

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/indiantrademart/backend/internal/config"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// lastCode returns the most recent one-time code written by the logging
// notifier. Welcome messages carry the registration code too.
func (b *syncBuffer) lastCode(t *testing.T) string {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	var code string
	scanner := bufio.NewScanner(bytes.NewReader(b.buf.Bytes()))
	for scanner.Scan() {
		var line map[string]any
		if json.Unmarshal(scanner.Bytes(), &line) != nil || line["msg"] != "notification" {
			continue
		}
		if c, _ := line["code"].(string); c != "" {
			code = c
		}
	}
	if code == "" {
		t.Fatal("no notification with a code logged")
	}
	return code
}

func newApp(t *testing.T, opts ...func(*Deps)) (*fiber.App, *syncBuffer) {
	t.Helper()
	logs := &syncBuffer{}
	cfg := config.Config{
		AppName:        "test",
		AppEnv:         "development",
		JWTSecret:      "0123456789abcdef0123456789abcdef",
		JWTExpiration:  time.Hour,
		NotifyTimeout:  time.Second,
		LoginRateLimit: 5,
		CORSOrigins:    "http://localhost:3000",
		IdempotencyTTL: time.Minute,
	}
	app := fiber.New()
	logger := slog.New(slog.NewJSONHandler(logs, nil))
	deps := Deps{Cfg: cfg, Logger: logger}
	for _, opt := range opts {
		opt(&deps)
	}
	if err := Setup(app, deps); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return app, logs
}

func call(t *testing.T, app *fiber.App, method, path, body, token string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp.StatusCode, decoded
}

func TestSetupRequiresBackendsOutsideDev(t *testing.T) {
	// Neither client dials until first use.
	pool, err := pgxpool.New(context.Background(), "postgres://app@127.0.0.1:1/trademart")
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	defer pool.Close()
	cache := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer cache.Close()

	cfg := config.Config{AppEnv: "production", JWTSecret: "0123456789abcdef0123456789abcdef", JWTExpiration: time.Hour}
	cases := []struct {
		name string
		deps Deps
		want string
	}{
		{"no database", Deps{Cfg: cfg, Cache: cache}, "database"},
		{"no redis", Deps{Cfg: cfg, DB: pool}, "redis"},
		{"no broker", Deps{Cfg: cfg, DB: pool, Cache: cache}, "message broker"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Setup(fiber.New(), tc.deps)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %s requirement error, got %v", tc.want, err)
			}
		})
	}
}

func TestHealthReportsDisabledBackends(t *testing.T) {
	app, _ := newApp(t)

	status, body := call(t, app, fiber.MethodGet, "/healthz", "", "")
	if status != fiber.StatusOK {
		t.Fatalf("expected 200 got %d", status)
	}
	checks, _ := body["status"].(map[string]any)
	if checks["postgres"] != "disabled" || checks["rabbitmq"] != "disabled" {
		t.Fatalf("unexpected checks %v", checks)
	}
}

func TestHealthHidesBackendErrors(t *testing.T) {
	app, logs := newApp(t, func(d *Deps) {
		d.Cache = redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	})

	req := httptest.NewRequest(fiber.MethodGet, "/healthz", nil)
	resp, err := app.Test(req, int((5 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.StatusCode)
	}
	if strings.Contains(string(raw), "127.0.0.1") || !strings.Contains(string(raw), `"redis":"unavailable"`) {
		t.Fatalf("unexpected health body %s", raw)
	}
	logs.mu.Lock()
	logged := logs.buf.String()
	logs.mu.Unlock()
	if !strings.Contains(logged, "health check failed") {
		t.Fatal("expected the failure detail to be logged")
	}
}

func TestRegisterVerifyAndUserInfo(t *testing.T) {
	app, logs := newApp(t)

	status, body := call(t, app, fiber.MethodPost, "/auth/register",
		`{"firstName":"Asha","lastName":"Rao","email":"asha@example.com","password":"p1"}`, "")
	if status != fiber.StatusOK || body["success"] != true {
		t.Fatalf("register: %d %v", status, body)
	}

	status, body = call(t, app, fiber.MethodPost, "/auth/verify-otp",
		`{"emailOrPhone":"asha@example.com","otp":"`+logs.lastCode(t)+`"}`, "")
	if status != fiber.StatusOK || body["success"] != true {
		t.Fatalf("verify: %d %v", status, body)
	}
	token, _ := body["token"].(string)
	if token == "" || body["role"] != "ROLE_USER" {
		t.Fatalf("expected user session, got %v", body)
	}

	status, body = call(t, app, fiber.MethodGet, "/auth/userinfo", "", token)
	if status != fiber.StatusOK {
		t.Fatalf("userinfo: %d %v", status, body)
	}
	user, _ := body["user"].(map[string]any)
	if user["email"] != "asha@example.com" || user["emailVerified"] != true {
		t.Fatalf("unexpected profile %v", user)
	}

	if status, _ := call(t, app, fiber.MethodGet, "/auth/userinfo", "", ""); status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", status)
	}
	if status, _ := call(t, app, fiber.MethodGet, "/api/v1/admin/users/stats", "", token); status != fiber.StatusForbidden {
		t.Fatalf("expected 403 for non-admin got %d", status)
	}
}

func TestPasswordlessLoginThroughRoutes(t *testing.T) {
	app, logs := newApp(t)

	call(t, app, fiber.MethodPost, "/auth/vendor/register",
		`{"firstName":"Vik","email":"vik@example.com","password":"secret"}`, "")

	status, body := call(t, app, fiber.MethodPost, "/auth/login", `{"emailOrPhone":"vik@example.com"}`, "")
	if status != fiber.StatusOK || body["success"] != true {
		t.Fatalf("login: %d %v", status, body)
	}

	status, body = call(t, app, fiber.MethodPost, "/auth/verify",
		`{"emailOrPhone":"vik@example.com","otp":"`+logs.lastCode(t)+`"}`, "")
	if status != fiber.StatusOK || body["role"] != "ROLE_VENDOR" {
		t.Fatalf("verify: %d %v", status, body)
	}
}

func TestAdminStatsCountsUsers(t *testing.T) {
	app, logs := newApp(t)

	call(t, app, fiber.MethodPost, "/auth/vendor/register", `{"email":"vendor@example.com","password":"secret"}`, "")
	call(t, app, fiber.MethodPost, "/auth/register", `{"email":"root@example.com","password":"secret","role":"admin"}`, "")
	_, body := call(t, app, fiber.MethodPost, "/auth/verify",
		`{"emailOrPhone":"root@example.com","otp":"`+logs.lastCode(t)+`"}`, "")
	token, _ := body["token"].(string)
	if token == "" || body["role"] != "ROLE_ADMIN" {
		t.Fatalf("expected admin session, got %v", body)
	}

	status, body := call(t, app, fiber.MethodGet, "/api/v1/admin/users/stats", "", token)
	if status != fiber.StatusOK {
		t.Fatalf("stats: %d %v", status, body)
	}
	byRole, _ := body["byRole"].(map[string]any)
	if body["total"] != float64(2) || byRole["ROLE_VENDOR"] != float64(1) || byRole["ROLE_ADMIN"] != float64(1) {
		t.Fatalf("unexpected stats %v", body)
	}
	if body["unverified"] != float64(2) {
		t.Fatalf("expected both users unverified by phone, got %v", body["unverified"])
	}
}
