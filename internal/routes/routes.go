package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/indiantrademart/backend/internal/auth"
	"github.com/indiantrademart/backend/internal/config"
	"github.com/indiantrademart/backend/internal/identity"
	"github.com/indiantrademart/backend/internal/infra"
	"github.com/indiantrademart/backend/internal/middleware"
	"github.com/indiantrademart/backend/internal/notification"
	"github.com/indiantrademart/backend/internal/otp"
)

// Deps aggregates shared dependencies required to wire routes. DB, Cache and
// Broker may be nil in development only; users are then kept in memory and
// notifications, codes included, go to the log.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Broker *infra.Broker
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Broker == nil {
			return fmt.Errorf("message broker is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: d.Cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Idempotency-Key, X-Request-ID",
	}))
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	var users identity.Repository
	if d.DB != nil {
		users = identity.NewPostgresRepository(d.DB)
	} else {
		users = identity.NewMemoryRepository()
	}

	tokens, err := auth.NewTokenService(d.Cfg.JWTSecret, d.Cfg.JWTExpiration, d.Logger)
	if err != nil {
		return err
	}

	notifier, err := newNotifier(d)
	if err != nil {
		return err
	}

	authSvc, err := auth.NewService(auth.Deps{
		Users:         users,
		Authenticator: identity.NewAuthenticator(users),
		OTP:           otp.NewManager(users),
		Tokens:        tokens,
		Notifier:      notifier,
		NotifyTimeout: d.Cfg.NotifyTimeout,
		Logger:        d.Logger,
	})
	if err != nil {
		return err
	}

	jwtmw := middleware.JWTAuth(tokens, d.Logger)
	idem := middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	rateLimiter := middleware.LoginRateLimit(d.Cache, d.Cfg.LoginRateLimit, d.Logger)

	RegisterAuthRoutes(app, auth.NewHandler(authSvc), AuthMiddleware{
		RateLimit:   rateLimiter,
		Idempotency: idem,
		JWT:         jwtmw,
	})

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
	RegisterAdminRoutes(api.Group("/admin", jwtmw, middleware.RequireRole(identity.RoleAdmin)), users, d.Logger)

	return nil
}

func newNotifier(d Deps) (notification.Notifier, error) {
	if d.Broker == nil {
		d.Logger.Info("no message broker configured, notifications are logged only")
		return notification.NewLoggerNotifier(d.Logger), nil
	}
	return notification.NewQueueNotifier(d.Broker.Channel, d.Broker.Queue)
}
