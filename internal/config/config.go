package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	defaultAppEnv         = "development"
	idemTTLSecondsEnvVar  = "IDEMPOTENCY_TTL_SECONDS"
	shutdownSecondsEnvVar = "SHUTDOWN_TIMEOUT_SECONDS"
	jwtExpirationEnvVar   = "JWT_EXPIRATION_MS"
	notifyTimeoutEnvVar   = "NOTIFY_TIMEOUT"
	loginRateLimitEnvVar  = "LOGIN_RATE_LIMIT_PER_MIN"
	minJWTSecretLength    = 32
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string        `env:"APP_NAME" envDefault:"IndianTradeMart"`
	AppEnv         string        `env:"APP_ENV" envDefault:"development"`
	Port           string        `env:"PORT" envDefault:"8080"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL    string        `env:"DATABASE_URL"`
	RedisURL       string        `env:"REDIS_URL"`
	RabbitMQURL    string        `env:"RABBITMQ_URL"`
	NotifyQueue    string        `env:"NOTIFY_QUEUE" envDefault:"notifications"`
	NotifyTimeout  time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"5s"`
	JWTSecret      string        `env:"JWT_SECRET"`
	JWTExpiration  time.Duration
	JWTExpiryMS    int64         `env:"JWT_EXPIRATION_MS" envDefault:"86400000"`
	LoginRateLimit int           `env:"LOGIN_RATE_LIMIT_PER_MIN" envDefault:"5"`
	CORSOrigins    string        `env:"CORS_ORIGINS" envDefault:"http://localhost:3000"`
	ShutdownPeriod time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
}

// Load reads configuration values from the environment and populates a Config
// instance. In development a .env file in the working directory is applied
// first when present; variables already set take precedence.
func Load() (Config, error) {
	if isDev(getEnv("APP_ENV", defaultAppEnv)) {
		_ = godotenv.Load()
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.AppEnv = strings.ToLower(cfg.AppEnv)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	var err error
	if cfg.ShutdownPeriod, err = secondsOverride(shutdownSecondsEnvVar, cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = secondsOverride(idemTTLSecondsEnvVar, cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}

	if cfg.JWTExpiryMS <= 0 {
		return Config{}, fmt.Errorf("invalid %s: must be positive", jwtExpirationEnvVar)
	}
	cfg.JWTExpiration = time.Duration(cfg.JWTExpiryMS) * time.Millisecond

	if cfg.NotifyTimeout <= 0 {
		return Config{}, fmt.Errorf("invalid %s: must be positive", notifyTimeoutEnvVar)
	}
	if cfg.LoginRateLimit < 0 {
		return Config{}, fmt.Errorf("invalid %s: must not be negative", loginRateLimitEnvVar)
	}

	if len(cfg.JWTSecret) < minJWTSecretLength {
		return Config{}, fmt.Errorf("JWT_SECRET must be at least %d bytes", minJWTSecretLength)
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.RabbitMQURL == "" {
			return Config{}, fmt.Errorf("RABBITMQ_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the process runs in a local development environment.
func (c Config) IsDev() bool {
	return isDev(c.AppEnv)
}

func isDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

// secondsOverride lets a whole-second variable win over the duration one.
func secondsOverride(key string, current time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return current, nil
	}
	seconds, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return time.Duration(seconds) * time.Second, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
