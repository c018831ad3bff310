package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Configuration struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Stripe   StripeConfig
	Lock     LockConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port       string `validate:"required"`
	Mode       string `validate:"oneof=debug release test"`
	Env        string
	AppURL     string `validate:"required,url"`
	CORSOrigin string
}

type DatabaseConfig struct {
	URL string `validate:"required"`
}

type AuthConfig struct {
	// JWTSecret verifies HS256 access tokens issued by the identity provider.
	JWTSecret    string `validate:"required_without=OIDCIssuer"`
	OIDCIssuer   string `validate:"omitempty,url"`
	OIDCClientID string `validate:"required_with=OIDCIssuer"`
}

type StripeConfig struct {
	SecretKey      string `validate:"required"`
	WebhookSecret  string `validate:"required"`
	PriceMonthly   string `validate:"required"`
	PriceYearly    string `validate:"required"`
	PriceLifetime  string `validate:"required"`
	Timeout        time.Duration
	PricesCacheTTL time.Duration
}

type LockConfig struct {
	// RedisURL enables the distributed per-user lock. Empty means in-process.
	RedisURL string
	Timeout  time.Duration
}

type LoggingConfig struct {
	Level string
}

// Load reads .env (if present) and the process environment.
func Load() (*Configuration, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	cfg := &Configuration{
		Server: ServerConfig{
			Port:       getEnv("PORT", "8080"),
			Mode:       getEnv("GIN_MODE", "debug"),
			Env:        getEnv("APP_ENV", "development"),
			AppURL:     strings.TrimRight(getEnv("APP_URL", "http://localhost:3000"), "/"),
			CORSOrigin: getEnv("CORS_ORIGIN", ""),
		},
		Database: DatabaseConfig{
			URL: getEnv("DB_URL", ""),
		},
		Auth: AuthConfig{
			JWTSecret:    getEnv("JWT_SECRET", ""),
			OIDCIssuer:   getEnv("OIDC_ISSUER", ""),
			OIDCClientID: getEnv("OIDC_CLIENT_ID", ""),
		},
		Stripe: StripeConfig{
			SecretKey:      getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret:  getEnv("STRIPE_WEBHOOK_SECRET", ""),
			PriceMonthly:   getEnv("STRIPE_PRICE_MONTHLY", ""),
			PriceYearly:    getEnv("STRIPE_PRICE_YEARLY", ""),
			PriceLifetime:  getEnv("STRIPE_PRICE_LIFETIME", ""),
			Timeout:        getDuration("STRIPE_TIMEOUT", 10*time.Second),
			PricesCacheTTL: getDuration("PRICES_CACHE_TTL", time.Hour),
		},
		Lock: LockConfig{
			RedisURL: getEnv("REDIS_URL", ""),
			Timeout:  getDuration("LOCK_TIMEOUT", 15*time.Second),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings.
func (c *Configuration) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Invalid duration for %s=%q, using %s", key, raw, fallback)
		return fallback
	}
	return d
}
