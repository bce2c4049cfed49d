// Package config loads and validates the service configuration.
package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/peakscale/tourbook/pkg/config"
)

const defaultJWTSecret = "change-this-to-a-secure-secret"

// Config holds all configuration for the API server.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// PostgreSQL
	PostgresHost          string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort          int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser          string `env:"POSTGRES_USER" envDefault:"tourbook"`
	PostgresPass          string `env:"POSTGRES_PASSWORD" envDefault:"tourbook_secret"`
	PostgresDB            string `env:"POSTGRES_DB" envDefault:"tourbook_db"`
	PostgresSSL           string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	DBMaxConns            int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns            int32  `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetimeMins int    `env:"DB_MAX_CONN_LIFETIME_MINS" envDefault:"60"`
	DBMaxConnIdleTimeMins int    `env:"DB_MAX_CONN_IDLE_TIME_MINS" envDefault:"30"`
	SlowQueryThresholdMs  int    `env:"SLOW_QUERY_THRESHOLD_MS" envDefault:"200"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	// StatsCacheTTL bounds how stale the difficulty aggregate may get if an
	// invalidation is ever missed.
	StatsCacheTTL time.Duration `env:"STATS_CACHE_TTL" envDefault:"10m"`
	StatsMaxAge   int           `env:"STATS_CACHE_CONTROL_MAX_AGE" envDefault:"300"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// JWT
	JWTSecret string        `env:"JWT_SECRET" envDefault:"change-this-to-a-secure-secret"`
	JWTExpiry time.Duration `env:"JWT_EXPIRY" envDefault:"24h"`

	// Mail: "log" writes mail to the log, "ses" sends through AWS SES.
	MailProvider string `env:"MAIL_PROVIDER" envDefault:"log"`
	MailSender   string `env:"MAIL_SENDER" envDefault:"no-reply@tourbook.example.com"`
	AWSRegion    string `env:"AWS_REGION" envDefault:"eu-west-1"`

	// Public URLs embedded in outgoing mail and checkout sessions.
	ResetURLBase      string `env:"RESET_URL_BASE" envDefault:"http://localhost:8080/reset-password"`
	CheckoutReturnURL string `env:"CHECKOUT_RETURN_URL" envDefault:"http://localhost:8080/my-bookings"`
	// Payment: "mock" generates fake sessions locally, "hosted" calls the
	// remote checkout provider API.
	PaymentProvider string `env:"PAYMENT_PROVIDER" envDefault:"mock"`
	// PaymentBaseURL is the provider API root for "hosted", or the page
	// prefix for "mock".
	PaymentBaseURL string `env:"PAYMENT_BASE_URL" envDefault:"http://localhost:8080/pay"`
	PaymentAPIKey  string `env:"PAYMENT_API_KEY" envDefault:""`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Rate limiting per source IP on the /api/v1 routes. RPS <= 0 disables it.
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"50"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}
	if cfg.MailProvider != "log" && cfg.MailProvider != "ses" {
		return nil, fmt.Errorf("invalid mail provider %q, must be log or ses", cfg.MailProvider)
	}
	if cfg.PaymentProvider != "mock" && cfg.PaymentProvider != "hosted" {
		return nil, fmt.Errorf("invalid payment provider %q, must be mock or hosted", cfg.PaymentProvider)
	}
	if cfg.PaymentProvider == "hosted" && cfg.PaymentAPIKey == "" {
		return nil, fmt.Errorf("PAYMENT_API_KEY is required when PAYMENT_PROVIDER is hosted")
	}
	if cfg.RateLimitRPS > 0 && cfg.RateLimitBurst < 1 {
		return nil, fmt.Errorf("RATE_LIMIT_BURST must be at least 1 when rate limiting is enabled")
	}

	// In non-development environments, require an explicitly set, strong JWT secret.
	if cfg.Environment != "development" {
		if cfg.JWTSecret == defaultJWTSecret {
			return nil, fmt.Errorf("JWT_SECRET must be explicitly set via environment variable in %q mode", cfg.Environment)
		}
		if len(cfg.JWTSecret) < 32 {
			return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters long, got %d", len(cfg.JWTSecret))
		}
	}

	return cfg, nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
