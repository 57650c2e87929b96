package config

import (
	"fmt"
	"strings"

	pkgconfig "github.com/mayuri-bharti/medical-shop-frontend-sub002/pkg/config"
)

// Config holds all configuration for the storefront.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// Redis, backing guest carts and checkout selections
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Guest cart TTL in hours (default: 3 days)
	GuestCartTTL int `env:"GUEST_CART_TTL_HOURS" envDefault:"72"`

	// Checkout selection TTL in minutes
	SelectionTTL int `env:"CHECKOUT_SELECTION_TTL_MINUTES" envDefault:"30"`

	// Remote cart service for authenticated users
	CartAPIURL string `env:"CART_API_URL" envDefault:"http://localhost:8003"`

	// JWT secret for local token verification. Empty means tokens are
	// passed through to the cart service unverified.
	JWTSecret string `env:"JWT_SECRET" envDefault:""`

	// Kafka fan-out of cart events. Empty disables it.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"" envSeparator:","`

	// Rate limiting. RPS of 0 disables it.
	RateLimitRPS   int `env:"RATE_LIMIT_RPS" envDefault:"50"`
	RateLimitBurst int `env:"RATE_LIMIT_BURST" envDefault:"100"`

	// CORS
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// OpenTelemetry
	TracingEnabled bool   `env:"TRACING_ENABLED" envDefault:"false"`
	OTLPEndpoint   string `env:"OTLP_ENDPOINT" envDefault:"localhost:4318"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// KafkaEnabled reports whether cart events should fan out to Kafka.
func (c *Config) KafkaEnabled() bool {
	for _, b := range c.KafkaBrokers {
		if strings.TrimSpace(b) != "" {
			return true
		}
	}
	return false
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.GuestCartTTL < 1 {
		return fmt.Errorf("invalid guest cart TTL: %d hours", c.GuestCartTTL)
	}
	if c.SelectionTTL < 1 {
		return fmt.Errorf("invalid checkout selection TTL: %d minutes", c.SelectionTTL)
	}
	if c.CartAPIURL == "" {
		return fmt.Errorf("CART_API_URL is required")
	}
	return nil
}
