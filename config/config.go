package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"trial-funnel/database"
	"trial-funnel/services/email"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	Database database.DatabaseConfig
	Stripe   StripeConfig
	SMTP     email.SMTPConfig
	Server   ServerConfig
	Redis    RedisConfig
	Session  SessionConfig
	Internal InternalConfig
}

type StripeConfig struct {
	SecretKey           string `env:"STRIPE_SECRET_KEY"`
	PublishableKey      string `env:"STRIPE_PUBLISHABLE_KEY"`
	SubscriptionPriceID string `env:"STRIPE_SUBSCRIPTION_PRICE_ID"`
}

type ServerConfig struct {
	Port string `env:"SERVER_PORT" envDefault:"8080"`
	// PublicDomain is used to build redirect URLs when a request carries no Origin header.
	PublicDomain string `env:"PUBLIC_DOMAIN" envDefault:"http://localhost:8080"`
}

type RedisConfig struct {
	URL               string `env:"REDIS_URL"`
	WorkerConcurrency int    `env:"WORKER_CONCURRENCY" envDefault:"2"`
}

type SessionConfig struct {
	Secret string `env:"SESSION_SECRET"`
	Domain string `env:"SESSION_DOMAIN"`
	MaxAge int    `env:"SESSION_MAX_AGE" envDefault:"86400"`
}

// InternalConfig covers the operator-only endpoints.
type InternalConfig struct {
	JWTSecret     string `env:"INTERNAL_JWT_SECRET"`
	JWTIssuer     string `env:"INTERNAL_JWT_ISSUER" envDefault:"trial-funnel"`
	OperatorEmail string `env:"OPERATOR_EMAIL"`
}

// Load reads an optional .env file and parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: no .env file loaded: %v", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadInternal reads only the operator settings, for tools that never talk
// to the payment provider.
func LoadInternal() (*InternalConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: no .env file loaded: %v", err)
	}

	cfg := &InternalConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("missing required configuration: INTERNAL_JWT_SECRET")
	}
	return cfg, nil
}

// Validate reports every missing required setting at once.
func (c *Config) Validate() error {
	var missing []string
	if c.Stripe.SecretKey == "" {
		missing = append(missing, "STRIPE_SECRET_KEY")
	}
	if c.Stripe.SubscriptionPriceID == "" {
		missing = append(missing, "STRIPE_SUBSCRIPTION_PRICE_ID")
	}
	if c.Session.Secret == "" {
		missing = append(missing, "SESSION_SECRET")
	}
	if len(missing) > 0 {
		return errors.New("missing required configuration: " + strings.Join(missing, ", "))
	}

	if c.Redis.WorkerConcurrency < 2 {
		c.Redis.WorkerConcurrency = 2
	} else if c.Redis.WorkerConcurrency > 8 {
		c.Redis.WorkerConcurrency = 8
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

func (c *Config) RedisEnabled() bool {
	return c.Redis.URL != ""
}

func (c *Config) DatabaseEnabled() bool {
	return c.Database.Host != ""
}

func (c *Config) SMTPEnabled() bool {
	return c.SMTP.Host != "" && c.Internal.OperatorEmail != ""
}
