// Package config loads server settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds runtime settings for the server.
type Config struct {
	Port           string        `env:"PORT" envDefault:"8080"`
	DatabaseDriver string        `env:"DATABASE_DRIVER" envDefault:"sqlite"`
	DatabaseURL    string        `env:"DATABASE_URL" envDefault:"task-manager.db"`
	JWTSecret      string        `env:"JWT_SECRET"`
	TokenTTL       time.Duration `env:"TOKEN_TTL" envDefault:"0s"` // 0 issues tokens without expiry.
	BcryptCost     int           `env:"BCRYPT_COST" envDefault:"12"`

	S3 S3Config `envPrefix:"S3_"`

	SendGridAPIKey  string `env:"SENDGRID_API_KEY"`
	MailFrom        string `env:"MAIL_FROM"`
	MailWorkers     int    `env:"MAIL_WORKERS" envDefault:"2"`
	MailQueueSize   int    `env:"MAIL_QUEUE_SIZE" envDefault:"100"`
	MailMaxAttempts int    `env:"MAIL_MAX_ATTEMPTS" envDefault:"5"`

	RateLimitBurst    int           `env:"RATE_LIMIT_BURST" envDefault:"5"`
	RateLimitInterval time.Duration `env:"RATE_LIMIT_INTERVAL" envDefault:"12s"`

	OTelEndpoint string `env:"OTEL_ENDPOINT"`
}

// S3Config selects S3-compatible storage for avatars. Leaving Bucket empty
// keeps avatars in the database.
type S3Config struct {
	Bucket    string `env:"BUCKET"`
	Region    string `env:"REGION" envDefault:"us-east-1"`
	Endpoint  string `env:"ENDPOINT"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is required")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters for HMAC-SHA256 security")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 14 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 14, got %d", c.BcryptCost)
	}
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("DATABASE_DRIVER must be sqlite or postgres, got %q", c.DatabaseDriver)
	}
	if c.TokenTTL < 0 {
		return errors.New("TOKEN_TTL must not be negative")
	}
	if c.SendGridAPIKey != "" && c.MailFrom == "" {
		return errors.New("MAIL_FROM is required when SENDGRID_API_KEY is set")
	}
	if c.MailWorkers < 1 || c.MailQueueSize < 1 || c.MailMaxAttempts < 1 {
		return errors.New("MAIL_WORKERS, MAIL_QUEUE_SIZE and MAIL_MAX_ATTEMPTS must be positive")
	}
	if c.RateLimitBurst < 1 || c.RateLimitInterval <= 0 {
		return errors.New("RATE_LIMIT_BURST and RATE_LIMIT_INTERVAL must be positive")
	}
	return nil
}

// RateLimitPerSecond converts the refill interval into a token rate.
func (c *Config) RateLimitPerSecond() float64 {
	return 1 / c.RateLimitInterval.Seconds()
}
