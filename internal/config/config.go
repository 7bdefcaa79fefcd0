// Package config reads the server settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/text/language"

	"github.com/gaetan-pardon/ISEN/internal/contact"
)

type Config struct {
	Port       int           `env:"PORT" envDefault:"8080"`
	DBPath     string        `env:"DB_PATH" envDefault:"data/portfolio.db"`
	Locale     string        `env:"PORTFOLIO_LOCALE" envDefault:"fr"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"2h"`
	GinMode    string        `env:"GIN_MODE" envDefault:"release"`

	SMTPHost string `env:"SMTP_HOST" envDefault:"smtp.gmail.com"`
	SMTPPort string `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser string `env:"SMTP_USER"`
	SMTPPass string `env:"SMTP_PASS"`
	ToEmail  string `env:"TO_EMAIL"`

	AdminUsername string `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword string `env:"ADMIN_PASSWORD" envDefault:"admin123"`
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

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	if _, err := language.Parse(c.Locale); err != nil {
		return fmt.Errorf("invalid PORTFOLIO_LOCALE %q: %w", c.Locale, err)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	return nil
}

// Language returns the configured locale. Validate has already checked
// that it parses.
func (c *Config) Language() language.Tag {
	return language.Make(c.Locale)
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// DefaultAdminCredentials reports whether the built-in development
// credentials are in use.
func (c *Config) DefaultAdminCredentials() bool {
	return c.AdminUsername == "admin" || c.AdminPassword == "admin123"
}

func (c *Config) SMTP() contact.SMTPConfig {
	return contact.SMTPConfig{
		Host: c.SMTPHost,
		Port: c.SMTPPort,
		User: c.SMTPUser,
		Pass: c.SMTPPass,
		To:   c.ToEmail,
	}
}
