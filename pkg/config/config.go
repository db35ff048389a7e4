package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	AuthModeLegacy = "legacy"
	AuthModeOAuth  = "oauth"
)

// Config holds everything needed to talk to the Pardot API.
// Values are read from PARDOT_* environment variables.
type Config struct {
	BaseURI    string `env:"BASE_URI" envDefault:"https://pi.pardot.com"`
	APIVersion int    `env:"API_VERSION" envDefault:"4"`

	// AuthMode selects the authentication scheme ("legacy" or "oauth").
	// When empty it is inferred from the credentials that are present.
	AuthMode string `env:"AUTH_MODE"`

	Email    string `env:"EMAIL"`
	Password string `env:"PASSWORD"`
	UserKey  string `env:"USER_KEY"`

	ConsumerKey    string `env:"CONSUMER_KEY"`
	ConsumerSecret string `env:"CONSUMER_SECRET"`
	BusinessUnitID string `env:"BUSINESS_UNIT_ID"`
	SecurityToken  string `env:"SECURITY_TOKEN"`
	RefreshToken   string `env:"REFRESH_TOKEN"`
	Sandbox        bool   `env:"SANDBOX" envDefault:"false"`
	// TokenURL overrides the Salesforce token endpoint derived from Sandbox.
	TokenURL string `env:"TOKEN_URL"`

	HTTPTimeout  time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`
	HTTPMaxTries uint          `env:"HTTP_MAX_TRIES" envDefault:"1"`
}

func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("load .env file: %w", err)
		}
	}

	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "PARDOT_"}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ResolvedAuthMode returns AuthMode, inferring it when unset.
func (c *Config) ResolvedAuthMode() string {
	mode := strings.ToLower(strings.TrimSpace(c.AuthMode))
	if mode != "" {
		return mode
	}
	if c.ConsumerKey != "" || c.BusinessUnitID != "" {
		return AuthModeOAuth
	}
	return AuthModeLegacy
}

func (c *Config) Validate() error {
	if c.BaseURI == "" {
		return fmt.Errorf("PARDOT_BASE_URI is required")
	}
	if c.APIVersion != 3 && c.APIVersion != 4 {
		return fmt.Errorf("PARDOT_API_VERSION must be 3 or 4, got %d", c.APIVersion)
	}
	if c.HTTPMaxTries == 0 {
		return fmt.Errorf("PARDOT_HTTP_MAX_TRIES must be at least 1")
	}

	switch c.ResolvedAuthMode() {
	case AuthModeLegacy:
		if c.Email == "" {
			return fmt.Errorf("PARDOT_EMAIL is required")
		}
		if c.Password == "" {
			return fmt.Errorf("PARDOT_PASSWORD is required")
		}
		if c.UserKey == "" {
			return fmt.Errorf("PARDOT_USER_KEY is required")
		}
	case AuthModeOAuth:
		if c.ConsumerKey == "" {
			return fmt.Errorf("PARDOT_CONSUMER_KEY is required")
		}
		if c.ConsumerSecret == "" {
			return fmt.Errorf("PARDOT_CONSUMER_SECRET is required")
		}
		if c.BusinessUnitID == "" {
			return fmt.Errorf("PARDOT_BUSINESS_UNIT_ID is required")
		}
		// A refresh token replaces the username/password pair.
		if c.RefreshToken == "" {
			if c.Email == "" {
				return fmt.Errorf("PARDOT_EMAIL is required")
			}
			if c.Password == "" {
				return fmt.Errorf("PARDOT_PASSWORD is required")
			}
		}
	default:
		return fmt.Errorf("PARDOT_AUTH_MODE must be %q or %q, got %q", AuthModeLegacy, AuthModeOAuth, c.AuthMode)
	}
	// SecurityToken and Sandbox are optional, so we don't validate them
	return nil
}
