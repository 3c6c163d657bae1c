package app

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full service configuration, loaded from the environment.
type Config struct {
	// Issuer is the "iss" claim stamped into every session token and
	// enforced on verification.
	Issuer string `env:"PORTAL_ISSUER" envDefault:"sponsor-portal"`

	// SessionTTL is the fixed session lifetime. There is no refresh
	// mechanism; users log in again after expiry.
	SessionTTL time.Duration `env:"PORTAL_SESSION_TTL" envDefault:"60m"`

	// StorageDriver selects the store backend: "sqlite" or "memory".
	// The memory driver is for local development only.
	StorageDriver string `env:"PORTAL_STORAGE_DRIVER" envDefault:"sqlite"`
	DatabaseFile  string `env:"PORTAL_DATABASE_FILE" envDefault:"portal.db"`

	// SigningKeyFile is a PKCS8 PEM Ed25519 key. When set, tokens survive
	// restarts; when empty an ephemeral key is generated on startup and
	// every outstanding session is invalidated.
	SigningKeyFile string `env:"PORTAL_SIGNING_KEY_FILE"`

	// PepperFile stores the password-hashing pepper; generated on first
	// run if absent.
	PepperFile string `env:"PORTAL_PEPPER_FILE" envDefault:"pepper"`

	Env       string `env:"ENV" envDefault:"dev"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	Port                int           `env:"PORT" envDefault:"8080"`
	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
}

// LoadConfig parses configuration from environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	switch cfg.StorageDriver {
	case "sqlite", "memory":
	default:
		return Config{}, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}

	if cfg.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("session TTL must be positive, got %s", cfg.SessionTTL)
	}

	return cfg, nil
}
