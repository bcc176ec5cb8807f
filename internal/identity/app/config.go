package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/applyhub/identity/pkg/jwtx"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Env                 string        `env:"ENV" envDefault:"dev"`
	LogLevel            string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat           string        `env:"LOG_FORMAT" envDefault:"json"`
	Port                int           `env:"PORT" envDefault:"8080"`
	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`

	DatabaseFile string `env:"IDENTITY_DATABASE_FILE" envDefault:"identity.db"`
	Issuer       string `env:"IDENTITY_ISSUER" envDefault:"identity-service"`

	// SessionSecret signs session tokens. Required in prod; dev falls
	// back to an ephemeral random secret.
	SessionSecret string        `env:"SESSION_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"1h"`
	CookieSecure  bool          `env:"COOKIE_SECURE" envDefault:"true"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate fails fast on configuration the service must not start
// without. A production profile with no signing secret would otherwise
// mint tokens nobody can trust across restarts.
func (c Config) Validate() error {
	if c.Env == "prod" && len(c.SessionSecret) < jwtx.MinSecretLength {
		return errors.New("SESSION_SECRET must be set to at least 32 bytes in prod")
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	return nil
}
