// Package config loads the server configuration from the environment.
//
// A .env file in the working directory is read first if present; variables
// already set in the real environment win. Production deployments set
// everything directly and ship no .env.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Environments accepted in APP_ENV.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Session stores accepted in SESSION_STORE.
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

const minSecretLength = 16

type Config struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	Port     int    `env:"PORT" envDefault:"5000"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	DBPath   string `env:"DB_PATH" envDefault:"./data/recipes.db"`

	// ClientURL is where the browser lands after the OAuth callback.
	ClientURL      string   `env:"CLIENT_URL" envDefault:"http://localhost:3000"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	Session struct {
		Secret string        `env:"SESSION_SECRET,required"`
		TTL    time.Duration `env:"SESSION_TTL" envDefault:"24h"`
		Store  string        `env:"SESSION_STORE" envDefault:"sqlite"`
	}

	Redis struct {
		Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
		Password string `env:"REDIS_PASSWORD"`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Google struct {
		ClientID     string `env:"GOOGLE_CLIENT_ID"`
		ClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
		CallbackURL  string `env:"GOOGLE_CALLBACK_URL" envDefault:"http://localhost:5000/auth/google/callback"`
	}

	RateLimit struct {
		RPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"10"`
		Burst int     `env:"RATE_LIMIT_BURST" envDefault:"30"`
	}
}

// Load reads .env (if any) and the process environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()
	return parse(env.Options{})
}

// FromMap builds a Config from vars alone, ignoring the process environment.
func FromMap(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{cfg.ClientURL}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the struct tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	switch c.Env {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		errs = append(errs, fmt.Errorf("APP_ENV must be development, production or test, got %q", c.Env))
	}

	switch c.Session.Store {
	case StoreSQLite, StoreRedis:
	default:
		errs = append(errs, fmt.Errorf("SESSION_STORE must be sqlite or redis, got %q", c.Session.Store))
	}

	if len(c.Session.Secret) < minSecretLength {
		errs = append(errs, fmt.Errorf("SESSION_SECRET must be at least %d characters", minSecretLength))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst < 1 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS must be positive and RATE_LIMIT_BURST at least 1"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// IsDevelopment enables developer conveniences: text logs and error causes
// in 500 responses.
func (c *Config) IsDevelopment() bool { return c.Env == EnvDevelopment }

// SecureCookies is true outside development, where the API sits behind HTTPS.
func (c *Config) SecureCookies() bool { return c.Env == EnvProduction }

func (c *Config) Addr() string { return fmt.Sprintf(":%d", c.Port) }
