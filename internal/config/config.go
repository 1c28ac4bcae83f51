package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	_ "github.com/joho/godotenv/autoload"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Env         string          `yaml:"env" env:"APP_ENV" env-default:"local"`
	LogLevel    string          `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	ServiceName string          `yaml:"service_name" env:"SERVICE_NAME" env-default:"tasks-api"`
	HTTP        HTTPConfig      `yaml:"http"`
	Store       StoreConfig     `yaml:"store"`
	Auth        AuthConfig      `yaml:"auth"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	Tracing     TracingConfig   `yaml:"tracing"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr" env:"HTTP_ADDR" env-default:":8080"`
	RequestTimeout  time.Duration `yaml:"request_timeout" env:"HTTP_REQUEST_TIMEOUT" env-default:"15s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"*"`
}

type StoreConfig struct {
	Driver      string `yaml:"driver" env:"STORE_DRIVER" env-default:"sqlite"`
	SQLitePath  string `yaml:"sqlite_path" env:"SQLITE_PATH" env-default:"data/tasks.db"`
	PostgresDSN string `yaml:"postgres_dsn" env:"POSTGRES_DSN"`
	// Timezone is the IANA name used to decide what "today" means and to
	// interpret due dates sent without an offset.
	Timezone string `yaml:"timezone" env:"TASKS_TIMEZONE" env-default:"Local"`
}

type AuthConfig struct {
	Mode        string `yaml:"mode" env:"AUTH_MODE" env-default:"none"`
	APIKey      string `yaml:"api_key" env:"AUTH_API_KEY"`
	BearerToken string `yaml:"bearer_token" env:"AUTH_BEARER_TOKEN"`
	JWTSecret   string `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" env:"RATE_LIMIT_RPS" env-default:"0"`
	Burst int     `yaml:"burst" env:"RATE_LIMIT_BURST" env-default:"20"`
}

type TracingConfig struct {
	Exporter     string `yaml:"exporter" env:"TRACING_EXPORTER" env-default:"none"`
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:"localhost:4318"`
}

// Load reads the config from path (YAML) when given, otherwise from the
// environment only. Environment variables always win over file values.
func Load(path string) (*Config, error) {
	cfg := new(Config)

	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, cfg)
	} else {
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Store.SQLitePath) == "" {
			errs = append(errs, errors.New("store.sqlite_path is required for the sqlite driver"))
		}
	case DriverPostgres:
		if strings.TrimSpace(c.Store.PostgresDSN) == "" {
			errs = append(errs, errors.New("store.postgres_dsn is required for the postgres driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}

	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}

	switch c.Auth.Mode {
	case "none":
	case "apikey":
		if c.Auth.APIKey == "" {
			errs = append(errs, errors.New("auth.api_key is required for apikey mode"))
		}
	case "bearer":
		if c.Auth.BearerToken == "" {
			errs = append(errs, errors.New("auth.bearer_token is required for bearer mode"))
		}
	case "jwt":
		if c.Auth.JWTSecret == "" {
			errs = append(errs, errors.New("auth.jwt_secret is required for jwt mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown auth mode %q", c.Auth.Mode))
	}

	switch c.Tracing.Exporter {
	case "none", "stdout", "otlp":
	default:
		errs = append(errs, fmt.Errorf("unknown tracing exporter %q", c.Tracing.Exporter))
	}

	if c.RateLimit.RPS < 0 {
		errs = append(errs, errors.New("rate_limit.rps must not be negative"))
	}

	return errors.Join(errs...)
}

// Location resolves Store.Timezone.
func (c *Config) Location() (*time.Location, error) {
	switch c.Store.Timezone {
	case "", "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Store.Timezone)
	if err != nil {
		return nil, fmt.Errorf("store.timezone: %w", err)
	}
	return loc, nil
}
