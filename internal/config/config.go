// Package config loads process configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds everything the saga-inspector needs to start.
type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Store StoreConfig
	Cache CacheConfig
	OTel  OTelConfig
}

// StoreConfig selects and tunes the SQL backend.
type StoreConfig struct {
	Driver       string `env:"SAGA_STORE_DRIVER" envDefault:"sqlite"`
	SQLitePath   string `env:"SAGA_SQLITE_PATH" envDefault:"./data/sagas.db"`
	PostgresDSN  string `env:"SAGA_POSTGRES_DSN"`
	MaxOpenConns int    `env:"SAGA_POSTGRES_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns int    `env:"SAGA_POSTGRES_MAX_IDLE_CONNS" envDefault:"5"`
	BlobTable    string `env:"SAGA_BLOB_TABLE" envDefault:"Sagas"`
	HeaderTable  string `env:"SAGA_HEADER_TABLE" envDefault:"SagaHeaders"`
	// EnsureSchema creates missing tables on Postgres; SQLite always does.
	EnsureSchema bool `env:"SAGA_ENSURE_SCHEMA" envDefault:"false"`
}

// CacheConfig enables the Redis read-through cache when RedisAddr is set.
type CacheConfig struct {
	RedisAddr string        `env:"REDIS_ADDR"`
	TTL       time.Duration `env:"SAGA_CACHE_TTL" envDefault:"5m"`
}

type OTelConfig struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"false"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"saga-inspector"`
	Endpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	Environment string `env:"OTEL_RESOURCE_ATTRIBUTES_ENV" envDefault:"local"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("config: parse env: %w", err)
	}
	return nil
}

// Validate checks combinations the env tags cannot express.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("config: SAGA_SQLITE_PATH is required for driver %q", c.Store.Driver)
		}
	case DriverPostgres:
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("config: SAGA_POSTGRES_DSN is required for driver %q", c.Store.Driver)
		}
	default:
		return fmt.Errorf("config: unknown SAGA_STORE_DRIVER %q", c.Store.Driver)
	}
	if c.Cache.RedisAddr != "" && c.Cache.TTL <= 0 {
		return fmt.Errorf("config: SAGA_CACHE_TTL must be positive, got %s", c.Cache.TTL)
	}
	return nil
}
