// Package config loads process settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store drivers.
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverGist     = "gist"
)

// Config is the full process configuration.
type Config struct {
	Port          int  `env:"PORT" envDefault:"3000"`
	Verbose       bool `env:"LOG_VERBOSE" envDefault:"false"`
	LockOnResolve bool `env:"LOCK_ON_RESOLVE" envDefault:"true"`

	Store   Store
	Webhook Webhook
	HTTP    HTTP
}

// Store selects and configures the snapshot store.
type Store struct {
	Driver  string        `env:"STORE_DRIVER" envDefault:"file"`
	Path    string        `env:"STORE_PATH" envDefault:"giveaway.json"`
	Timeout time.Duration `env:"STORE_TIMEOUT" envDefault:"10s"`

	DatabaseURL string `env:"DATABASE_URL"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisKey      string `env:"REDIS_KEY" envDefault:"giveaway:lottery"`

	GistID      string `env:"GIST_ID"`
	GitHubToken string `env:"GITHUB_TOKEN"`
	GistFile    string `env:"GIST_FILE" envDefault:"event.json"`
	GitHubAPI   string `env:"GITHUB_API_URL" envDefault:"https://api.github.com"`
}

// Webhook configures the announcement webhook. An empty URL means log-only announcements.
type Webhook struct {
	URL string `env:"WEBHOOK_URL"`
}

// HTTP configures the command surface.
type HTTP struct {
	AdminToken   string  `env:"ADMIN_TOKEN"`
	CommandRate  float64 `env:"COMMAND_RATE" envDefault:"5"`
	CommandBurst int     `env:"COMMAND_BURST" envDefault:"10"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that depend on each other.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.Store.Timeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive")
	}
	if c.HTTP.CommandRate <= 0 || c.HTTP.CommandBurst <= 0 {
		return fmt.Errorf("COMMAND_RATE and COMMAND_BURST must be positive")
	}

	switch c.Store.Driver {
	case DriverFile, DriverSQLite:
		if strings.TrimSpace(c.Store.Path) == "" {
			return fmt.Errorf("STORE_PATH is required for the %s store", c.Store.Driver)
		}
	case DriverPostgres:
		if strings.TrimSpace(c.Store.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	case DriverRedis:
		if strings.TrimSpace(c.Store.RedisAddr) == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis store")
		}
	case DriverGist:
		if strings.TrimSpace(c.Store.GistID) == "" || strings.TrimSpace(c.Store.GitHubToken) == "" {
			return fmt.Errorf("GIST_ID and GITHUB_TOKEN are required for the gist store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	return nil
}
