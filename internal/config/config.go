package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/MrJamesThe3rd/till/internal/database"
	"github.com/MrJamesThe3rd/till/internal/money"
)

type Config struct {
	App struct {
		Name     string `envconfig:"APP_NAME" default:"Till"`
		Port     int    `envconfig:"PORT" default:"8080"`
		LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
		Currency string `envconfig:"CURRENCY" default:"EUR"`
	}

	DB struct {
		Driver       string `envconfig:"DB_DRIVER" default:"sqlite"`
		DSN          string `envconfig:"DB_DSN" default:"till.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"`
		MaxOpenConns int    `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	}

	Server struct {
		Timeout            time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		CORSAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	}
}

// Level is the slog level named by LOG_LEVEL.
func (c *Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.App.LogLevel)); err != nil {
		return slog.LevelInfo
	}

	return lvl
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	cfg.App.Currency = strings.ToUpper(cfg.App.Currency)
	if !money.KnownCurrency(cfg.App.Currency) {
		return nil, fmt.Errorf("unknown currency %q", cfg.App.Currency)
	}

	switch cfg.DB.Driver {
	case database.DriverSQLite, database.DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DB.Driver)
	}

	return &cfg, nil
}
