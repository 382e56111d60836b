// Package config loads runtime settings from flags, environment and an
// optional config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Config holds all runtime settings.
type Config struct {
	Addr          string        `mapstructure:"addr"`
	WebDir        string        `mapstructure:"web_dir"`
	Store         string        `mapstructure:"store"`
	DatabaseURL   string        `mapstructure:"database_url"`
	SQLitePath    string        `mapstructure:"sqlite_path"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	LogLevel      string        `mapstructure:"log_level"`
}

// envBindings keeps the plain variable names used by existing deployments.
var envBindings = map[string]string{
	"addr":           "ADDR",
	"web_dir":        "WEB_DIR",
	"store":          "STORE",
	"database_url":   "DATABASE_URL",
	"sqlite_path":    "SQLITE_PATH",
	"session_ttl":    "SESSION_TTL",
	"sweep_interval": "SWEEP_INTERVAL",
	"log_level":      "LOG_LEVEL",
}

// New returns a viper instance with defaults and environment bindings.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("addr", ":8080")
	v.SetDefault("web_dir", "web")
	v.SetDefault("store", StoreMemory)
	v.SetDefault("database_url", "")
	v.SetDefault("sqlite_path", "data/bmi.db")
	v.SetDefault("session_ttl", 30*time.Minute)
	v.SetDefault("sweep_interval", time.Minute)
	v.SetDefault("log_level", "info")

	for key, env := range envBindings {
		// BindEnv only fails without arguments.
		_ = v.BindEnv(key, env)
	}
	return v
}

// BindFlags binds command-line flags so they take precedence over the
// environment. Flag names use dashes in place of underscores.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var errs []error
	flags.VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if _, ok := envBindings[key]; !ok {
			return
		}
		if err := v.BindPFlag(key, f); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}

// Load reads an optional config file and decodes the settings.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings for consistency.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	case StoreSQLite:
		if c.SQLitePath == "" {
			return errors.New("sqlite_path is required for the sqlite store")
		}
	default:
		return fmt.Errorf("unknown store %q (want memory, postgres or sqlite)", c.Store)
	}
	if c.SessionTTL <= 0 {
		return errors.New("session_ttl must be > 0")
	}
	if c.SweepInterval <= 0 {
		return errors.New("sweep_interval must be > 0")
	}
	return nil
}
