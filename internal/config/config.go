// Package config provides centralized configuration management for callstats.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import "time"

// Supported storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Database DatabaseConfig
	Files    FilesConfig
	Run      RunConfig
	Logging  LoggingConfig
}

// DatabaseConfig holds storage connection settings.
type DatabaseConfig struct {
	// Driver selects the storage engine: sqlite or postgres (default: sqlite)
	Driver string `env:"DB_DRIVER" default:"sqlite"`

	// URL is the SQLite path/DSN or the PostgreSQL connection string (default: :memory:)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" default:":memory:"`

	// MaxConns is the maximum number of pooled PostgreSQL connections (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of PostgreSQL connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a PostgreSQL connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
}

// FilesConfig holds source and sink paths.
type FilesConfig struct {
	Users         string `env:"USERS_FILE" default:"resources/users.csv"`
	CallLogs      string `env:"CALL_LOGS_FILE" default:"resources/callLogs.csv"`
	UserAnalytics string `env:"USER_ANALYTICS_FILE" default:"resources/userAnalytics.csv"`
	OrderedCalls  string `env:"ORDERED_CALLS_FILE" default:"resources/orderedCalls.csv"`

	// SkippedDir receives a skipped-rows report per source; empty disables it
	SkippedDir string `env:"SKIPPED_ROWS_DIR"`
}

// RunConfig holds pipeline settings.
type RunConfig struct {
	// Timeout bounds a whole run (default: 5m)
	Timeout time.Duration `env:"RUN_TIMEOUT" default:"5m"`

	// ResetOnStart drops and recreates both tables before loading (default: true)
	ResetOnStart bool `env:"RUN_RESET_ON_START" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}
