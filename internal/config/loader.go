package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		if envName == "" {
			continue
		}

		value, err := lookup(field.Tag)
		if err != nil {
			return err
		}
		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// lookup resolves a field's raw value: primary env var, then the alternate,
// then the default. A required field with nothing set is an error.
func lookup(tag reflect.StructTag) (string, error) {
	envName := tag.Get("env")

	if v := os.Getenv(envName); v != "" {
		return v, nil
	}
	if alt := tag.Get("envAlt"); alt != "" {
		if v := os.Getenv(alt); v != "" {
			return v, nil
		}
	}
	if tag.Get("required") == "true" {
		return "", fmt.Errorf("required environment variable %s is not set", envName)
	}
	return tag.Get("default"), nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(strings.TrimSpace(value))

	case reflect.Int, reflect.Int64:
		i, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(i)

	case reflect.Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Database validation
	switch strings.ToLower(c.Database.Driver) {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Sprintf("DB_DRIVER (%q) must be one of: sqlite, postgres", c.Database.Driver))
	}
	if c.Database.URL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if strings.EqualFold(c.Database.Driver, DriverPostgres) {
		if c.Database.URL != "" && !isPostgresDSN(c.Database.URL) {
			errs = append(errs, "DATABASE_URL is not a PostgreSQL connection string (postgres://... or key=value)")
		}
		if c.Database.MaxConns <= 0 {
			errs = append(errs, "DB_MAX_CONNS must be positive")
		}
		if c.Database.MinConns < 0 {
			errs = append(errs, "DB_MIN_CONNS must be non-negative")
		}
		if c.Database.MaxConns < c.Database.MinConns {
			errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
				c.Database.MaxConns, c.Database.MinConns))
		}
	}

	// Files validation
	if c.Files.Users == "" {
		errs = append(errs, "USERS_FILE must not be empty")
	}
	if c.Files.CallLogs == "" {
		errs = append(errs, "CALL_LOGS_FILE must not be empty")
	}
	if c.Files.UserAnalytics == "" {
		errs = append(errs, "USER_ANALYTICS_FILE must not be empty")
	}
	if c.Files.OrderedCalls == "" {
		errs = append(errs, "ORDERED_CALLS_FILE must not be empty")
	}

	// Run validation
	if c.Run.Timeout <= 0 {
		errs = append(errs, "RUN_TIMEOUT must be positive")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// isPostgresDSN reports whether dsn is a postgres:// URL or a key=value
// connection string.
func isPostgresDSN(dsn string) bool {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return true
	}
	return strings.Contains(lower, "=") && !strings.Contains(lower, "://")
}

// String returns a safe string representation of the config for logging.
// The database URL is masked unless it is the in-memory default.
func (c *Config) String() string {
	url := "[MASKED]"
	if c.Database.URL == ":memory:" {
		url = c.Database.URL
	}

	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Database: {Driver: %q, URL: %s, MaxConns: %d}, ", c.Database.Driver, url, c.Database.MaxConns)
	fmt.Fprintf(&b, "Files: {Users: %q, CallLogs: %q, UserAnalytics: %q, OrderedCalls: %q, SkippedDir: %q}, ",
		c.Files.Users, c.Files.CallLogs, c.Files.UserAnalytics, c.Files.OrderedCalls, c.Files.SkippedDir)
	fmt.Fprintf(&b, "Run: {Timeout: %s, ResetOnStart: %v}, ", c.Run.Timeout, c.Run.ResetOnStart)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
