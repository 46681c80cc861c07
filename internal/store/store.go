// Package store opens the storage engine selected by configuration.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/callstats/internal/config"
	"github.com/JonMunkholm/callstats/internal/core"
	"github.com/JonMunkholm/callstats/internal/store/postgres"
	"github.com/JonMunkholm/callstats/internal/store/sqlite"
)

// Handle is an open store. Close releases its connections.
type Handle interface {
	core.Store
	Close() error
}

// Open returns a Handle for cfg.Driver with both tables present.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Handle, error) {
	switch strings.ToLower(cfg.Driver) {
	case config.DriverSQLite, "":
		s, err := sqlite.Open(ctx, cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, nil
	case config.DriverPostgres:
		s, err := postgres.Open(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", cfg.Driver)
	}
}
