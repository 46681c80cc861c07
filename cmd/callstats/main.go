// Command callstats loads user and call-log CSV files into a relational store
// and writes the per-user analytics and ordered call reports.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/callstats/internal/core"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		slog.Error("command failed", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %s\n", core.FormatUserError(err))
		stop()
		os.Exit(1)
	}
}
