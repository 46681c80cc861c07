package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/callstats/internal/config"
	"github.com/JonMunkholm/callstats/internal/core"
	"github.com/JonMunkholm/callstats/internal/inspect"
	"github.com/JonMunkholm/callstats/internal/logging"
	"github.com/JonMunkholm/callstats/internal/store"
)

// overrides holds flag values that replace their environment counterparts
// when set.
type overrides struct {
	users        string
	callLogs     string
	analyticsOut string
	orderedOut   string
	skippedDir   string
	dbDriver     string
	dbURL        string
}

// cli is the state shared by every subcommand of one invocation.
type cli struct {
	flags overrides
	cfg   *config.Config
}

func newRootCommand() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "callstats",
		Short: "Load call logs into a relational store and report on them",
		Long: `callstats reads users and call logs from CSV files, skips malformed rows,
stores the rest and writes two reports: per-user call analytics and all calls
ordered by user and start time.

Commands:
  run     Reset, load both sources and write both reports
  reset   Drop and recreate the tables
  dump    Print the stored tables`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return c.loadConfig()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.flags.users, "users", "", "users source file (USERS_FILE)")
	pf.StringVar(&c.flags.callLogs, "call-logs", "", "call logs source file (CALL_LOGS_FILE)")
	pf.StringVar(&c.flags.analyticsOut, "analytics-out", "", "user analytics report file (USER_ANALYTICS_FILE)")
	pf.StringVar(&c.flags.orderedOut, "ordered-out", "", "ordered calls report file (ORDERED_CALLS_FILE)")
	pf.StringVar(&c.flags.skippedDir, "skipped-dir", "", "directory for skipped-rows reports (SKIPPED_ROWS_DIR)")
	pf.StringVar(&c.flags.dbDriver, "db-driver", "", "storage driver: sqlite or postgres (DB_DRIVER)")
	pf.StringVar(&c.flags.dbURL, "db-url", "", "SQLite path or PostgreSQL URL (DATABASE_URL)")

	root.AddCommand(c.runCommand())
	root.AddCommand(c.resetCommand())
	root.AddCommand(c.dumpCommand())

	return root
}

// loadConfig reads the environment, applies flag overrides and sets up logging.
func (c *cli) loadConfig() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Files.Users, c.flags.users)
	set(&cfg.Files.CallLogs, c.flags.callLogs)
	set(&cfg.Files.UserAnalytics, c.flags.analyticsOut)
	set(&cfg.Files.OrderedCalls, c.flags.orderedOut)
	set(&cfg.Files.SkippedDir, c.flags.skippedDir)
	set(&cfg.Database.Driver, c.flags.dbDriver)
	set(&cfg.Database.URL, c.flags.dbURL)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())

	c.cfg = cfg
	return nil
}

// withService opens the configured store for the duration of fn.
// The context carries a fresh run ID and the run timeout.
func (c *cli) withService(ctx context.Context, fn func(context.Context, *core.Service) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Run.Timeout)
	defer cancel()

	ctx = logging.WithRunID(ctx, uuid.NewString())

	h, err := store.Open(ctx, c.cfg.Database)
	if err != nil {
		return err
	}
	defer h.Close()

	logging.FromContext(ctx).Info("store opened", "driver", c.cfg.Database.Driver)

	svc := core.NewService(h, core.ServiceConfig{SkippedDir: c.cfg.Files.SkippedDir})
	return fn(ctx, svc)
}

func (c *cli) runCommand() *cobra.Command {
	var dump bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load both sources and write both reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withService(cmd.Context(), func(ctx context.Context, svc *core.Service) error {
				return runPipeline(ctx, svc, c.cfg, cmd.OutOrStdout(), dump)
			})
		},
	}

	cmd.Flags().BoolVar(&dump, "dump", false, "print the stored tables after loading")

	return cmd
}

func (c *cli) resetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Drop and recreate the users and call_logs tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withService(cmd.Context(), func(ctx context.Context, svc *core.Service) error {
				if err := svc.Reset(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "tables reset")
				return nil
			})
		},
	}
}

func (c *cli) dumpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print the stored users and call_logs tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withService(cmd.Context(), func(ctx context.Context, svc *core.Service) error {
				return inspect.Render(ctx, cmd.OutOrStdout(), svc.Store())
			})
		},
	}
}

// runPipeline runs load users, load call logs, analytics, ordered calls.
func runPipeline(ctx context.Context, svc *core.Service, cfg *config.Config, out io.Writer, dump bool) error {
	if cfg.Run.ResetOnStart {
		if err := svc.Reset(ctx); err != nil {
			return err
		}
	}

	users, err := svc.LoadUsersFile(ctx, cfg.Files.Users)
	if err != nil {
		return err
	}
	calls, err := svc.LoadCallLogsFile(ctx, cfg.Files.CallLogs)
	if err != nil {
		return err
	}

	analytics, err := svc.WriteUserAnalyticsFile(ctx, cfg.Files.UserAnalytics)
	if err != nil {
		return err
	}
	ordered, err := svc.WriteOrderedCallsFile(ctx, cfg.Files.OrderedCalls)
	if err != nil {
		return err
	}

	printLoad(out, users)
	printLoad(out, calls)
	fmt.Fprintf(out, "%s: %s users\n", cfg.Files.UserAnalytics, humanize.Comma(int64(analytics)))
	fmt.Fprintf(out, "%s: %s calls\n", cfg.Files.OrderedCalls, humanize.Comma(int64(ordered)))

	if dump {
		return inspect.Render(ctx, out, svc.Store())
	}
	return nil
}

func printLoad(out io.Writer, r core.LoadResult) {
	fmt.Fprintf(out, "%s: %s loaded, %s skipped\n",
		r.Source, humanize.Comma(int64(r.Inserted)), humanize.Comma(int64(r.SkippedCount())))
	for _, s := range r.Skipped {
		fmt.Fprintf(out, "  %s [%s]\n", s.Error(), s.Code)
	}
}
