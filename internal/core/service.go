package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/callstats/internal/logging"
)

// ServiceConfig holds optional Service behavior.
type ServiceConfig struct {
	// SkippedDir, when set, receives "<source> - skipped.csv" for every file
	// load that left rows out.
	SkippedDir string
}

// Service runs the loaders and reporters against one Store.
// A Service holds no state between calls beyond its Store.
type Service struct {
	store Store
	cfg   ServiceConfig
}

// NewService creates a Service bound to store.
func NewService(store Store, cfg ServiceConfig) *Service {
	return &Service{store: store, cfg: cfg}
}

// Store returns the Store the service was created with.
func (s *Service) Store() Store {
	return s.store
}

// Reset drops and recreates both tables. Loads assume a freshly reset store.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	logging.FromContext(ctx).Info("store reset")
	return nil
}

// LoadUsersFile opens path and runs LoadUsers over it.
func (s *Service) LoadUsersFile(ctx context.Context, path string) (LoadResult, error) {
	return s.loadFile(ctx, path, s.LoadUsers)
}

// LoadCallLogsFile opens path and runs LoadCallLogs over it.
func (s *Service) LoadCallLogsFile(ctx context.Context, path string) (LoadResult, error) {
	return s.loadFile(ctx, path, s.LoadCallLogs)
}

// WriteUserAnalyticsFile creates path and writes the analytics report to it.
func (s *Service) WriteUserAnalyticsFile(ctx context.Context, path string) (int, error) {
	return writeFile(path, func(f *os.File) (int, error) {
		return s.WriteUserAnalytics(ctx, f)
	})
}

// WriteOrderedCallsFile creates path and writes the ordered calls report to it.
func (s *Service) WriteOrderedCallsFile(ctx context.Context, path string) (int, error) {
	return writeFile(path, func(f *os.File) (int, error) {
		return s.WriteOrderedCalls(ctx, f)
	})
}

func (s *Service) loadFile(ctx context.Context, path string, load func(context.Context, io.Reader, string) (LoadResult, error)) (LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return LoadResult{Source: path}, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	name := filepath.Base(path)
	result, err := load(ctx, f, name)
	if err != nil {
		return result, err
	}

	if s.cfg.SkippedDir != "" && len(result.Skipped) > 0 {
		if err := s.writeSkippedFile(name, result.Skipped); err != nil {
			return result, err
		}
	}

	return result, nil
}

func (s *Service) writeSkippedFile(source string, reasons []SkipReason) error {
	// Sanitize to keep the report inside SkippedDir
	safe := filepath.Base(source)
	if safe != source || strings.Contains(source, "..") {
		return fmt.Errorf("invalid source name: %q", source)
	}

	name := fmt.Sprintf("%s - skipped.csv", strings.TrimSuffix(safe, filepath.Ext(safe)))
	path := filepath.Join(s.cfg.SkippedDir, name)

	_, err := writeFile(path, func(f *os.File) (int, error) {
		return len(reasons), WriteSkipReport(f, reasons)
	})
	return err
}

// writeFile creates path and its directory, then runs write.
// A close error is returned when write itself succeeded.
func writeFile(path string, write func(*os.File) (int, error)) (n int, err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 0, fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create sink: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close sink: %w", cerr)
		}
	}()

	return write(f)
}
