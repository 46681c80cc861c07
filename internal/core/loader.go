package core

// loader.go reads sources into storage.
//
// Each load folds the rows of one source into a list of records and a list
// of skip reasons. Ids come from a counter local to the call and advance only
// for rows that are kept, so they are dense 1..N in source order regardless
// of how many rows were skipped. The kept records are handed to the Store in
// a single batch, which the Store commits as one transaction.

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/JonMunkholm/callstats/internal/logging"
)

// rowResult is the outcome for one source row: a record or a reason.
type rowResult[T any] struct {
	record T
	skip   *SkipReason
}

// fold splits row results into kept records and skip reasons, keeping order.
func fold[T any](results []rowResult[T]) ([]T, []SkipReason) {
	var kept []T
	var skipped []SkipReason
	for _, r := range results {
		if r.skip != nil {
			skipped = append(skipped, *r.skip)
			continue
		}
		kept = append(kept, r.record)
	}
	return kept, skipped
}

// LoadUsers reads a users source and inserts every valid row.
// name identifies the source in logs and in the result.
//
// The store must have been reset: ids restart at 1 on every call.
func (s *Service) LoadUsers(ctx context.Context, src io.Reader, name string) (LoadResult, error) {
	start := time.Now()
	logger := logging.WithFields(ctx, "source", name, "table", "users")

	_, rows, err := ReadRows(src)
	if err != nil {
		return LoadResult{Source: name}, fmt.Errorf("load users from %s: %w", name, err)
	}

	results := make([]rowResult[User], 0, len(rows))
	nextID := int64(1)

	for _, row := range rows {
		if reason := checkUser(row); reason != nil {
			logger.Debug("row skipped", "line", reason.Line, "code", reason.Code, "reason", reason.Message)
			results = append(results, rowResult[User]{skip: reason})
			continue
		}

		first, _ := row.Get(ColFirstName)
		last, _ := row.Get(ColLastName)
		results = append(results, rowResult[User]{record: User{
			UserID:    nextID,
			FirstName: strings.TrimSpace(first),
			LastName:  strings.TrimSpace(last),
		}})
		nextID++
	}

	users, skipped := fold(results)

	if len(users) > 0 {
		if err := s.store.InsertUsers(ctx, users); err != nil {
			return LoadResult{Source: name, TotalRows: len(rows)}, fmt.Errorf("load users from %s: %w", name, err)
		}
	}

	result := LoadResult{
		Source:    name,
		TotalRows: len(rows),
		Inserted:  len(users),
		Skipped:   skipped,
		Duration:  time.Since(start),
	}

	logger.Info("user data loaded",
		"rows", result.TotalRows,
		"inserted", result.Inserted,
		"skipped", result.SkippedCount(),
		"duration", result.Duration,
	)

	return result, nil
}

// LoadCallLogs reads a call-log source and inserts every valid row.
//
// Rows are checked for presence first; rows that pass are then parsed.
// A parse failure skips the row with a warning and does not consume a callId.
func (s *Service) LoadCallLogs(ctx context.Context, src io.Reader, name string) (LoadResult, error) {
	start := time.Now()
	logger := logging.WithFields(ctx, "source", name, "table", "call_logs")

	_, rows, err := ReadRows(src)
	if err != nil {
		return LoadResult{Source: name}, fmt.Errorf("load call logs from %s: %w", name, err)
	}

	results := make([]rowResult[CallLog], 0, len(rows))
	nextID := int64(1)

	for _, row := range rows {
		if reason := checkCallLogPresence(row); reason != nil {
			logger.Debug("row skipped", "line", reason.Line, "code", reason.Code, "reason", reason.Message)
			results = append(results, rowResult[CallLog]{skip: reason})
			continue
		}

		call, err := ParseCallLog(row)
		if err != nil {
			reason := parseSkip(row, err)
			if reason == nil {
				return LoadResult{Source: name, TotalRows: len(rows)}, fmt.Errorf("load call logs from %s: line %d: %w", name, row.Line, err)
			}
			logger.Warn("invalid data in row",
				"line", reason.Line,
				"field", reason.Field,
				"value", reason.Value,
			)
			results = append(results, rowResult[CallLog]{skip: reason})
			continue
		}

		call.CallID = nextID
		results = append(results, rowResult[CallLog]{record: call})
		nextID++
	}

	logs, skipped := fold(results)

	if len(logs) > 0 {
		if err := s.store.InsertCallLogs(ctx, logs); err != nil {
			return LoadResult{Source: name, TotalRows: len(rows)}, fmt.Errorf("load call logs from %s: %w", name, err)
		}
	}

	result := LoadResult{
		Source:    name,
		TotalRows: len(rows),
		Inserted:  len(logs),
		Skipped:   skipped,
		Duration:  time.Since(start),
	}

	logger.Info("call log data loaded",
		"rows", result.TotalRows,
		"inserted", result.Inserted,
		"skipped", result.SkippedCount(),
		"duration", result.Duration,
	)

	return result, nil
}
