package core

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/JonMunkholm/callstats/internal/logging"
)

// WriteUserAnalytics writes one line per user that has calls:
// userId, mean call duration, call count. Returns the number of data rows.
//
// Row order follows the store and is not part of the report's contract.
func (s *Service) WriteUserAnalytics(ctx context.Context, w io.Writer) (int, error) {
	records, err := s.store.UserAnalytics(ctx)
	if err != nil {
		return 0, fmt.Errorf("query user analytics: %w", err)
	}

	out := make([][]string, len(records))
	for i, r := range records {
		out[i] = []string{
			strconv.FormatInt(r.UserID, 10),
			FormatAverage(r.AvgDuration),
			strconv.FormatInt(r.NumCalls, 10),
		}
	}

	if err := writeCSV(w, AnalyticsHeader, out); err != nil {
		return 0, fmt.Errorf("write user analytics: %w", err)
	}

	logging.FromContext(ctx).Info("user analytics data written", "users", len(records))
	return len(records), nil
}

// WriteOrderedCalls writes every call log ordered by userId, then startTime.
// Returns the number of data rows.
func (s *Service) WriteOrderedCalls(ctx context.Context, w io.Writer) (int, error) {
	calls, err := s.store.OrderedCallLogs(ctx)
	if err != nil {
		return 0, fmt.Errorf("query ordered calls: %w", err)
	}

	out := make([][]string, len(calls))
	for i, c := range calls {
		out[i] = callLogRecord(c)
	}

	if err := writeCSV(w, OrderedCallsHeader, out); err != nil {
		return 0, fmt.Errorf("write ordered calls: %w", err)
	}

	logging.FromContext(ctx).Info("ordered call logs written", "calls", len(calls))
	return len(calls), nil
}

// WriteSkipReport writes skip reasons as line, code, field, reason followed
// by the raw cells of the skipped row.
func WriteSkipReport(w io.Writer, reasons []SkipReason) error {
	out := make([][]string, len(reasons))
	for i, r := range reasons {
		rec := []string{strconv.Itoa(r.Line), r.Code, r.Field, r.Message}
		out[i] = append(rec, r.Data...)
	}
	return writeCSV(w, []string{"line", "code", "field", "reason", "data"}, out)
}

func callLogRecord(c CallLog) []string {
	return []string{
		strconv.FormatInt(c.CallID, 10),
		c.PhoneNumber,
		strconv.FormatInt(c.StartTime, 10),
		strconv.FormatInt(c.EndTime, 10),
		c.Direction,
		strconv.FormatInt(c.UserID, 10),
	}
}
