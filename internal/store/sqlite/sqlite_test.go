package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/callstats/internal/core"
)

// setupTestStore creates an in-memory SQLite store with both tables.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleCalls() []core.CallLog {
	return []core.CallLog{
		{CallID: 1, PhoneNumber: "555-0101", StartTime: 300, EndTime: 400, Direction: "outbound", UserID: 4},
		{CallID: 2, PhoneNumber: "555-0202", StartTime: 900, EndTime: 930, Direction: "inbound", UserID: 1},
		{CallID: 3, PhoneNumber: "555-0102", StartTime: 100, EndTime: 210, Direction: "inbound", UserID: 4},
		{CallID: 4, PhoneNumber: "555-0203", StartTime: 200, EndTime: 260, Direction: "outbound", UserID: 1},
	}
}

func TestOpen_CreatesEmptyTables(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	users, err := s.Users(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	calls, err := s.CallLogs(ctx)
	require.NoError(t, err)
	assert.Empty(t, calls)
}

func TestInsertUsers_RoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	in := []core.User{
		{UserID: 1, FirstName: "Ada", LastName: "Lovelace"},
		{UserID: 2, FirstName: "Alan", LastName: "Turing"},
	}
	require.NoError(t, s.InsertUsers(ctx, in))

	got, err := s.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestInsertCallLogs_UnknownUserAllowed(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	// No users loaded at all: the reference is declared, not enforced.
	require.NoError(t, s.InsertCallLogs(ctx, sampleCalls()))

	got, err := s.CallLogs(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 4)
	assert.Equal(t, int64(1), got[0].CallID)
}

func TestInsertUsers_DuplicateRollsBackBatch(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertUsers(ctx, []core.User{{UserID: 1, FirstName: "Ada", LastName: "Lovelace"}}))

	err := s.InsertUsers(ctx, []core.User{
		{UserID: 2, FirstName: "Grace", LastName: "Hopper"},
		{UserID: 1, FirstName: "Alan", LastName: "Turing"},
	})
	require.Error(t, err)
	assert.Equal(t, "DB001", core.MapError(err).Code)

	got, err := s.Users(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1, "user 2 must not survive the failed batch")
}

func TestReset_DropsRows(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertUsers(ctx, []core.User{{UserID: 1, FirstName: "Ada", LastName: "Lovelace"}}))
	require.NoError(t, s.InsertCallLogs(ctx, sampleCalls()))

	require.NoError(t, s.Reset(ctx))

	users, err := s.Users(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	calls, err := s.CallLogs(ctx)
	require.NoError(t, err)
	assert.Empty(t, calls)

	// Ids can be reused after a reset.
	require.NoError(t, s.InsertUsers(ctx, []core.User{{UserID: 1, FirstName: "Ada", LastName: "Lovelace"}}))
}

func TestUserAnalytics(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.InsertCallLogs(ctx, sampleCalls()))

	got, err := s.UserAnalytics(ctx)
	require.NoError(t, err)

	assert.Equal(t, []core.AnalyticsRecord{
		{UserID: 1, AvgDuration: 45.0, NumCalls: 2},
		{UserID: 4, AvgDuration: 105.0, NumCalls: 2},
	}, got)
}

func TestUserAnalytics_FractionalMean(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.InsertCallLogs(ctx, []core.CallLog{
		{CallID: 1, PhoneNumber: "a", StartTime: 0, EndTime: 1, Direction: "in", UserID: 2},
		{CallID: 2, PhoneNumber: "b", StartTime: 0, EndTime: 2, Direction: "in", UserID: 2},
	}))

	got, err := s.UserAnalytics(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1.5, got[0].AvgDuration)
}

func TestOrderedCallLogs(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.InsertCallLogs(ctx, sampleCalls()))

	got, err := s.OrderedCallLogs(ctx)
	require.NoError(t, err)
	require.Len(t, got, 4)

	ids := make([]int64, len(got))
	for i, c := range got {
		ids[i] = c.CallID
	}
	assert.Equal(t, []int64{4, 2, 3, 1}, ids)
}

// ============================================================================
// Transaction failure paths (sqlmock)
// ============================================================================

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestInsertUsers_CommitFailurePropagates(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").
		WithArgs(int64(1), "Ada", "Lovelace").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit().WillReturnError(errors.New("disk I/O error"))

	err := s.InsertUsers(context.Background(), []core.User{{UserID: 1, FirstName: "Ada", LastName: "Lovelace"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertCallLogs_ExecFailureRollsBack(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO call_logs").
		WithArgs(int64(1), "555-0101", int64(300), int64(400), "outbound", int64(4)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO call_logs").
		WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()

	err := s.InsertCallLogs(context.Background(), sampleCalls()[:2])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert call log 2")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertUsers_BeginFailurePropagates(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	err := s.InsertUsers(context.Background(), []core.User{{UserID: 1, FirstName: "Ada", LastName: "Lovelace"}})
	require.Error(t, err)
	assert.Equal(t, "DB003", core.MapError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserAnalytics_ScansRows(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT user_id").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "avg_duration", "num_calls"}).
			AddRow(int64(4), 105.0, int64(2)))

	got, err := s.UserAnalytics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []core.AnalyticsRecord{{UserID: 4, AvgDuration: 105.0, NumCalls: 2}}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
