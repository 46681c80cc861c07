// Package postgres implements core.Store on PostgreSQL using pgx.
//
// Inserts use the COPY protocol inside a transaction, so a batch either lands
// whole or not at all.
//
// call_logs carries no FOREIGN KEY constraint here: PostgreSQL would enforce
// it on insert, and call logs must load whether or not their users exist.
package postgres

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/callstats/internal/config"
	"github.com/JonMunkholm/callstats/internal/core"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

const createSQL = `
CREATE TABLE IF NOT EXISTS users (
	user_id    BIGINT PRIMARY KEY,
	first_name TEXT,
	last_name  TEXT
);

CREATE TABLE IF NOT EXISTS call_logs (
	call_id      BIGINT PRIMARY KEY,
	phone_number TEXT,
	start_time   BIGINT,
	end_time     BIGINT,
	direction    TEXT,
	user_id      BIGINT
);

CREATE INDEX IF NOT EXISTS call_logs_user_start_idx ON call_logs (user_id, start_time);`

const dropSQL = `DROP TABLE IF EXISTS call_logs; DROP TABLE IF EXISTS users;`

const (
	userAnalyticsSQL = `
SELECT user_id,
       AVG((end_time - start_time)::float8) AS avg_duration,
       COUNT(*) AS num_calls
FROM call_logs
GROUP BY user_id
ORDER BY user_id`

	callLogSelect = `SELECT call_id, phone_number, start_time, end_time, direction, user_id FROM call_logs`

	orderedCallLogsSQL = callLogSelect + ` ORDER BY user_id, start_time, call_id`
	callLogsSQL        = callLogSelect + ` ORDER BY call_id`
	usersSQL           = `SELECT user_id, first_name, last_name FROM users ORDER BY user_id`
)

var (
	userCopyColumns    = []string{"user_id", "first_name", "last_name"}
	callLogCopyColumns = []string{"call_id", "phone_number", "start_time", "end_time", "direction", "user_id"}
)

// Store is a PostgreSQL-backed core.Store.
type Store struct {
	pool *pgxpool.Pool
}

var _ core.Store = (*Store)(nil)

// Open connects a pool using cfg, verifies the connection and ensures both
// tables exist.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := New(pool)
	if err := ensureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// New wraps an existing pool. The schema is not touched.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func ensureSchema(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, createSQL); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// Reset drops and recreates both tables in one transaction.
func (s *Store) Reset(ctx context.Context) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, dropSQL); err != nil {
			return fmt.Errorf("drop tables: %w", err)
		}
		return ensureSchema(ctx, tx)
	})
}

// InsertUsers copies users in one transaction.
func (s *Store) InsertUsers(ctx context.Context, users []core.User) error {
	rows := make([][]any, len(users))
	for i, u := range users {
		rows[i] = userCopyRow(u)
	}
	return s.copyIn(ctx, "users", userCopyColumns, rows)
}

// InsertCallLogs copies call logs in one transaction.
func (s *Store) InsertCallLogs(ctx context.Context, logs []core.CallLog) error {
	rows := make([][]any, len(logs))
	for i, c := range logs {
		rows[i] = callLogCopyRow(c)
	}
	return s.copyIn(ctx, "call_logs", callLogCopyColumns, rows)
}

func (s *Store) copyIn(ctx context.Context, table string, columns []string, rows [][]any) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	n, err := tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copy into %s: %w", table, err)
	}
	if int(n) != len(rows) {
		return fmt.Errorf("copy into %s: wrote %d of %d rows", table, n, len(rows))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// userCopyRow returns u's values in userCopyColumns order.
func userCopyRow(u core.User) []any {
	return []any{u.UserID, u.FirstName, u.LastName}
}

// callLogCopyRow returns c's values in callLogCopyColumns order.
func callLogCopyRow(c core.CallLog) []any {
	return []any{c.CallID, c.PhoneNumber, c.StartTime, c.EndTime, c.Direction, c.UserID}
}

// UserAnalytics returns average duration and call count per user.
func (s *Store) UserAnalytics(ctx context.Context) ([]core.AnalyticsRecord, error) {
	rows, err := s.pool.Query(ctx, userAnalyticsSQL)
	if err != nil {
		return nil, fmt.Errorf("query user analytics: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.AnalyticsRecord, error) {
		var r core.AnalyticsRecord
		err := row.Scan(&r.UserID, &r.AvgDuration, &r.NumCalls)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan user analytics: %w", err)
	}
	return out, nil
}

// OrderedCallLogs returns every call log ordered by user_id, then start_time.
func (s *Store) OrderedCallLogs(ctx context.Context) ([]core.CallLog, error) {
	return queryCallLogs(ctx, s.pool, orderedCallLogsSQL)
}

// CallLogs returns every call log in call_id order.
func (s *Store) CallLogs(ctx context.Context) ([]core.CallLog, error) {
	return queryCallLogs(ctx, s.pool, callLogsSQL)
}

func queryCallLogs(ctx context.Context, db DBTX, query string) ([]core.CallLog, error) {
	rows, err := db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query call logs: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.CallLog, error) {
		var c core.CallLog
		err := row.Scan(&c.CallID, &c.PhoneNumber, &c.StartTime, &c.EndTime, &c.Direction, &c.UserID)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan call logs: %w", err)
	}
	return out, nil
}

// Users returns every user in user_id order.
func (s *Store) Users(ctx context.Context) ([]core.User, error) {
	rows, err := s.pool.Query(ctx, usersSQL)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.User, error) {
		var u core.User
		err := row.Scan(&u.UserID, &u.FirstName, &u.LastName)
		return u, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan users: %w", err)
	}
	return out, nil
}
