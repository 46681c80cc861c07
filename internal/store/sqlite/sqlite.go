// Package sqlite implements core.Store on SQLite through database/sql and the
// pure-Go modernc.org/sqlite driver.
//
// The store keeps a single connection: an in-memory database lives only as
// long as its connection.
//
// call_logs declares its reference to users, but foreign key enforcement is
// switched off so call logs load whether or not their users exist.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/JonMunkholm/callstats/internal/core"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	user_id    INTEGER PRIMARY KEY,
	first_name TEXT,
	last_name  TEXT
);

CREATE TABLE IF NOT EXISTS call_logs (
	call_id      INTEGER PRIMARY KEY,
	phone_number TEXT,
	start_time   INTEGER,
	end_time     INTEGER,
	direction    TEXT,
	user_id      INTEGER,
	FOREIGN KEY (user_id) REFERENCES users(user_id)
);`

const (
	insertUserSQL    = `INSERT INTO users (user_id, first_name, last_name) VALUES (?, ?, ?)`
	insertCallLogSQL = `INSERT INTO call_logs (call_id, phone_number, start_time, end_time, direction, user_id) VALUES (?, ?, ?, ?, ?, ?)`

	userAnalyticsSQL = `
SELECT user_id,
       AVG(CAST(end_time - start_time AS REAL)) AS avg_duration,
       COUNT(*) AS num_calls
FROM call_logs
GROUP BY user_id
ORDER BY user_id`

	callLogColumns = `call_id, phone_number, start_time, end_time, direction, user_id`

	orderedCallLogsSQL = `SELECT ` + callLogColumns + ` FROM call_logs ORDER BY user_id, start_time, call_id`
	callLogsSQL        = `SELECT ` + callLogColumns + ` FROM call_logs ORDER BY call_id`
	usersSQL           = `SELECT user_id, first_name, last_name FROM users ORDER BY user_id`
)

// Store is a SQLite-backed core.Store.
type Store struct {
	db *sql.DB
}

var _ core.Store = (*Store)(nil)

// Open opens the SQLite database at dsn (":memory:" for a private in-memory
// database) and ensures both tables exist.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=OFF;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure foreign keys: %w", err)
	}

	s := New(db)
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// New wraps an already configured *sql.DB. The schema is not touched.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// Reset drops and recreates both tables.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS call_logs`); err != nil {
		return fmt.Errorf("drop call_logs: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS users`); err != nil {
		return fmt.Errorf("drop users: %w", err)
	}
	return s.ensureSchema(ctx)
}

// InsertUsers inserts users in one transaction.
func (s *Store) InsertUsers(ctx context.Context, users []core.User) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, u := range users {
			if _, err := tx.ExecContext(ctx, insertUserSQL, u.UserID, u.FirstName, u.LastName); err != nil {
				return fmt.Errorf("insert user %d: %w", u.UserID, err)
			}
		}
		return nil
	})
}

// InsertCallLogs inserts call logs in one transaction.
func (s *Store) InsertCallLogs(ctx context.Context, logs []core.CallLog) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, c := range logs {
			if _, err := tx.ExecContext(ctx, insertCallLogSQL,
				c.CallID, c.PhoneNumber, c.StartTime, c.EndTime, c.Direction, c.UserID,
			); err != nil {
				return fmt.Errorf("insert call log %d: %w", c.CallID, err)
			}
		}
		return nil
	})
}

// inTx runs fn inside a transaction, committing only if fn succeeds.
func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() // No-op once committed

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// UserAnalytics returns average duration and call count per user.
func (s *Store) UserAnalytics(ctx context.Context) ([]core.AnalyticsRecord, error) {
	rows, err := s.db.QueryContext(ctx, userAnalyticsSQL)
	if err != nil {
		return nil, fmt.Errorf("query user analytics: %w", err)
	}
	defer rows.Close()

	var out []core.AnalyticsRecord
	for rows.Next() {
		var r core.AnalyticsRecord
		if err := rows.Scan(&r.UserID, &r.AvgDuration, &r.NumCalls); err != nil {
			return nil, fmt.Errorf("scan user analytics: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user analytics: %w", err)
	}
	return out, nil
}

// OrderedCallLogs returns every call log ordered by user_id, then start_time.
func (s *Store) OrderedCallLogs(ctx context.Context) ([]core.CallLog, error) {
	return s.queryCallLogs(ctx, orderedCallLogsSQL)
}

// CallLogs returns every call log in call_id order.
func (s *Store) CallLogs(ctx context.Context) ([]core.CallLog, error) {
	return s.queryCallLogs(ctx, callLogsSQL)
}

func (s *Store) queryCallLogs(ctx context.Context, query string) ([]core.CallLog, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query call logs: %w", err)
	}
	defer rows.Close()

	var out []core.CallLog
	for rows.Next() {
		var c core.CallLog
		if err := rows.Scan(&c.CallID, &c.PhoneNumber, &c.StartTime, &c.EndTime, &c.Direction, &c.UserID); err != nil {
			return nil, fmt.Errorf("scan call log: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate call logs: %w", err)
	}
	return out, nil
}

// Users returns every user in user_id order.
func (s *Store) Users(ctx context.Context) ([]core.User, error) {
	rows, err := s.db.QueryContext(ctx, usersSQL)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var out []core.User
	for rows.Next() {
		var u core.User
		if err := rows.Scan(&u.UserID, &u.FirstName, &u.LastName); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return out, nil
}
