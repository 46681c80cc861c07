package core

import (
	"context"
	"time"
)

// Column names of the users source and the users table.
const (
	ColFirstName = "firstName"
	ColLastName  = "lastName"
)

// Column names of the call-log source, the ordered calls sink and the analytics sink.
const (
	ColCallID      = "callId"
	ColPhoneNumber = "phoneNumber"
	ColStartTime   = "startTime"
	ColEndTime     = "endTime"
	ColDirection   = "direction"
	ColUserID      = "userId"
	ColAvgDuration = "avgDuration"
	ColNumCalls    = "numCalls"
)

var (
	// UserColumns is the header a users source must carry.
	UserColumns = []string{ColFirstName, ColLastName}

	// CallLogColumns is the header a call-log source must carry.
	CallLogColumns = []string{ColPhoneNumber, ColStartTime, ColEndTime, ColDirection, ColUserID}

	// AnalyticsHeader is written as the first line of the analytics report.
	AnalyticsHeader = []string{ColUserID, ColAvgDuration, ColNumCalls}

	// OrderedCallsHeader is written as the first line of the ordered calls report.
	OrderedCallsHeader = []string{ColCallID, ColPhoneNumber, ColStartTime, ColEndTime, ColDirection, ColUserID}
)

// User is a cleaned users row. UserID is assigned at load time.
type User struct {
	UserID    int64
	FirstName string
	LastName  string
}

// CallLog is a cleaned call-log row. CallID is assigned at load time.
// UserID references User.UserID but is never checked against it.
type CallLog struct {
	CallID      int64
	PhoneNumber string
	StartTime   int64
	EndTime     int64
	Direction   string
	UserID      int64
}

// Duration returns EndTime - StartTime.
func (c CallLog) Duration() int64 {
	return c.EndTime - c.StartTime
}

// AnalyticsRecord is the per-user aggregate over CallLog.
type AnalyticsRecord struct {
	UserID      int64
	AvgDuration float64
	NumCalls    int64
}

// Store is the relational storage the loaders and reporters run against.
//
// InsertUsers and InsertCallLogs must write the whole batch in one
// transaction: either every row lands or none does.
type Store interface {
	InsertUsers(ctx context.Context, users []User) error
	InsertCallLogs(ctx context.Context, logs []CallLog) error

	// UserAnalytics groups CallLog by user. Row order is unspecified.
	UserAnalytics(ctx context.Context) ([]AnalyticsRecord, error)

	// OrderedCallLogs returns every CallLog ordered by user then start time.
	OrderedCallLogs(ctx context.Context) ([]CallLog, error)

	Users(ctx context.Context) ([]User, error)
	CallLogs(ctx context.Context) ([]CallLog, error)

	// Reset drops and recreates both tables.
	Reset(ctx context.Context) error
}

// LoadResult summarizes one loader pass over a source.
type LoadResult struct {
	Source    string
	TotalRows int
	Inserted  int
	Skipped   []SkipReason
	Duration  time.Duration
}

// SkippedCount returns the number of rows that did not make it into storage.
func (r LoadResult) SkippedCount() int {
	return len(r.Skipped)
}
