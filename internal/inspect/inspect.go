// Package inspect renders stored tables for a quick look from the terminal.
package inspect

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/JonMunkholm/callstats/internal/core"
)

// Source is the read side of core.Store that Render needs.
type Source interface {
	Users(ctx context.Context) ([]core.User, error)
	CallLogs(ctx context.Context) ([]core.CallLog, error)
}

// Render writes the users table followed by the call_logs table to w.
func Render(ctx context.Context, w io.Writer, src Source) error {
	users, err := src.Users(ctx)
	if err != nil {
		return fmt.Errorf("query users: %w", err)
	}
	calls, err := src.CallLogs(ctx)
	if err != nil {
		return fmt.Errorf("query call logs: %w", err)
	}

	if _, err := fmt.Fprintf(w, "users:\n%s\n\ncall_logs:\n%s\n", UsersTable(users), CallLogsTable(calls)); err != nil {
		return fmt.Errorf("write tables: %w", err)
	}
	return nil
}

// UsersTable renders users as a table with a row count footer.
func UsersTable(users []core.User) string {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"userId", "firstName", "lastName"})
	for _, u := range users {
		tbl.AppendRow(table.Row{u.UserID, u.FirstName, u.LastName})
	}
	tbl.AppendFooter(table.Row{"", "", total(len(users))})
	return tbl.Render()
}

// CallLogsTable renders call logs with their duration and a row count footer.
func CallLogsTable(calls []core.CallLog) string {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"callId", "phoneNumber", "startTime", "endTime", "direction", "userId", "duration"})
	for _, c := range calls {
		tbl.AppendRow(table.Row{c.CallID, c.PhoneNumber, c.StartTime, c.EndTime, c.Direction, c.UserID, c.Duration()})
	}
	tbl.AppendFooter(table.Row{"", "", "", "", "", "", total(len(calls))})
	return tbl.Render()
}

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	return tbl
}

func total(n int) string {
	return fmt.Sprintf("Total: %s", humanize.Comma(int64(n)))
}
