package core

// validation.go decides whether a raw row may become a User or a CallLog.
//
// Call-log rows go through two phases:
//  1. Presence: every column is supplied and non-empty
//  2. Parse: startTime, endTime and userId are base-10 integers
//
// A presence failure is a plain validity result. A parse failure is returned
// as an *IntegerParseError so callers can tell the two apart.

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Skip reason codes. See error_messages.go for the user-facing catalogue.
const (
	CodeInvalidInteger = "VAL002"
	CodeEmptyField     = "VAL003"
	CodeMissingField   = "VAL004"
	CodeFieldCount     = "VAL007"
)

// Row is one data record of a source, keyed by header column.
type Row struct {
	Line   int               // 1-indexed line in the source
	Width  int               // number of header columns
	Fields map[string]string // columns the record actually supplied
	Extra  []string          // cells beyond the header width
	Raw    []string          // the record as read
}

// Get returns the raw value of a column and whether the record supplied it.
func (r Row) Get(name string) (string, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

// FieldCount returns how many fields the row has: every header column,
// supplied or not, plus any cells beyond the header.
func (r Row) FieldCount() int {
	n := len(r.Fields) + len(r.Extra)
	if padded := r.Width + len(r.Extra); padded > n {
		return padded
	}
	return n
}

// SkipReason records why a row was left out of storage.
type SkipReason struct {
	Line    int
	Code    string
	Field   string
	Value   string
	Message string
	Data    []string
}

func (s SkipReason) Error() string {
	if s.Field != "" {
		return fmt.Sprintf("line %d: %s: %s", s.Line, s.Field, s.Message)
	}
	return fmt.Sprintf("line %d: %s", s.Line, s.Message)
}

// IntegerParseError is returned by ParseCallLog when an integer column
// holds something strconv cannot parse.
type IntegerParseError struct {
	Field string
	Value string
	Err   error
}

func (e *IntegerParseError) Error() string {
	return fmt.Sprintf("invalid integer for %q: %q", e.Field, e.Value)
}

func (e *IntegerParseError) Unwrap() error {
	return e.Err
}

// IsValidUser reports whether row can become a User.
func IsValidUser(row Row) bool {
	return checkUser(row) == nil
}

// IsValidCallLog reports whether row passes both the presence check and
// integer parsing.
func IsValidCallLog(row Row) bool {
	if checkCallLogPresence(row) != nil {
		return false
	}
	_, err := ParseCallLog(row)
	return err == nil
}

// checkUser returns nil when both names are non-blank after trimming and the
// record carried exactly two fields.
func checkUser(row Row) *SkipReason {
	for _, col := range UserColumns {
		v, ok := row.Get(col)
		if !ok {
			return skip(row, CodeMissingField, col, "", "required field is missing")
		}
		if strings.TrimSpace(v) == "" {
			return skip(row, CodeEmptyField, col, v, "required field is empty")
		}
	}
	if n := row.FieldCount(); n != len(UserColumns) {
		return skip(row, CodeFieldCount, "", "",
			fmt.Sprintf("expected %d fields, got %d", len(UserColumns), n))
	}
	return nil
}

// checkCallLogPresence returns nil when every call-log column is supplied
// and non-empty. Values are not trimmed.
func checkCallLogPresence(row Row) *SkipReason {
	for _, col := range CallLogColumns {
		v, ok := row.Get(col)
		if !ok {
			return skip(row, CodeMissingField, col, "", "required field is missing")
		}
		if v == "" {
			return skip(row, CodeEmptyField, col, v, "required field is empty")
		}
	}
	return nil
}

// ParseCallLog converts a row that passed the presence check into a CallLog.
// CallID is left zero for the loader to assign.
func ParseCallLog(row Row) (CallLog, error) {
	start, err := parseIntField(row, ColStartTime)
	if err != nil {
		return CallLog{}, err
	}
	end, err := parseIntField(row, ColEndTime)
	if err != nil {
		return CallLog{}, err
	}
	userID, err := parseIntField(row, ColUserID)
	if err != nil {
		return CallLog{}, err
	}

	phone, _ := row.Get(ColPhoneNumber)
	direction, _ := row.Get(ColDirection)

	return CallLog{
		PhoneNumber: phone,
		StartTime:   start,
		EndTime:     end,
		Direction:   direction,
		UserID:      userID,
	}, nil
}

// parseIntField parses a base-10 integer, tolerating surrounding whitespace.
func parseIntField(row Row, col string) (int64, error) {
	v, _ := row.Get(col)
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, &IntegerParseError{Field: col, Value: v, Err: err}
	}
	return n, nil
}

// parseSkip converts a ParseCallLog error into a SkipReason.
// Returns nil for errors that are not parse failures.
func parseSkip(row Row, err error) *SkipReason {
	var perr *IntegerParseError
	if !errors.As(err, &perr) {
		return nil
	}
	return skip(row, CodeInvalidInteger, perr.Field, perr.Value, "invalid integer")
}

func skip(row Row, code, field, value, msg string) *SkipReason {
	return &SkipReason{
		Line:    row.Line,
		Code:    code,
		Field:   field,
		Value:   value,
		Message: msg,
		Data:    row.Raw,
	}
}
