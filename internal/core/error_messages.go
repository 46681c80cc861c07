package core

// error_messages.go maps technical errors to short messages with a code
// that can be quoted when reporting a problem.
//
// # Configuration Errors (CFG001-CFG099)
//
//	CFG001 - Invalid configuration: an environment variable or flag is wrong
//	         Action: Fix the setting named in the error
//	         Patterns: "config load", "config validation", "validation failed",
//	                   "invalid value for"
//
// Configuration patterns come first: their messages name settings such as
// RUN_TIMEOUT that would otherwise match the database patterns.
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate id: store already holds rows with these ids
//	        Action: Reset the store before loading the same file again
//	        Patterns: "duplicate key", "unique constraint"
//
//	DB002 - Missing table: store has not been initialized
//	        Action: Run the reset command to create the tables
//	        Patterns: "no such table", "does not exist"
//
//	DB003 - Connection refused: unable to reach the database
//	        Action: Check DATABASE_URL and that the server is running
//	        Patterns: "connection refused"
//
//	DB004 - Timeout: operation timed out
//	        Action: Raise RUN_TIMEOUT or try again
//	        Patterns: "deadline exceeded", "i/o timeout"
//
// Skipped rows are reported through SkipReason codes (VAL002-VAL007, see
// validation.go) and never reach MapError.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - Not found: source file does not exist
//	          Patterns: "no such file"
//
//	FILE002 - Permission denied: file cannot be read or written
//	          Patterns: "permission denied"
//
//	FILE003 - Invalid CSV: source could not be parsed
//	          Patterns: "invalid csv"
//
// # Default Error (ERR000)
//
// Returned when no pattern matches. Check the logs for the original error.
//
// Patterns are matched case-insensitively with strings.Contains; the first
// match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Reference code
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Configuration
	{
		pattern: "config load",
		msg:     configMessage,
	},
	{
		pattern: "config validation",
		msg:     configMessage,
	},
	{
		pattern: "validation failed",
		msg:     configMessage,
	},
	{
		pattern: "invalid value for",
		msg:     configMessage,
	},

	// Database
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "Store already holds rows with these ids",
			Action:  "Reset the store before loading the same file again",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "Store already holds rows with these ids",
			Action:  "Reset the store before loading the same file again",
			Code:    "DB001",
		},
	},
	{
		pattern: "no such table",
		msg: UserMessage{
			Message: "Store has not been initialized",
			Action:  "Run the reset command to create the tables",
			Code:    "DB002",
		},
	},
	{
		pattern: "does not exist",
		msg: UserMessage{
			Message: "Store has not been initialized",
			Action:  "Run the reset command to create the tables",
			Code:    "DB002",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to reach the database",
			Action:  "Check DATABASE_URL and that the server is running",
			Code:    "DB003",
		},
	},
	{
		pattern: "deadline exceeded",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Raise RUN_TIMEOUT or try again",
			Code:    "DB004",
		},
	},
	{
		pattern: "i/o timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Raise RUN_TIMEOUT or try again",
			Code:    "DB004",
		},
	},

	// Files
	{
		pattern: "no such file",
		msg: UserMessage{
			Message: "File not found",
			Action:  "Check the path passed on the command line or in the environment",
			Code:    "FILE001",
		},
	},
	{
		pattern: "permission denied",
		msg: UserMessage{
			Message: "File cannot be accessed",
			Action:  "Check file permissions",
			Code:    "FILE002",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure the file is comma-separated with a header row",
			Code:    "FILE003",
		},
	},
}

var configMessage = UserMessage{
	Message: "Configuration is invalid",
	Action:  "Check the environment variables, .env file and flags named in the error",
	Code:    "CFG001",
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs for details",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns the ERR000 fallback when no pattern matches.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError returns "Message (Code: XXX). Action", or "" for nil.
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
