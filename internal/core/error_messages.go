package core

// error_messages.go maps conversion errors to user-friendly messages with codes
// for support reference.
//
// # Conversion Errors (CNV001-CNV099)
//
//	CNV001 - Engine missing: the Access database engine is not installed
//	         Action: Install the 64-bit Microsoft Access Database Engine and retry
//
// # Source Errors (SRC001-SRC099)
//
//	SRC001 - Source not found: the archive has no embedded database
//	SRC002 - Schema not found: the source database has no tables
//	SRC003 - Connection: the source database could not be opened
//	         Action: Install the Microsoft Access ODBC driver
//	SRC004 - Unsupported source: the file extension is not recognised
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key: a row with the same key was already loaded
//	DB004 - Connection refused
//	DB006 - Timeout
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid value: a numeric or date column holds unparseable text
//	VAL002 - Missing key: CUIT, ANIO or CUIL is absent from a record
//
// # Job Errors (JOB001-JOB099)
//
//	JOB001 - Invalid request
//	JOB002 - Too many conversions
//	JOB003 - Conversion not found
//
// # Default Error (ERR000)
//
// Sentinel errors are matched first with errors.Is. Errors from drivers that were
// never wrapped in a sentinel fall back to case-insensitive substring patterns.
// The first match wins in both lists.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type sentinelMessage struct {
	err error
	msg UserMessage
}

var sentinelMessages = []sentinelMessage{
	{ErrEngineMissing, UserMessage{
		Message: "The Microsoft Access Database Engine is missing",
		Action:  "Install the 64-bit Access Database Engine from Microsoft and try again",
		Code:    "CNV001",
	}},
	{ErrSourceNotFound, UserMessage{
		Message: "The source archive does not contain a database",
		Action:  "Check that the .odb file was saved with its embedded data",
		Code:    "SRC001",
	}},
	{ErrSchemaNotFound, UserMessage{
		Message: "No tables were found in the source database",
		Action:  "Open the source file and confirm it contains the contribution table",
		Code:    "SRC002",
	}},
	{ErrConnection, UserMessage{
		Message: "Could not connect to the source database",
		Action:  "Make sure the Microsoft Access ODBC driver is installed",
		Code:    "SRC003",
	}},
	{ErrUnsupportedSource, UserMessage{
		Message: "The source file type is not supported",
		Action:  "Use an .odb, .accdb, .mdb or .sqlite file",
		Code:    "SRC004",
	}},
	{ErrIntegrity, UserMessage{
		Message: "A record with this key was already loaded",
		Action:  "Remove duplicate CUIT/ANIO/CUIL or CUIT/month rows from the source",
		Code:    "DB001",
	}},
	{ErrInvalidValue, UserMessage{
		Message: "A value could not be converted",
		Action:  "Check numeric and date columns in the source",
		Code:    "VAL001",
	}},
	{ErrMissingKey, UserMessage{
		Message: "A record is missing its key columns",
		Action:  "Make sure CUIT, ANIO and CUIL are present in the source",
		Code:    "VAL002",
	}},
	{ErrInvalidRequest, UserMessage{
		Message: "The conversion request is incomplete",
		Action:  "Provide a destination and at least one source file",
		Code:    "JOB001",
	}},
	{ErrTooManyJobs, UserMessage{
		Message: "Another conversion is already running",
		Action:  "Wait for it to finish and try again",
		Code:    "JOB002",
	}},
	{ErrJobNotFound, UserMessage{
		Message: "Conversion not found",
		Action:  "The conversion may have expired. Please start a new one",
		Code:    "JOB003",
	}},
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{"unique constraint", UserMessage{
		Message: "A record with this key was already loaded",
		Action:  "Remove duplicate rows from the source",
		Code:    "DB001",
	}},
	{"connection refused", UserMessage{
		Message: "Unable to connect to database",
		Action:  "Please try again in a few moments",
		Code:    "DB004",
	}},
	{"timeout", UserMessage{
		Message: "Operation timed out",
		Action:  "Try again later",
		Code:    "DB006",
	}},
	{"deadline exceeded", UserMessage{
		Message: "Operation timed out",
		Action:  "Try again later",
		Code:    "DB006",
	}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns an empty UserMessage for a nil error.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
