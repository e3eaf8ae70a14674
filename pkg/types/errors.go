package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies ingestion failures so callers can report and react
// without parsing message text.
type ErrorCode string

// ErrorCode values enumerate the failure classes surfaced in outcomes.
const (
	CodeInvalidStrategy   ErrorCode = "invalid_strategy"
	CodeNotConfigured     ErrorCode = "not_configured"
	CodeSourceUnavailable ErrorCode = "source_unavailable"
	CodeSchemaConflict    ErrorCode = "schema_conflict"
	CodePartialReplace    ErrorCode = "partial_replace"
	CodeTimeoutExceeded   ErrorCode = "timeout_exceeded"
)

// Error is a classified ingestion failure tied to a table. Files carries the
// offending object URIs for schema conflicts.
type Error struct {
	Code  ErrorCode
	Table string
	Files []string
	Err   error
}

// NewError wraps err with a code and the table it concerns.
func NewError(code ErrorCode, table string, err error) *Error {
	return &Error{Code: code, Table: table, Err: err}
}

// Errorf builds a classified error from a format string.
func Errorf(code ErrorCode, table, format string, args ...any) *Error {
	return &Error{Code: code, Table: table, Err: fmt.Errorf(format, args...)}
}

// WithFiles attaches the offending object URIs and returns e.
func (e *Error) WithFiles(files []string) *Error {
	e.Files = files
	return e
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Code))
	if e.Table != "" {
		sb.WriteString(": table ")
		sb.WriteString(e.Table)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	if len(e.Files) > 0 {
		sb.WriteString(" [")
		sb.WriteString(strings.Join(e.Files, ", "))
		sb.WriteString("]")
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Err }

// CodeOf extracts the classification from err, or "" when err carries none.
func CodeOf(err error) ErrorCode {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Code
	}
	return ""
}
