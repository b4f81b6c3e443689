package pgingest

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure scenarios.
// These enable callers to distinguish error types using errors.Is().
//
// Example usage:
//
//	_, err := ingester.Ingest(ctx, cfg)
//	if errors.Is(err, pgingest.ErrNotFound) {
//	    // The remote CSV does not exist
//	}
var (
	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrAborted indicates the user declined to continue the run.
	ErrAborted = errors.New("aborted by user")

	// ErrNotFound indicates the remote resource does not exist.
	ErrNotFound = errors.New("remote resource not found")

	// ErrNetwork indicates a connection, timeout or transfer failure while fetching.
	ErrNetwork = errors.New("network failure")

	// ErrIO indicates a local storage failure while fetching.
	ErrIO = errors.New("local I/O failure")

	// ErrParse indicates a malformed row in the local resource.
	ErrParse = errors.New("parse failed")

	// ErrConnectionFailed indicates the destination store could not be reached.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrSchemaMismatch indicates a batch does not fit the destination table schema.
	ErrSchemaMismatch = errors.New("schema mismatch")
)

// FetchErrorKind classifies fetch failures.
type FetchErrorKind int

const (
	FetchNotFound FetchErrorKind = iota + 1 // 404-class status
	FetchNetwork                            // connection, timeout, non-2xx, truncated body
	FetchIO                                 // local create/write/rename failure
)

func (k FetchErrorKind) String() string {
	switch k {
	case FetchNotFound:
		return "not found"
	case FetchNetwork:
		return "network"
	case FetchIO:
		return "io"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// FetchError reports a failure to retrieve a remote resource into local storage.
type FetchError struct {
	Kind       FetchErrorKind
	URL        string
	Path       string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch %s (%s)", e.URL, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": HTTP %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is matches the sentinel corresponding to the error kind.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == FetchNotFound
	case ErrNetwork:
		return e.Kind == FetchNetwork
	case ErrIO:
		return e.Kind == FetchIO
	}
	return false
}

// ParseError reports a malformed row. Line is the 1-based line of the row
// in the source file; the header is line 1.
type ParseError struct {
	Line   int
	Column string // empty when the whole row is malformed
	Err    error
}

func (e *ParseError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("line %d, column %q: %v", e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// LoadErrorKind classifies loader failures.
type LoadErrorKind int

const (
	LoadConnection     LoadErrorKind = iota + 1 // destination unreachable or auth failure
	LoadSchemaMismatch                          // batch shape disagrees with table schema
)

func (k LoadErrorKind) String() string {
	switch k {
	case LoadConnection:
		return "connection"
	case LoadSchemaMismatch:
		return "schema mismatch"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// LoadError reports a failure to write a batch to the destination table.
type LoadError struct {
	Kind  LoadErrorKind
	Table string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s (%s): %v", e.Table, e.Kind, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool {
	switch target {
	case ErrConnectionFailed:
		return e.Kind == LoadConnection
	case ErrSchemaMismatch:
		return e.Kind == LoadSchemaMismatch
	}
	return false
}

// RunError is the single terminal failure of an ingestion run. It records
// the stage and, where applicable, the batch index at which the run stopped.
// The originating error is kept untouched and reachable via errors.Is/As.
type RunError struct {
	Stage Stage
	Batch int // -1 when the failure is not tied to a batch
	Err   error
}

func (e *RunError) Error() string {
	if e.Batch >= 0 {
		return fmt.Sprintf("ingest failed while %s (batch %d): %v", e.Stage, e.Batch, e.Err)
	}
	return fmt.Sprintf("ingest failed while %s: %v", e.Stage, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrInvalidConfig):
		return ExitConfigError
	case errors.Is(err, ErrAborted):
		return ExitAborted
	case errors.Is(err, ErrConnectionFailed):
		return ExitConnectionError
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNetwork), errors.Is(err, ErrIO):
		return ExitFetchFailed
	case errors.Is(err, ErrParse):
		return ExitParseFailed
	case errors.Is(err, ErrSchemaMismatch):
		return ExitLoadFailed
	}

	// cobra reports usage problems as plain errors
	errStr := err.Error()
	for _, pattern := range usageErrorPatterns {
		if strings.Contains(errStr, pattern) {
			return ExitUsageError
		}
	}

	return ExitGeneralError
}

var usageErrorPatterns = []string{
	"unknown flag",
	"unknown shorthand flag",
	"unknown command",
	"required flag",
	"invalid argument",
	"accepts ",
	"flag needs an argument",
}
