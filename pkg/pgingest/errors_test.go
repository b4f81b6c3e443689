package pgingest_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/vvka-141/pgingest/pkg/pgingest"
)

func TestExitCodeForError_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unknown flag", errors.New("unknown flag --foo"), pgingest.ExitUsageError},
		{"unknown shorthand flag", errors.New("unknown shorthand flag: 'x'"), pgingest.ExitUsageError},
		{"accepts args", errors.New("accepts 1 arg(s), received 0"), pgingest.ExitUsageError},
		{"required flag", errors.New("required flag \"table\" not set"), pgingest.ExitUsageError},
		{"invalid argument", errors.New("invalid argument \"abc\" for \"--batch-size\""), pgingest.ExitUsageError},
		{"general error", errors.New("something went wrong"), pgingest.ExitGeneralError},
		{"nil error", nil, pgingest.ExitSuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pgingest.ExitCodeForError(tt.err); got != tt.want {
				t.Errorf("ExitCodeForError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestExitCodeForError_Taxonomy(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"config", fmt.Errorf("bad: %w", pgingest.ErrInvalidConfig), pgingest.ExitConfigError},
		{"aborted", pgingest.ErrAborted, pgingest.ExitAborted},
		{"not found", &pgingest.FetchError{Kind: pgingest.FetchNotFound, StatusCode: 404}, pgingest.ExitFetchFailed},
		{"network", &pgingest.FetchError{Kind: pgingest.FetchNetwork}, pgingest.ExitFetchFailed},
		{"io", &pgingest.FetchError{Kind: pgingest.FetchIO}, pgingest.ExitFetchFailed},
		{"parse", &pgingest.ParseError{Line: 3, Err: errors.New("bad")}, pgingest.ExitParseFailed},
		{"connection", &pgingest.LoadError{Kind: pgingest.LoadConnection, Err: errors.New("refused")}, pgingest.ExitConnectionError},
		{"schema", &pgingest.LoadError{Kind: pgingest.LoadSchemaMismatch, Err: errors.New("extra column")}, pgingest.ExitLoadFailed},
		{
			"wrapped in run error",
			&pgingest.RunError{Stage: pgingest.StageReading, Batch: 2, Err: &pgingest.ParseError{Line: 9, Err: errors.New("bad")}},
			pgingest.ExitParseFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pgingest.ExitCodeForError(tt.err); got != tt.want {
				t.Errorf("ExitCodeForError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestFetchError_IsMatchesOnlyItsKind(t *testing.T) {
	err := &pgingest.FetchError{Kind: pgingest.FetchNotFound, URL: "http://x/a.csv", StatusCode: 404}

	if !errors.Is(err, pgingest.ErrNotFound) {
		t.Error("expected ErrNotFound")
	}
	if errors.Is(err, pgingest.ErrNetwork) {
		t.Error("did not expect ErrNetwork")
	}
	if got := err.Error(); got != "fetch http://x/a.csv (not found): HTTP 404" {
		t.Errorf("Error() = %q", got)
	}
}

func TestRunError_PreservesOrigin(t *testing.T) {
	origin := &pgingest.LoadError{Kind: pgingest.LoadSchemaMismatch, Table: "trips", Err: errors.New("missing field \"fare\"")}
	err := error(&pgingest.RunError{Stage: pgingest.StageLoading, Batch: 3, Err: origin})

	var loadErr *pgingest.LoadError
	if !errors.As(err, &loadErr) {
		t.Fatal("expected LoadError reachable through RunError")
	}
	if loadErr != origin {
		t.Error("origin error was replaced")
	}

	var runErr *pgingest.RunError
	if !errors.As(err, &runErr) || runErr.Batch != 3 || runErr.Stage != pgingest.StageLoading {
		t.Errorf("unexpected run error: %+v", runErr)
	}

	want := `ingest failed while loading (batch 3): load trips (schema mismatch): missing field "fare"`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	noBatch := &pgingest.RunError{Stage: pgingest.StageFetching, Batch: -1, Err: errors.New("boom")}
	if got := noBatch.Error(); got != "ingest failed while fetching: boom" {
		t.Errorf("Error() = %q", got)
	}
}

func TestParseError_Message(t *testing.T) {
	err := &pgingest.ParseError{Line: 7, Column: "fare", Err: errors.New(`invalid real "abc"`)}
	if got := err.Error(); got != `line 7, column "fare": invalid real "abc"` {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, pgingest.ErrParse) {
		t.Error("expected ErrParse")
	}
}
