package pgingest

import "time"

// Logger receives the human-readable lines of a run. Verbose lines only
// appear with --verbose. Implementations must be safe for concurrent use.
type Logger interface {
	Verbose(format string, args ...interface{})
	Info(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// ProgressSink receives progress events from an ingestion run.
// Calls happen on the run's goroutine and must not block for long.
type ProgressSink interface {
	// FetchProgress reports cumulative bytes written; total is -1 when unknown.
	FetchProgress(transferred, total int64)

	// BatchLoaded reports one batch appended to the destination table.
	BatchLoaded(index int, rows int64, elapsed time.Duration)
}

// NopProgress discards all progress events.
type NopProgress struct{}

func (NopProgress) FetchProgress(int64, int64)             {}
func (NopProgress) BatchLoaded(int, int64, time.Duration) {}
