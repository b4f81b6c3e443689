package logging

import "github.com/vvka-141/pgingest/pkg/pgingest"

// NullLogger discards all log messages. Stores and connectors fall back to it
// when no logger is supplied.
type NullLogger struct{}

var (
	_ pgingest.Logger = (*NullLogger)(nil)
	_ pgingest.Logger = (*ConsoleLogger)(nil)
	_ pgingest.Logger = (*Recorder)(nil)

	_ pgingest.ProgressSink = (*ProgressLogger)(nil)
)

// NewNullLogger creates a new NullLogger.
func NewNullLogger() *NullLogger {
	return &NullLogger{}
}

func (l *NullLogger) Verbose(string, ...interface{}) {}
func (l *NullLogger) Info(string, ...interface{})    {}
func (l *NullLogger) Error(string, ...interface{})   {}
