// Package logging holds the pgingest.Logger and pgingest.ProgressSink
// implementations used outside the interactive display: ConsoleLogger for
// stderr, ProgressLogger for throttled download lines, and NullLogger and
// Recorder for tests.
package logging
