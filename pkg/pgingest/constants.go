package pgingest

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess         = 0  // Ingestion completed successfully
	ExitGeneralError    = 1  // Unknown or unclassified error
	ExitUsageError      = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic           = 3  // Internal panic (unexpected crash)
	ExitConfigError     = 10 // Invalid configuration or parameters
	ExitConnectionError = 11 // Failed to connect to the destination store
	ExitAborted         = 12 // User declined to continue
	ExitFetchFailed     = 13 // Remote resource could not be downloaded
	ExitParseFailed     = 14 // Local resource could not be parsed
	ExitLoadFailed      = 15 // Batch could not be written to the destination table
)

const (
	// DefaultBatchSize is the maximum number of rows per batch.
	DefaultBatchSize = 100_000

	// DefaultDownloadsDir is the working subdirectory downloads are written to.
	DefaultDownloadsDir = "downloads"

	// DefaultDelimiter is the field separator of the tabular resource.
	DefaultDelimiter = ','

	// PartialSuffix marks a download that has not completed.
	PartialSuffix = ".part"

	// DefaultConnectRetries disables retrying connection establishment.
	DefaultConnectRetries = 0

	// DefaultRetryInitialDelay is the default initial delay before the first retry attempt.
	DefaultRetryInitialDelay = 200 * time.Millisecond

	// DefaultRetryMaxDelay is the default maximum delay between retry attempts.
	DefaultRetryMaxDelay = 30 * time.Second

	// MaxIdentifierLength is PostgreSQL's NAMEDATALEN-1; longer column names are truncated.
	MaxIdentifierLength = 63
)
