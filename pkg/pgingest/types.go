package pgingest

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// IngestConfig contains all parameters needed for one ingestion run.
// It is built by the caller (CLI, tests) and passed explicitly to the
// ingester; the core keeps no global configuration state.
type IngestConfig struct {
	// SourceURL is the http(s) location of the CSV resource
	SourceURL string

	// FileName is the local file name, resolved beneath DownloadsDir
	FileName string

	// DownloadsDir is the working subdirectory for downloads, created if absent
	DownloadsDir string

	// TableName is the destination table; "schema.table" is accepted
	TableName string

	// ConnectionString is the destination store DSN. The core treats it as opaque
	// and hands it to the connector factory.
	ConnectionString string

	// BatchSize is the maximum number of rows per batch
	BatchSize int

	// Delimiter separates fields in the CSV resource
	Delimiter rune

	// RawHeaders keeps header names exactly as they appear in the file
	RawHeaders bool

	// IndexColumn, when non-empty, adds a BIGINT column holding the 0-based source row index
	IndexColumn string

	// Normalize enables the Rules below
	Normalize bool

	// Rules are applied to every row of every batch when Normalize is set
	Rules []NormalizationRule

	// ConnectRetries is the number of extra connection attempts on transient failures
	ConnectRetries int

	// Verbose enables detailed logging
	Verbose bool

	// AuthMethod indicates the authentication mechanism for Postgres destinations
	AuthMethod AuthMethod

	// Cloud authentication parameters, used according to AuthMethod
	AWSRegion         string
	GoogleInstance    string
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string
}

// WithDefaults returns a copy of the config with zero values replaced by defaults.
func (c IngestConfig) WithDefaults() IngestConfig {
	if c.DownloadsDir == "" {
		c.DownloadsDir = DefaultDownloadsDir
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Delimiter == 0 {
		c.Delimiter = DefaultDelimiter
	}
	return c
}

// Validate checks if the IngestConfig has all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
func (c *IngestConfig) Validate() error {
	var errs []error

	if c.SourceURL == "" {
		errs = append(errs, fmt.Errorf("SourceURL is required: %w", ErrInvalidConfig))
	} else if u, err := url.Parse(c.SourceURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("SourceURL %q must be an absolute http(s) URL: %w", c.SourceURL, ErrInvalidConfig))
	}

	if c.FileName == "" {
		errs = append(errs, fmt.Errorf("FileName is required: %w", ErrInvalidConfig))
	} else if c.FileName != filepath.Base(c.FileName) || c.FileName == "." || c.FileName == ".." {
		errs = append(errs, fmt.Errorf("FileName %q must be a bare file name: %w", c.FileName, ErrInvalidConfig))
	}

	if strings.TrimSpace(c.TableName) == "" {
		errs = append(errs, fmt.Errorf("TableName is required: %w", ErrInvalidConfig))
	}

	if c.ConnectionString == "" {
		errs = append(errs, fmt.Errorf("ConnectionString is required: %w", ErrInvalidConfig))
	}

	if c.BatchSize < 0 {
		errs = append(errs, fmt.Errorf("BatchSize cannot be negative: %w", ErrInvalidConfig))
	}

	switch {
	case c.Delimiter == '"', c.Delimiter == '\r', c.Delimiter == '\n', c.Delimiter == utf8.RuneError:
		errs = append(errs, fmt.Errorf("delimiter %q is not allowed: %w", c.Delimiter, ErrInvalidConfig))
	}

	if c.ConnectRetries < 0 {
		errs = append(errs, fmt.Errorf("ConnectRetries cannot be negative: %w", ErrInvalidConfig))
	}

	if !c.AuthMethod.IsValid() {
		errs = append(errs, fmt.Errorf("unknown auth method %v: %w", c.AuthMethod, ErrInvalidConfig))
	}

	for i, r := range c.Rules {
		if strings.TrimSpace(r.Field) == "" {
			errs = append(errs, fmt.Errorf("rule %d has no field: %w", i, ErrInvalidConfig))
		}
	}

	return errors.Join(errs...)
}

// ResourceDescriptor pairs a remote resource with its local destination.
type ResourceDescriptor struct {
	SourceURI string
	Path      string
}

// FieldType is the logical type of a column.
type FieldType int

const (
	FieldText FieldType = iota
	FieldInteger
	FieldReal
	FieldBoolean
	FieldDate
	FieldTimestamp
)

func (t FieldType) String() string {
	switch t {
	case FieldText:
		return "text"
	case FieldInteger:
		return "integer"
	case FieldReal:
		return "real"
	case FieldBoolean:
		return "boolean"
	case FieldDate:
		return "date"
	case FieldTimestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("Unknown(%d)", int(t))
	}
}

// ParseFieldType maps a loosely-specified type name to a FieldType.
func ParseFieldType(s string) (FieldType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "string", "varchar":
		return FieldText, nil
	case "int", "integer", "bigint":
		return FieldInteger, nil
	case "real", "float", "double", "numeric":
		return FieldReal, nil
	case "bool", "boolean":
		return FieldBoolean, nil
	case "date":
		return FieldDate, nil
	case "timestamp", "timestamptz", "datetime":
		return FieldTimestamp, nil
	default:
		return FieldText, fmt.Errorf("unknown field type %q", s)
	}
}

// Column is a named, typed field of a batch and of the destination table.
type Column struct {
	Name string
	Type FieldType
}

// Batch is a bounded, ordered slice of rows read from the source.
// Row values are aligned with Columns and hold nil (NULL), string, int64,
// float64, bool or time.Time according to the column type.
type Batch struct {
	// Index is the 0-based position of the batch in the run
	Index int

	// FirstRow is the 0-based source row index of Rows[0]
	FirstRow int64

	// Columns describes every field of every row
	Columns []Column

	// Rows holds the decoded values
	Rows [][]any

	// Lines holds the 1-based source line of each row
	Lines []int
}

// Len returns the number of rows in the batch.
func (b *Batch) Len() int { return len(b.Rows) }

// ColumnIndex returns the position of the named column or -1.
func (b *Batch) ColumnIndex(name string) int {
	for i, c := range b.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// LineOf returns the source line of row i, or 0 when unknown.
func (b *Batch) LineOf(i int) int {
	if i < 0 || i >= len(b.Lines) {
		return 0
	}
	return b.Lines[i]
}

// NormalizationRule converts one field of every row to Kind.
// Layout is an optional Go time layout for date and timestamp conversions.
type NormalizationRule struct {
	Field  string
	Kind   FieldType
	Layout string
}

func (r NormalizationRule) String() string {
	if r.Layout != "" {
		return fmt.Sprintf("%s=%s@%s", r.Field, r.Kind, r.Layout)
	}
	return fmt.Sprintf("%s=%s", r.Field, r.Kind)
}

// OverwritePolicy decides what happens when the download target already exists.
type OverwritePolicy string

const (
	OverwriteAsk    OverwritePolicy = "ask"
	OverwriteAlways OverwritePolicy = "always"
	OverwriteNever  OverwritePolicy = "never"
)

// ParseOverwritePolicy validates a policy name. The empty string means ask.
func ParseOverwritePolicy(s string) (OverwritePolicy, error) {
	switch OverwritePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", OverwriteAsk:
		return OverwriteAsk, nil
	case OverwriteAlways:
		return OverwriteAlways, nil
	case OverwriteNever:
		return OverwriteNever, nil
	default:
		return "", fmt.Errorf("overwrite policy must be ask, always or never, got %q: %w", s, ErrInvalidConfig)
	}
}

// OverwriteDecision is the caller's answer when the download target exists.
type OverwriteDecision struct {
	// Proceed false aborts the run
	Proceed bool
	// Overwrite false reuses the existing file without any network request
	Overwrite bool
}

// Stage identifies where an ingestion run is.
type Stage int

const (
	StageIdle Stage = iota
	StageFetching
	StageReading
	StageLoading
	StageDone
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageFetching:
		return "fetching"
	case StageReading:
		return "reading"
	case StageLoading:
		return "loading"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// FetchStats describes the outcome of a fetch.
type FetchStats struct {
	Path     string
	Bytes    int64
	Total    int64 // -1 when the remote length was unknown
	Skipped  bool  // existing file reused, no network request made
	Checksum uint64
	Elapsed  time.Duration
}

// LoadStats describes one appended batch.
type LoadStats struct {
	RowsWritten int64
	Elapsed     time.Duration
}

// RunStats is the aggregate outcome of a successful run.
type RunStats struct {
	RunID   uuid.UUID
	Fetch   FetchStats
	Batches int
	Rows    int64
	Elapsed time.Duration
}

// ConnectionConfig represents parsed connection parameters.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	// AuthMethod indicates the authentication mechanism to use
	AuthMethod AuthMethod

	// Additional connection parameters
	AppName          string
	ConnectTimeout   time.Duration
	AdditionalParams map[string]string

	// Cloud authentication parameters
	AWSRegion         string
	GoogleInstance    string
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string
}

// AuthMethod represents the type of authentication to use.
type AuthMethod int

const (
	AuthMethodStandard     AuthMethod = iota // Username/Password
	AuthMethodAWSIAM                         // AWS IAM Database Authentication
	AuthMethodGoogleIAM                      // Google Cloud SQL IAM
	AuthMethodAzureEntraID                   // Azure Active Directory (Entra ID)
)

// String returns a human-readable string representation of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodStandard:
		return "Standard"
	case AuthMethodAWSIAM:
		return "AWS IAM"
	case AuthMethodGoogleIAM:
		return "Google IAM"
	case AuthMethodAzureEntraID:
		return "Azure Entra ID"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// IsValid returns true if the AuthMethod is a valid, defined value.
func (a AuthMethod) IsValid() bool {
	return a >= AuthMethodStandard && a <= AuthMethodAzureEntraID
}
