package pgingest_test

import (
	"errors"
	"testing"

	"github.com/vvka-141/pgingest/pkg/pgingest"
)

func validConfig() pgingest.IngestConfig {
	return pgingest.IngestConfig{
		SourceURL:        "https://example.com/data/trips.csv",
		FileName:         "trips.csv",
		TableName:        "yellow_taxi_data",
		ConnectionString: "postgresql://localhost:5432/postgres",
	}.WithDefaults()
}

func TestIngestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *pgingest.IngestConfig)
		wantError bool
	}{
		{name: "valid config", mutate: func(c *pgingest.IngestConfig) {}},
		{name: "schema qualified table", mutate: func(c *pgingest.IngestConfig) { c.TableName = "staging.trips" }},
		{name: "missing source url", mutate: func(c *pgingest.IngestConfig) { c.SourceURL = "" }, wantError: true},
		{name: "non http source url", mutate: func(c *pgingest.IngestConfig) { c.SourceURL = "ftp://example.com/a.csv" }, wantError: true},
		{name: "relative source url", mutate: func(c *pgingest.IngestConfig) { c.SourceURL = "data/a.csv" }, wantError: true},
		{name: "missing file name", mutate: func(c *pgingest.IngestConfig) { c.FileName = "" }, wantError: true},
		{name: "file name with directory", mutate: func(c *pgingest.IngestConfig) { c.FileName = "../etc/passwd" }, wantError: true},
		{name: "dot file name", mutate: func(c *pgingest.IngestConfig) { c.FileName = ".." }, wantError: true},
		{name: "blank table", mutate: func(c *pgingest.IngestConfig) { c.TableName = "  " }, wantError: true},
		{name: "missing connection", mutate: func(c *pgingest.IngestConfig) { c.ConnectionString = "" }, wantError: true},
		{name: "negative batch size", mutate: func(c *pgingest.IngestConfig) { c.BatchSize = -1 }, wantError: true},
		{name: "quote delimiter", mutate: func(c *pgingest.IngestConfig) { c.Delimiter = '"' }, wantError: true},
		{name: "newline delimiter", mutate: func(c *pgingest.IngestConfig) { c.Delimiter = '\n' }, wantError: true},
		{name: "negative retries", mutate: func(c *pgingest.IngestConfig) { c.ConnectRetries = -2 }, wantError: true},
		{name: "invalid auth method", mutate: func(c *pgingest.IngestConfig) { c.AuthMethod = pgingest.AuthMethod(42) }, wantError: true},
		{
			name: "rule without field",
			mutate: func(c *pgingest.IngestConfig) {
				c.Rules = []pgingest.NormalizationRule{{Kind: pgingest.FieldTimestamp}}
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, pgingest.ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestIngestConfig_ValidateReportsEveryProblem(t *testing.T) {
	cfg := pgingest.IngestConfig{}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for empty config")
	}

	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		t.Fatalf("expected joined error, got %T", err)
	}
	if got := len(joined.Unwrap()); got != 4 {
		t.Errorf("expected 4 problems, got %d: %v", got, err)
	}
}

func TestIngestConfig_WithDefaults(t *testing.T) {
	cfg := pgingest.IngestConfig{}.WithDefaults()

	if cfg.BatchSize != pgingest.DefaultBatchSize {
		t.Errorf("BatchSize = %d, want %d", cfg.BatchSize, pgingest.DefaultBatchSize)
	}
	if cfg.DownloadsDir != pgingest.DefaultDownloadsDir {
		t.Errorf("DownloadsDir = %q, want %q", cfg.DownloadsDir, pgingest.DefaultDownloadsDir)
	}
	if cfg.Delimiter != ',' {
		t.Errorf("Delimiter = %q, want ','", cfg.Delimiter)
	}

	custom := pgingest.IngestConfig{BatchSize: 7, DownloadsDir: "in", Delimiter: ';'}.WithDefaults()
	if custom.BatchSize != 7 || custom.DownloadsDir != "in" || custom.Delimiter != ';' {
		t.Errorf("WithDefaults overwrote explicit values: %+v", custom)
	}
}

func TestParseFieldType(t *testing.T) {
	tests := []struct {
		in      string
		want    pgingest.FieldType
		wantErr bool
	}{
		{"text", pgingest.FieldText, false},
		{"INT", pgingest.FieldInteger, false},
		{"bigint", pgingest.FieldInteger, false},
		{"float", pgingest.FieldReal, false},
		{" bool ", pgingest.FieldBoolean, false},
		{"date", pgingest.FieldDate, false},
		{"datetime", pgingest.FieldTimestamp, false},
		{"timestamptz", pgingest.FieldTimestamp, false},
		{"uuid", pgingest.FieldText, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := pgingest.ParseFieldType(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFieldType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFieldType(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseOverwritePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    pgingest.OverwritePolicy
		wantErr bool
	}{
		{"", pgingest.OverwriteAsk, false},
		{"ask", pgingest.OverwriteAsk, false},
		{"Always", pgingest.OverwriteAlways, false},
		{"never", pgingest.OverwriteNever, false},
		{"sometimes", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := pgingest.ParseOverwritePolicy(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, pgingest.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBatch_Accessors(t *testing.T) {
	b := &pgingest.Batch{
		Columns: []pgingest.Column{{Name: "id", Type: pgingest.FieldInteger}, {Name: "name"}},
		Rows:    [][]any{{int64(1), "a"}, {int64(2), nil}},
		Lines:   []int{2, 4},
	}

	if b.Len() != 2 {
		t.Errorf("Len() = %d, want 2", b.Len())
	}
	if b.ColumnIndex("name") != 1 {
		t.Errorf("ColumnIndex(name) = %d, want 1", b.ColumnIndex("name"))
	}
	if b.ColumnIndex("missing") != -1 {
		t.Errorf("ColumnIndex(missing) = %d, want -1", b.ColumnIndex("missing"))
	}
	if b.LineOf(1) != 4 {
		t.Errorf("LineOf(1) = %d, want 4", b.LineOf(1))
	}
	if b.LineOf(5) != 0 {
		t.Errorf("LineOf(5) = %d, want 0", b.LineOf(5))
	}
}

func TestStage_String(t *testing.T) {
	if got := pgingest.StageLoading.String(); got != "loading" {
		t.Errorf("StageLoading = %q", got)
	}
	if got := pgingest.Stage(99).String(); got != "Unknown(99)" {
		t.Errorf("Stage(99) = %q", got)
	}
}

func TestNormalizationRule_String(t *testing.T) {
	r := pgingest.NormalizationRule{Field: "pickup", Kind: pgingest.FieldTimestamp}
	if got := r.String(); got != "pickup=timestamp" {
		t.Errorf("got %q", got)
	}
	r.Layout = "2006-01-02 15:04"
	if got := r.String(); got != "pickup=timestamp@2006-01-02 15:04" {
		t.Errorf("got %q", got)
	}
}
