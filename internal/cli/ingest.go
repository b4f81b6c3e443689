package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/vvka-141/pgingest/internal/config"
	"github.com/vvka-141/pgingest/internal/db"
	"github.com/vvka-141/pgingest/internal/fetch"
	"github.com/vvka-141/pgingest/internal/logging"
	"github.com/vvka-141/pgingest/internal/normalize"
	"github.com/vvka-141/pgingest/internal/services"
	"github.com/vvka-141/pgingest/internal/store"
	"github.com/vvka-141/pgingest/internal/tui"
	"github.com/vvka-141/pgingest/internal/ui"
	"github.com/vvka-141/pgingest/pkg/pgingest"
)

type ingestFlagValues struct {
	csvURL, csvFile, table string
	normalize              bool
	rules                  []string
	overwrite              string
	batchSize              int
	downloadsDir           string
	indexColumn            string
	delimiter              string
	rawHeaders             bool
	connection             string
	aws                    bool
	awsRegion              string
	azure                  bool
	azureTenantID          string
	azureClientID          string
	google                 bool
	googleInstance         string
	connectRetries         int
	timeout                time.Duration
}

// runOptions are resolved settings consumed by the CLI rather than the core.
type runOptions struct {
	overwrite pgingest.OverwritePolicy
	timeout   time.Duration
}

func newIngestCommand(flags *ingestFlagValues) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Download a CSV file and load it into a table",
		Long: `Ingest downloads a CSV resource and loads it into a database table in batches.

The ingest command:
1. Downloads --csv-url to <downloads-dir>/<csv-file> (asks before replacing an existing file)
2. Reads the file in batches of --batch-size rows, inferring column types from the first batch
3. Applies normalization rules to every row when --normalize or --rule is given
4. Replaces --table with the first batch's schema, then appends every batch in order

The destination is chosen by the connection string:
  postgresql://... or ADO.NET (Host=...;Database=...)   PostgreSQL, loaded with COPY
  trips.db, sqlite://trips.db, file:trips.db, :memory:  SQLite

Connection precedence: --connection > $PG_DSN > $DATABASE_URL > pgingest.yaml.
A .env file in the working directory is loaded first.

Examples:
  # NYC taxi trips into a local PostgreSQL
  pgingest ingest \
    --csv-url https://example.com/yellow_tripdata_2021-01.csv \
    --csv-file yellow_tripdata_2021-01.csv \
    --table yellow_taxi_data --normalize \
    --connection postgresql://root@localhost:5432/ny_taxi

  # Declare column conversions explicitly and keep the source row number
  pgingest ingest --csv-url https://example.com/zones.csv --csv-file zones.csv \
    --table zones --rule created=date@02/01/2006 --index-column index \
    --connection zones.db --overwrite always`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, flags)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.csvURL, "csv-url", "", "http(s) URL of the CSV resource")
	f.StringVar(&flags.csvFile, "csv-file", "", "Local file name for the download, stored under --downloads-dir")
	f.StringVar(&flags.table, "table", "", "Destination table; schema.table is accepted")
	_ = cmd.MarkFlagRequired("csv-url")
	_ = cmd.MarkFlagRequired("csv-file")
	_ = cmd.MarkFlagRequired("table")

	f.BoolVar(&flags.normalize, "normalize", false,
		"Apply normalization rules to every row\n"+
			"Without --rule the tpep_pickup_datetime and tpep_dropoff_datetime columns become timestamps\n"+
			"Alias: --convert-datetime")
	f.StringArrayVar(&flags.rules, "rule", nil,
		"Normalization rule field=kind[@layout] (can be specified multiple times)\n"+
			"Kinds: text, integer, real, boolean, date, timestamp\n"+
			"Example: --rule pickup=timestamp@2006-01-02T15:04 --rule fare=real")
	f.StringVar(&flags.overwrite, "overwrite", "",
		"What to do when the download target exists: ask|always|never\n"+
			"(default: ask on a terminal, never otherwise)")
	f.IntVar(&flags.batchSize, "batch-size", pgingest.DefaultBatchSize, "Maximum rows per batch")
	f.StringVar(&flags.downloadsDir, "downloads-dir", pgingest.DefaultDownloadsDir, "Directory downloads are stored in")
	f.StringVar(&flags.indexColumn, "index-column", "", "Add a BIGINT column with this name holding the 0-based source row index")
	f.StringVar(&flags.delimiter, "delimiter", ",", "Field delimiter: a single character, or tab|comma|semicolon|pipe")
	f.BoolVar(&flags.rawHeaders, "raw-headers", false, "Keep header names exactly as they appear in the file")

	f.StringVar(&flags.connection, "connection", "",
		"Destination connection string (PostgreSQL URI/ADO.NET or SQLite path)\n"+
			"Alternative: PG_DSN or DATABASE_URL environment variable\n"+
			"Example: postgresql://root@localhost:5432/ny_taxi")
	f.IntVar(&flags.connectRetries, "connect-retries", pgingest.DefaultConnectRetries,
		"Extra connection attempts on transient PostgreSQL failures")

	f.BoolVar(&flags.aws, "aws", false, "Enable AWS RDS IAM authentication")
	f.StringVar(&flags.awsRegion, "aws-region", "", "AWS region for IAM authentication (overrides $AWS_REGION)")
	f.BoolVar(&flags.azure, "azure", false,
		"Enable Azure Entra ID authentication\n"+
			"Uses DefaultAzureCredential chain (Managed Identity, Azure CLI, etc.)")
	f.StringVar(&flags.azureTenantID, "azure-tenant-id", "", "Azure AD tenant/directory ID (overrides $AZURE_TENANT_ID)")
	f.StringVar(&flags.azureClientID, "azure-client-id", "", "Azure AD application/client ID (overrides $AZURE_CLIENT_ID)")
	f.BoolVar(&flags.google, "google", false, "Enable Google Cloud SQL IAM authentication")
	f.StringVar(&flags.googleInstance, "google-instance", "", "Cloud SQL instance connection name (project:region:instance)")

	f.DurationVar(&flags.timeout, "timeout", 0,
		"Abort the whole run after this duration (0 disables)\n"+
			"Examples: 30s, 5m, 1h30m")

	f.SetNormalizeFunc(flagAliases)
	return cmd
}

// flagAliases keeps the historical flag name working.
func flagAliases(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	if name == "convert-datetime" {
		name = "normalize"
	}
	return pflag.NormalizedName(name)
}

// buildIngestConfig merges flags, environment, .env and pgingest.yaml into an IngestConfig.
// Flags that were set explicitly win over pgingest.yaml values.
func buildIngestConfig(cmd *cobra.Command, flags *ingestFlagValues, verbose bool) (pgingest.IngestConfig, runOptions, error) {
	_ = godotenv.Load()

	projectCfg, err := loadProjectConfig(".")
	if err != nil {
		return pgingest.IngestConfig{}, runOptions{}, err
	}
	if projectCfg == nil {
		projectCfg = &config.ProjectConfig{}
	}
	changed := cmd.Flags().Changed

	env := db.LoadFromEnvironment()
	dsn, source, err := db.ResolveDSN(flags.connection, env, projectCfg.Connection)
	if err != nil {
		return pgingest.IngestConfig{}, runOptions{}, err
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "[VERBOSE] Connection resolved from %s: %s\n", source, db.RedactConnectionString(dsn))
	}

	cfg := pgingest.IngestConfig{
		SourceURL:        flags.csvURL,
		FileName:         flags.csvFile,
		TableName:        flags.table,
		ConnectionString: dsn,
		BatchSize:        flags.batchSize,
		DownloadsDir:     flags.downloadsDir,
		IndexColumn:      flags.indexColumn,
		RawHeaders:       flags.rawHeaders || projectCfg.RawHeaders,
		ConnectRetries:   flags.connectRetries,
		Verbose:          verbose,
	}
	if !changed("batch-size") && projectCfg.BatchSize > 0 {
		cfg.BatchSize = projectCfg.BatchSize
	}
	if !changed("downloads-dir") && projectCfg.DownloadsDir != "" {
		cfg.DownloadsDir = projectCfg.DownloadsDir
	}
	if !changed("index-column") && projectCfg.IndexColumn != "" {
		cfg.IndexColumn = projectCfg.IndexColumn
	}

	if changed("delimiter") || projectCfg.Delimiter == "" {
		if cfg.Delimiter, err = config.ParseDelimiter(flags.delimiter); err != nil {
			return pgingest.IngestConfig{}, runOptions{}, fmt.Errorf("--delimiter: %w", err)
		}
	} else if cfg.Delimiter, err = projectCfg.DelimiterRune(); err != nil {
		return pgingest.IngestConfig{}, runOptions{}, err
	}

	if cfg.Rules, err = resolveRules(flags.rules, projectCfg); err != nil {
		return pgingest.IngestConfig{}, runOptions{}, err
	}
	cfg.Normalize = flags.normalize || len(cfg.Rules) > 0

	auth := db.CloudAuth{
		AWS:            flags.aws,
		AWSRegion:      flags.awsRegion,
		Azure:          flags.azure,
		AzureTenantID:  flags.azureTenantID,
		AzureClientID:  flags.azureClientID,
		Google:         flags.google,
		GoogleInstance: flags.googleInstance,
	}
	if err := db.ApplyCloudAuth(&cfg, auth, env); err != nil {
		return pgingest.IngestConfig{}, runOptions{}, err
	}

	opts, err := resolveRunOptions(cmd, flags, projectCfg)
	if err != nil {
		return pgingest.IngestConfig{}, runOptions{}, err
	}

	if err := cfg.Validate(); err != nil {
		return pgingest.IngestConfig{}, runOptions{}, err
	}
	return cfg, opts, nil
}

// resolveRules prefers --rule over the rules of pgingest.yaml.
func resolveRules(specs []string, projectCfg *config.ProjectConfig) ([]pgingest.NormalizationRule, error) {
	if len(specs) > 0 {
		rules, err := normalize.ParseRules(specs)
		if err != nil {
			return nil, fmt.Errorf("--rule: %w", err)
		}
		return rules, nil
	}
	return projectCfg.NormalizationRules()
}

func resolveRunOptions(cmd *cobra.Command, flags *ingestFlagValues, projectCfg *config.ProjectConfig) (runOptions, error) {
	policyName := flags.overwrite
	if !cmd.Flags().Changed("overwrite") {
		policyName = projectCfg.Overwrite
	}
	policy, err := pgingest.ParseOverwritePolicy(policyName)
	if err != nil {
		return runOptions{}, fmt.Errorf("--overwrite: %w", err)
	}

	timeout := flags.timeout
	if !cmd.Flags().Changed("timeout") && projectCfg.Timeout != "" {
		if timeout, err = projectCfg.TimeoutDuration(); err != nil {
			return runOptions{}, err
		}
	}
	if timeout < 0 {
		return runOptions{}, fmt.Errorf("--timeout cannot be negative: %w", pgingest.ErrInvalidConfig)
	}

	return runOptions{overwrite: policy, timeout: timeout}, nil
}

// loadProjectConfig loads pgingest.yaml from dir.
// Returns nil config if pgingest.yaml does not exist (not an error).
func loadProjectConfig(dir string) (*config.ProjectConfig, error) {
	projectCfg, err := config.Load(dir)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load %s: %w", config.ConfigFileName, err)
	}
	return projectCfg, nil
}

func runIngest(cmd *cobra.Command, flags *ingestFlagValues) error {
	verbose := getVerboseFlag(cmd)

	cfg, opts, err := buildIngestConfig(cmd, flags, verbose)
	if err != nil {
		return err
	}

	interactive, reason := tui.Detect()
	consoleLogger := logging.NewConsoleLogger(verbose)
	if !interactive {
		consoleLogger.Verbose("Progress display off: %s", reason)
	}

	var logger pgingest.Logger = consoleLogger
	var sink pgingest.ProgressSink = logging.NewProgressLogger(consoleLogger, logging.DefaultProgressStep)
	if interactive {
		display := tui.NewDisplay(cfg.FileName + " → " + cfg.TableName)
		defer display.Stop()
		logger = display.Logger(consoleLogger, verbose)
		sink = display
	}

	fetcher := fetch.New(
		ui.NewApprover(opts.overwrite, interactive),
		fetch.WithProgress(sink),
		fetch.WithLogger(logger),
		fetch.WithUserAgent(userAgent()),
	)
	ingester := services.NewIngestService(fetcher, store.NewOpener(logger), logger, sink)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	if _, err := ingester.Ingest(ctx, cfg); err != nil {
		return fmt.Errorf("ingestion failed: %w", describeCancellation(ctx, err))
	}
	return nil
}

// describeCancellation names the reason a run stopped early.
func describeCancellation(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("timed out: %w", err)
	case errors.Is(ctx.Err(), context.Canceled):
		return fmt.Errorf("interrupted: %w", err)
	}
	return err
}
