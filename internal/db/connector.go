package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/pgingest/internal/logging"
	"github.com/vvka-141/pgingest/internal/retry"
	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// Connection pool configuration constants.
// A run writes batches strictly in order, so one connection is enough.
const (
	DefaultMaxConns        = 1
	DefaultMinConns        = 1
	DefaultMaxConnIdleTime = 30 * time.Minute
)

// ConnectorOptions configures every connector built by NewConnector.
type ConnectorOptions struct {
	// Retries is the number of extra attempts on transient failures (0 = single attempt)
	Retries int
	Logger  pgingest.Logger
}

func (o ConnectorOptions) logger() pgingest.Logger {
	if o.Logger == nil {
		return logging.NewNullLogger()
	}
	return o.Logger
}

func (o ConnectorOptions) executor() *retry.Executor {
	log := o.logger()
	return retry.ForConnect(o.Retries).WithOnRetry(func(attempt int, err error, delay time.Duration) {
		log.Verbose("Connection attempt %d failed (%v), retrying in %v", attempt+1, err, delay.Round(time.Millisecond))
	})
}

func configurePool(poolConfig *pgxpool.Config, logger pgingest.Logger) {
	poolConfig.MaxConns = DefaultMaxConns
	poolConfig.MinConns = DefaultMinConns
	poolConfig.MaxConnIdleTime = DefaultMaxConnIdleTime
	poolConfig.ConnConfig.OnNotice = func(_ *pgconn.PgConn, notice *pgconn.Notice) {
		logger.Verbose("%s: %s", notice.Severity, notice.Message)
	}
}

// openPool creates and pings a pool for connStr. Hooks adjust the pool
// configuration before the first connection is dialed.
func openPool(ctx context.Context, connStr string, config *pgingest.ConnectionConfig, logger pgingest.Logger, hooks ...func(*pgxpool.Config)) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
	}
	configurePool(poolConfig, logger)
	for _, hook := range hooks {
		hook(poolConfig)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, wrapConnectionError(err, config.Host, config.Port, config.Database)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, wrapConnectionError(err, config.Host, config.Port, config.Database)
	}
	return pool, nil
}

// StandardConnector connects with the credentials embedded in the connection string.
type StandardConnector struct {
	config        *pgingest.ConnectionConfig
	retryExecutor *retry.Executor
	logger        pgingest.Logger
}

// NewStandardConnector creates a StandardConnector.
func NewStandardConnector(config *pgingest.ConnectionConfig, opts ConnectorOptions) *StandardConnector {
	return &StandardConnector{
		config:        config,
		retryExecutor: opts.executor(),
		logger:        opts.logger(),
	}
}

// Connect establishes a connection pool, retrying transient failures when configured to.
func (c *StandardConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	connStr := BuildConnectionString(c.config)
	return retry.Value(ctx, c.retryExecutor, func(ctx context.Context) (*pgxpool.Pool, error) {
		return openPool(ctx, connStr, c.config, c.logger)
	})
}

// NewConnector creates the Connector matching config.AuthMethod.
func NewConnector(config *pgingest.ConnectionConfig, opts ConnectorOptions) (pgingest.Connector, error) {
	switch config.AuthMethod {
	case pgingest.AuthMethodStandard:
		return NewStandardConnector(config, opts), nil
	case pgingest.AuthMethodAWSIAM:
		return newAWSConnector(config, opts)
	case pgingest.AuthMethodGoogleIAM:
		return newGoogleConnector(config, opts)
	case pgingest.AuthMethodAzureEntraID:
		return newAzureConnector(config, opts)
	default:
		return nil, fmt.Errorf("unsupported auth method %v: %w", config.AuthMethod, pgingest.ErrInvalidConfig)
	}
}

// wrapConnectionError wraps raw pgx connection errors with actionable guidance.
func wrapConnectionError(err error, host string, port int, database string) error {
	errStr := strings.ToLower(err.Error())
	addr := fmt.Sprintf("%s:%d", host, port)

	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		return fmt.Errorf(`connection refused to %s

Possible causes:
  - PostgreSQL is not running (check: pg_isready -h %s -p %d)
  - Wrong host or port
  - Firewall blocking the connection

Original error: %w`, addr, host, port, err)

	case strings.Contains(errStr, "no such host") || strings.Contains(errStr, "no host"):
		return fmt.Errorf(`cannot resolve host "%s"

Possible causes:
  - Hostname is misspelled
  - DNS is not configured or reachable

Original error: %w`, host, err)

	case strings.Contains(errStr, "password authentication failed"):
		return fmt.Errorf(`password authentication failed for database "%s"

Possible causes:
  - Wrong password in PG_DSN / --connection
  - Wrong username
  - Cloud token rejected (check --aws/--azure/--google settings)

Original error: %w`, database, err)

	case strings.Contains(errStr, "does not exist"):
		return fmt.Errorf(`database "%s" does not exist

To create it:
  createdb %s

Original error: %w`, database, database, err)

	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		return fmt.Errorf(`connection timed out to %s

Possible causes:
  - Server is overloaded or unresponsive
  - Firewall silently dropping packets
  - Wrong host/port (server not listening)

Original error: %w`, addr, err)

	case strings.Contains(errStr, "ssl") || strings.Contains(errStr, "tls"):
		return fmt.Errorf(`SSL/TLS connection error

Possible causes:
  - Server requires SSL but sslmode is wrong
  - Certificate verification failed (try sslmode=require)

Original error: %w`, err)

	default:
		return fmt.Errorf("failed to connect to database: %w", err)
	}
}

// newAWSConnector signs an RDS IAM token for every connection.
func newAWSConnector(config *pgingest.ConnectionConfig, opts ConnectorOptions) (pgingest.Connector, error) {
	source, err := NewRDSTokenSource(config)
	if err != nil {
		return nil, err
	}
	return NewTokenConnector(config, source, opts), nil
}

// newGoogleConnector creates a GoogleCloudSQLConnector for Google Cloud SQL IAM authentication.
func newGoogleConnector(config *pgingest.ConnectionConfig, opts ConnectorOptions) (pgingest.Connector, error) {
	if config.GoogleInstance == "" {
		return nil, fmt.Errorf("Google Cloud SQL IAM auth requires --google-instance (project:region:instance): %w", pgingest.ErrInvalidConfig)
	}
	if config.Username == "" {
		return nil, fmt.Errorf("Google Cloud SQL IAM auth requires a username in the connection string: %w", pgingest.ErrInvalidConfig)
	}

	return NewGoogleCloudSQLConnector(config, config.GoogleInstance, opts), nil
}

func newAzureConnector(config *pgingest.ConnectionConfig, opts ConnectorOptions) (pgingest.Connector, error) {
	source, err := NewEntraTokenSource(config)
	if err != nil {
		return nil, err
	}
	return NewTokenConnector(config, source, opts), nil
}
