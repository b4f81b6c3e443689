package db

import (
	"context"
	"fmt"
	"net"

	"cloud.google.com/go/cloudsqlconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/pgingest/internal/retry"
	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// GoogleCloudSQLConnector reaches a Cloud SQL instance through the Cloud SQL
// Go Connector, which handles TLS and IAM database authentication. The host
// and password of the connection string are ignored.
//
// Close must be called after the pool is closed to release the dialer.
type GoogleCloudSQLConnector struct {
	config        *pgingest.ConnectionConfig
	instance      string // project:region:instance
	dialer        *cloudsqlconn.Dialer
	retryExecutor *retry.Executor
	logger        pgingest.Logger
}

// NewGoogleCloudSQLConnector creates a connector for instance.
func NewGoogleCloudSQLConnector(config *pgingest.ConnectionConfig, instance string, opts ConnectorOptions) *GoogleCloudSQLConnector {
	return &GoogleCloudSQLConnector{
		config:        config,
		instance:      instance,
		retryExecutor: opts.executor(),
		logger:        opts.logger(),
	}
}

func (c *GoogleCloudSQLConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	dialer, err := cloudsqlconn.NewDialer(ctx, cloudsqlconn.WithIAMAuthN())
	if err != nil {
		return nil, fmt.Errorf("create Cloud SQL dialer: %w", err)
	}

	// The dialer terminates TLS, so the driver itself must not negotiate it.
	dsn := fmt.Sprintf("host=%s user=%s dbname=%s sslmode=disable", c.instance, c.config.Username, c.config.Database)
	if c.config.AppName != "" {
		dsn += " application_name=" + c.config.AppName
	}
	target := *c.config
	target.Host = c.instance
	useDialer := func(pc *pgxpool.Config) {
		pc.ConnConfig.DialFunc = func(ctx context.Context, _, _ string) (net.Conn, error) {
			return dialer.Dial(ctx, c.instance)
		}
	}

	pool, err := retry.Value(ctx, c.retryExecutor, func(ctx context.Context) (*pgxpool.Pool, error) {
		c.logger.Verbose("Dialing Cloud SQL instance %s as %s", c.instance, target.Username)
		return openPool(ctx, dsn, &target, c.logger, useDialer)
	})
	if err != nil {
		dialer.Close()
		return nil, err
	}

	c.dialer = dialer
	return pool, nil
}

// Close releases the Cloud SQL dialer. It is safe to call more than once.
func (c *GoogleCloudSQLConnector) Close() error {
	if c.dialer == nil {
		return nil
	}
	err := c.dialer.Close()
	c.dialer = nil
	return err
}
