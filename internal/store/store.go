// Package store opens the destination store selected by a connection string.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/vvka-141/pgingest/internal/db"
	"github.com/vvka-141/pgingest/internal/logging"
	"github.com/vvka-141/pgingest/internal/store/postgres"
	"github.com/vvka-141/pgingest/internal/store/sqlite"
	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// Opener implements pgingest.StoreOpener for PostgreSQL and SQLite DSNs.
type Opener struct {
	logger pgingest.Logger
}

var _ pgingest.StoreOpener = (*Opener)(nil)

// NewOpener creates an Opener. A nil logger discards output.
func NewOpener(logger pgingest.Logger) *Opener {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Opener{logger: logger}
}

// Open connects to the store named by cfg.ConnectionString. Configuration
// problems wrap pgingest.ErrInvalidConfig; every other failure is returned as
// a *pgingest.LoadError of kind LoadConnection.
func (o *Opener) Open(ctx context.Context, cfg pgingest.IngestConfig) (pgingest.Store, error) {
	driver, err := db.DetectDriver(cfg.ConnectionString)
	if err != nil {
		return nil, err
	}

	var s pgingest.Store
	switch driver {
	case db.DriverSQLite:
		s, err = o.openSQLite(ctx, cfg)
	case db.DriverPostgres:
		s, err = o.openPostgres(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported driver %q: %w", driver, pgingest.ErrInvalidConfig)
	}
	if err != nil {
		if errors.Is(err, pgingest.ErrInvalidConfig) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, &pgingest.LoadError{Kind: pgingest.LoadConnection, Table: cfg.TableName, Err: err}
	}
	return s, nil
}

func (o *Opener) openSQLite(ctx context.Context, cfg pgingest.IngestConfig) (pgingest.Store, error) {
	src, err := db.SQLiteDataSource(cfg.ConnectionString)
	if err != nil {
		return nil, err
	}
	o.logger.Verbose("Opening SQLite database %s", src)
	return sqlite.Open(ctx, src)
}

func (o *Opener) openPostgres(ctx context.Context, cfg pgingest.IngestConfig) (pgingest.Store, error) {
	connCfg, err := db.ConnectionConfigFor(cfg)
	if err != nil {
		return nil, err
	}
	connector, err := db.NewConnector(connCfg, db.ConnectorOptions{
		Retries: cfg.ConnectRetries,
		Logger:  o.logger,
	})
	if err != nil {
		return nil, err
	}

	o.logger.Verbose("Connecting to %s (%s auth)", db.RedactConnectionString(cfg.ConnectionString), connCfg.AuthMethod)
	return postgres.Open(ctx, connector, o.logger)
}
