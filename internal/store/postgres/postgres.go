// Package postgres implements pgingest.Store on PostgreSQL using COPY FROM.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/pgingest/internal/logging"
	"github.com/vvka-141/pgingest/internal/store/ddl"
	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// Store is a PostgreSQL-backed pgingest.Store holding one pool for the run.
type Store struct {
	pool   *pgxpool.Pool
	closer io.Closer // connector resources released after the pool, may be nil
	logger pgingest.Logger
}

var _ pgingest.Store = (*Store)(nil)

// Open connects through connector. Connectors that hold resources of their
// own (the Cloud SQL dialer) are closed together with the store.
func Open(ctx context.Context, connector pgingest.Connector, logger pgingest.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewNullLogger()
	}

	pool, err := connector.Connect(ctx)
	if err != nil {
		if c, ok := connector.(io.Closer); ok {
			c.Close()
		}
		return nil, err
	}

	s := New(pool, logger)
	if c, ok := connector.(io.Closer); ok {
		s.closer = c
	}
	return s, nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool, logger pgingest.Logger) *Store {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Store{pool: pool, logger: logger}
}

// ReplaceTable drops and recreates table inside one transaction.
func (s *Store) ReplaceTable(ctx context.Context, table string, columns []pgingest.Column) error {
	create, err := ddl.CreateTable(ddl.Postgres, table, columns)
	if err != nil {
		return fmt.Errorf("%w: %w", err, pgingest.ErrSchemaMismatch)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return wrapError("begin", table, err)
	}
	defer tx.Rollback(ctx)

	drop := ddl.DropTable(table)
	s.logger.Verbose("%s", drop)
	if _, err := tx.Exec(ctx, drop); err != nil {
		return wrapError("drop", table, err)
	}
	s.logger.Verbose("%s", create)
	if _, err := tx.Exec(ctx, create); err != nil {
		return wrapError("create", table, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return wrapError("commit", table, err)
	}
	return nil
}

// Append streams rows with COPY FROM. COPY is atomic per call. Zero rows is a
// no-op because ReplaceTable already created the table.
func (s *Store) Append(ctx context.Context, table string, columns []pgingest.Column, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := s.pool.CopyFrom(ctx, pgx.Identifier(ddl.SplitTable(table)), ddl.ColumnNames(columns), pgx.CopyFromRows(rows))
	if err != nil {
		return 0, wrapError("copy into", table, err)
	}
	return n, nil
}

// Close closes the pool and then any connector resources.
func (s *Store) Close() error {
	s.pool.Close()
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// wrapError marks data exceptions (class 22), integrity violations (23) and
// syntax or undefined-object errors (42) as schema mismatches.
func wrapError(op, table string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		var extra string
		if pgErr.Detail != "" {
			extra += "; " + pgErr.Detail
		}
		if pgErr.Where != "" {
			extra += "; at " + pgErr.Where
		}
		switch pgErr.Code[:2] {
		case "22", "23", "42":
			return fmt.Errorf("postgres: %s %s: %w%s: %w", op, table, err, extra, pgingest.ErrSchemaMismatch)
		}
		return fmt.Errorf("postgres: %s %s: %w%s", op, table, err, extra)
	}
	return fmt.Errorf("postgres: %s %s: %w", op, table, err)
}
