// Package sqlite implements pgingest.Store on an embedded SQLite database.
//
// SQLite has no bulk-load path comparable to COPY, so every batch is written
// inside one transaction through a prepared INSERT.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/vvka-141/pgingest/internal/store/ddl"
	"github.com/vvka-141/pgingest/pkg/pgingest"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05.999999999"
	pingTimeout     = 5 * time.Second
)

// Store is a SQLite-backed pgingest.Store.
type Store struct {
	db *sql.DB
}

var _ pgingest.Store = (*Store)(nil)

// Open opens (creating if needed) the database at dataSource.
func Open(ctx context.Context, dataSource string) (*Store, error) {
	if strings.TrimSpace(dataSource) == "" {
		return nil, fmt.Errorf("sqlite: data source must not be empty: %w", pgingest.ErrInvalidConfig)
	}

	db, err := sql.Open("sqlite", dataSource)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// One writer per run; also keeps ":memory:" on a single database.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping %s: %w", dataSource, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: configure: %w", err)
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying handle, mainly for inspection in tests.
func (s *Store) DB() *sql.DB { return s.db }

// ReplaceTable drops and recreates table in one transaction.
func (s *Store) ReplaceTable(ctx context.Context, table string, columns []pgingest.Column) error {
	create, err := ddl.CreateTable(ddl.SQLite, table, columns)
	if err != nil {
		return fmt.Errorf("%w: %w", err, pgingest.ErrSchemaMismatch)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapError("begin", table, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, ddl.DropTable(table)); err != nil {
		return wrapError("drop", table, err)
	}
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return wrapError("create", table, err)
	}
	if err := tx.Commit(); err != nil {
		return wrapError("commit", table, err)
	}
	return nil
}

// Append inserts rows in one transaction. Either every row of the call is
// committed or none is. Zero rows is a no-op because ReplaceTable already
// created the table.
func (s *Store) Append(ctx context.Context, table string, columns []pgingest.Column, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, wrapError("begin", table, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, ddl.Insert(table, columns))
	if err != nil {
		return 0, wrapError("prepare insert into", table, err)
	}
	defer stmt.Close()

	args := make([]any, len(columns))
	for _, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("sqlite: row has %d values for %d columns: %w", len(row), len(columns), pgingest.ErrSchemaMismatch)
		}
		for i, v := range row {
			args[i] = bindValue(v, columns[i].Type)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, wrapError("insert into", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, wrapError("commit", table, err)
	}
	return int64(len(rows)), nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// bindValue renders dates as ISO-8601 text and booleans as 0/1 so the stored
// representation does not depend on driver defaults.
func bindValue(v any, t pgingest.FieldType) any {
	switch x := v.(type) {
	case time.Time:
		if t == pgingest.FieldDate {
			return x.Format(dateLayout)
		}
		return x.UTC().Format(timestampLayout)
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	}
	return v
}

// wrapError marks SQL and constraint failures as schema mismatches. Anything
// else (busy, I/O, read-only, cannot open) is left as a store failure.
func wrapError(op, table string, err error) error {
	var sqlErr *msqlite.Error
	if errors.As(err, &sqlErr) {
		switch sqlErr.Code() & 0xff {
		case sqlite3.SQLITE_ERROR, sqlite3.SQLITE_CONSTRAINT, sqlite3.SQLITE_MISMATCH, sqlite3.SQLITE_RANGE, sqlite3.SQLITE_TOOBIG:
			return fmt.Errorf("sqlite: %s %s: %w: %w", op, table, err, pgingest.ErrSchemaMismatch)
		}
	}
	return fmt.Errorf("sqlite: %s %s: %w", op, table, err)
}
