package pgingest

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is a destination-table driver. One Store serves one run and is
// used from a single goroutine.
type Store interface {
	// ReplaceTable drops any existing definition of table and creates it with columns.
	ReplaceTable(ctx context.Context, table string, columns []Column) error

	// Append writes rows to table in order and returns the number of rows written.
	// Values in each row are aligned with columns. An Append with no rows writes
	// nothing and returns 0; ReplaceTable has already created the table, so the
	// Loader's zero-row Append on the first batch is valid.
	Append(ctx context.Context, table string, columns []Column, rows [][]any) (int64, error)

	// Close releases the underlying connection.
	Close() error
}

// StoreOpener opens the destination store described by an IngestConfig.
type StoreOpener interface {
	Open(ctx context.Context, cfg IngestConfig) (Store, error)
}

// Connector is a unified interface for establishing Postgres connections.
// Different implementations handle various authentication methods
// (standard credentials, cloud IAM, etc.).
type Connector interface {
	// Connect establishes a connection pool to the database.
	// The returned pool should be closed by the caller when done.
	Connect(ctx context.Context) (*pgxpool.Pool, error)
}
