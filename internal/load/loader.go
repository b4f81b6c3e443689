// Package load writes batches to a destination store.
package load

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vvka-141/pgingest/internal/normalize"
	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// Loader appends batches to one destination table over the course of a run.
// It remembers the schema created by the first batch and rejects later
// batches that do not match it. A Loader is not safe for concurrent use.
type Loader struct {
	store       pgingest.Store
	indexColumn string
	schema      []pgingest.Column
	now         func() time.Time
}

// Option configures a Loader.
type Option func(*Loader)

// WithIndexColumn prepends a BIGINT column holding each row's 0-based
// source index.
func WithIndexColumn(name string) Option {
	return func(l *Loader) { l.indexColumn = name }
}

// New creates a Loader writing to store.
func New(store pgingest.Store, opts ...Option) *Loader {
	l := &Loader{store: store, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load normalizes b with rules and appends it to table. When isFirstBatch is
// set the table is replaced first using the batch's schema.
func (l *Loader) Load(ctx context.Context, b *pgingest.Batch, table string, rules []pgingest.NormalizationRule, isFirstBatch bool) (pgingest.LoadStats, error) {
	start := l.now()

	if err := normalize.Apply(b, rules); err != nil {
		return pgingest.LoadStats{}, l.fail(table, err)
	}

	columns, rows, err := l.shape(b)
	if err != nil {
		return pgingest.LoadStats{}, l.fail(table, err)
	}

	if isFirstBatch {
		if err := l.store.ReplaceTable(ctx, table, columns); err != nil {
			return pgingest.LoadStats{}, l.fail(table, err)
		}
		// The empty frame mirrors a replace-then-append write; the table exists.
		if _, err := l.store.Append(ctx, table, columns, nil); err != nil {
			return pgingest.LoadStats{}, l.fail(table, err)
		}
		l.schema = append([]pgingest.Column(nil), columns...)
	} else if err := l.checkSchema(columns); err != nil {
		return pgingest.LoadStats{}, l.fail(table, err)
	}

	n, err := l.store.Append(ctx, table, columns, rows)
	if err != nil {
		return pgingest.LoadStats{}, l.fail(table, err)
	}

	return pgingest.LoadStats{RowsWritten: n, Elapsed: l.now().Sub(start)}, nil
}

// Schema returns the table schema created by the first batch, or nil.
func (l *Loader) Schema() []pgingest.Column {
	return append([]pgingest.Column(nil), l.schema...)
}

// shape returns the columns and rows to write, with the index column
// prepended when one is configured.
func (l *Loader) shape(b *pgingest.Batch) ([]pgingest.Column, [][]any, error) {
	if l.indexColumn == "" {
		return b.Columns, b.Rows, nil
	}
	if b.ColumnIndex(l.indexColumn) >= 0 {
		return nil, nil, fmt.Errorf("index column %q collides with a source field: %w", l.indexColumn, pgingest.ErrSchemaMismatch)
	}

	columns := make([]pgingest.Column, 0, len(b.Columns)+1)
	columns = append(columns, pgingest.Column{Name: l.indexColumn, Type: pgingest.FieldInteger})
	columns = append(columns, b.Columns...)

	rows := make([][]any, len(b.Rows))
	for i, row := range b.Rows {
		out := make([]any, 0, len(row)+1)
		out = append(out, b.FirstRow+int64(i))
		rows[i] = append(out, row...)
	}
	return columns, rows, nil
}

func (l *Loader) checkSchema(columns []pgingest.Column) error {
	if l.schema == nil {
		return fmt.Errorf("no table was created in this run before appending: %w", pgingest.ErrSchemaMismatch)
	}
	if len(columns) != len(l.schema) {
		return fmt.Errorf("batch has %d columns, table has %d: %w", len(columns), len(l.schema), pgingest.ErrSchemaMismatch)
	}
	for i, c := range columns {
		want := l.schema[i]
		if c.Name != want.Name || c.Type != want.Type {
			return fmt.Errorf("column %d is %s %s, table has %s %s: %w", i+1, c.Name, c.Type, want.Name, want.Type, pgingest.ErrSchemaMismatch)
		}
	}
	return nil
}

// fail classifies err. Cancellation passes through untouched.
func (l *Loader) fail(table string, err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, pgingest.ErrSchemaMismatch):
		return &pgingest.LoadError{Kind: pgingest.LoadSchemaMismatch, Table: table, Err: err}
	default:
		return &pgingest.LoadError{Kind: pgingest.LoadConnection, Table: table, Err: err}
	}
}
