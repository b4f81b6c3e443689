// Package reader decodes a local CSV resource into bounded, typed batches.
//
// Column types come from "name:type" header declarations or are inferred
// from the first batch, and stay fixed for the lifetime of the Reader,
// including across Reset.
package reader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vvka-141/pgingest/internal/values"
	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// ctxCheckEvery is how many rows are read between context checks.
const ctxCheckEvery = 4096

// Options configures a Reader.
type Options struct {
	// BatchSize is the maximum number of rows per batch (default pgingest.DefaultBatchSize)
	BatchSize int

	// Delimiter separates fields (default ',')
	Delimiter rune

	// RawHeaders keeps header names as they appear in the file
	RawHeaders bool
}

// Reader streams batches out of a CSV file. It is not safe for concurrent use.
type Reader struct {
	path string
	opts Options

	file *os.File
	csv  *csv.Reader

	header  []headerField
	columns []pgingest.Column // nil until the first batch fixes the types
	layouts []string

	raw     [][]string
	lines   []int
	index   int
	nextRow int64
	emitted bool
	done    bool
}

// Open opens path and reads its header row.
func Open(path string, opts Options) (*Reader, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = pgingest.DefaultBatchSize
	}
	if opts.Delimiter == 0 {
		opts.Delimiter = pgingest.DefaultDelimiter
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	r := &Reader{path: path, opts: opts, file: f}
	header, err := r.start()
	if err != nil {
		f.Close()
		return nil, err
	}
	r.header = header
	return r, nil
}

// start positions the CSV decoder just past the header row.
func (r *Reader) start() ([]headerField, error) {
	cr := csv.NewReader(r.file)
	cr.Comma = r.opts.Delimiter
	cr.ReuseRecord = true
	r.csv = cr

	record, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &pgingest.ParseError{Line: 1, Err: errors.New("empty resource: missing header row")}
	}
	if err != nil {
		return nil, r.readError(err)
	}
	return parseHeader(record, r.opts.RawHeaders)
}

// Columns returns the fixed column set, or nil before the first batch.
func (r *Reader) Columns() []pgingest.Column {
	return cloneColumns(r.columns)
}

// Next returns the next batch. It returns io.EOF once the resource is
// exhausted. A resource holding only a header yields one empty batch.
// A malformed row fails the whole batch with a *pgingest.ParseError.
func (r *Reader) Next(ctx context.Context) (*pgingest.Batch, error) {
	if r.file == nil {
		return nil, errors.New("reader is closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.done {
		return nil, io.EOF
	}

	r.raw = r.raw[:0]
	r.lines = r.lines[:0]

	for len(r.raw) < r.opts.BatchSize {
		if len(r.raw)%ctxCheckEvery == ctxCheckEvery-1 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		record, err := r.csv.Read()
		if errors.Is(err, io.EOF) {
			r.done = true
			break
		}
		if err != nil {
			r.done = true
			return nil, r.readError(err)
		}

		line, _ := r.csv.FieldPos(0)
		r.raw = append(r.raw, append([]string(nil), record...))
		r.lines = append(r.lines, line)
	}

	if len(r.raw) == 0 && r.emitted {
		return nil, io.EOF
	}

	if r.columns == nil {
		r.inferColumns()
	}

	batch := &pgingest.Batch{
		Index:    r.index,
		FirstRow: r.nextRow,
		Columns:  cloneColumns(r.columns),
		Rows:     make([][]any, len(r.raw)),
		Lines:    append([]int(nil), r.lines...),
	}

	for i, record := range r.raw {
		row := make([]any, len(record))
		for j, cell := range record {
			v, err := values.Decode(cell, r.columns[j].Type, r.layouts[j])
			if err != nil {
				r.done = true
				return nil, &pgingest.ParseError{Line: r.lines[i], Column: r.columns[j].Name, Err: err}
			}
			row[j] = v
		}
		batch.Rows[i] = row
	}

	r.index++
	r.nextRow += int64(len(batch.Rows))
	r.emitted = true
	return batch, nil
}

// inferColumns fixes the column types from the rows currently buffered.
func (r *Reader) inferColumns() {
	r.columns = make([]pgingest.Column, len(r.header))
	r.layouts = make([]string, len(r.header))

	samples := make([]string, len(r.raw))
	for j, h := range r.header {
		r.columns[j].Name = h.name
		if h.declared {
			r.columns[j].Type = h.typ
			continue
		}
		for i, record := range r.raw {
			samples[i] = record[j]
		}
		r.columns[j].Type, r.layouts[j] = values.Infer(samples)
	}
}

// Reset rewinds the reader to the first data row. Column types stay fixed.
func (r *Reader) Reset() error {
	if r.file == nil {
		return errors.New("reader is closed")
	}
	if _, err := r.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind %s: %w", r.path, err)
	}
	if _, err := r.start(); err != nil {
		return err
	}
	r.index = 0
	r.nextRow = 0
	r.emitted = false
	r.done = false
	return nil
}

// Close releases the underlying file. It is safe to call more than once.
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	r.raw = nil
	return err
}

// readError converts CSV syntax errors to *pgingest.ParseError and wraps
// everything else as a read failure.
func (r *Reader) readError(err error) error {
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		line := csvErr.StartLine
		if line == 0 {
			line = csvErr.Line
		}
		return &pgingest.ParseError{Line: line, Err: csvErr.Err}
	}
	return fmt.Errorf("read %s: %w", r.path, err)
}

func cloneColumns(cols []pgingest.Column) []pgingest.Column {
	if cols == nil {
		return nil
	}
	return append([]pgingest.Column(nil), cols...)
}
