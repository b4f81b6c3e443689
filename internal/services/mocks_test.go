package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/vvka-141/pgingest/pkg/pgingest"
)

type mockFetcher struct {
	body  string
	err   error
	calls int
}

func (m *mockFetcher) Fetch(ctx context.Context, res pgingest.ResourceDescriptor) (pgingest.FetchStats, error) {
	m.calls++
	if err := ctx.Err(); err != nil {
		return pgingest.FetchStats{}, err
	}
	if m.err != nil {
		return pgingest.FetchStats{}, m.err
	}
	if err := os.MkdirAll(filepath.Dir(res.Path), 0755); err != nil {
		return pgingest.FetchStats{}, err
	}
	if err := os.WriteFile(res.Path, []byte(m.body), 0644); err != nil {
		return pgingest.FetchStats{}, err
	}
	return pgingest.FetchStats{Path: res.Path, Bytes: int64(len(m.body)), Total: int64(len(m.body))}, nil
}

type mockStore struct {
	replaced []string
	appends  []int
	failAt   int // 1-based Append call that fails; 0 never fails
	failErr  error
	closed   bool
}

func (m *mockStore) ReplaceTable(ctx context.Context, table string, _ []pgingest.Column) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.replaced = append(m.replaced, table)
	return nil
}

func (m *mockStore) Append(ctx context.Context, _ string, _ []pgingest.Column, rows [][]any) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.appends = append(m.appends, len(rows))
	if m.failAt == len(m.appends) {
		if m.failErr == nil {
			return 0, errors.New("connection reset by peer")
		}
		return 0, m.failErr
	}
	return int64(len(rows)), nil
}

func (m *mockStore) Close() error {
	m.closed = true
	return nil
}

type mockOpener struct {
	store *mockStore
	err   error
	opens int
}

func (m *mockOpener) Open(context.Context, pgingest.IngestConfig) (pgingest.Store, error) {
	m.opens++
	if m.err != nil {
		return nil, m.err
	}
	return m.store, nil
}

type cancelOnBatch struct {
	pgingest.NopProgress
	cancel context.CancelFunc
}

func (c cancelOnBatch) BatchLoaded(int, int64, time.Duration) { c.cancel() }
