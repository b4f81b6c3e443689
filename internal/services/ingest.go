package services

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/vvka-141/pgingest/internal/load"
	"github.com/vvka-141/pgingest/internal/normalize"
	"github.com/vvka-141/pgingest/internal/reader"
	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// IngestService implements the Ingester interface.
// Thread-Safety: NOT safe for concurrent Ingest() calls on the same instance.
type IngestService struct {
	fetcher pgingest.Fetcher
	opener  pgingest.StoreOpener
	logger  pgingest.Logger
	sink    pgingest.ProgressSink
	now     func() time.Time
}

var _ pgingest.Ingester = (*IngestService)(nil)

// NewIngestService creates an IngestService with all dependencies injected.
// It panics on nil fetcher, opener or logger; a nil sink discards progress.
func NewIngestService(
	fetcher pgingest.Fetcher,
	opener pgingest.StoreOpener,
	logger pgingest.Logger,
	sink pgingest.ProgressSink,
) *IngestService {
	if fetcher == nil {
		panic("fetcher cannot be nil")
	}
	if opener == nil {
		panic("opener cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if sink == nil {
		sink = pgingest.NopProgress{}
	}
	return &IngestService{
		fetcher: fetcher,
		opener:  opener,
		logger:  logger,
		sink:    sink,
		now:     time.Now,
	}
}

// Ingest fetches cfg.SourceURL, then reads and loads it batch by batch.
// Any failure ends the run with a *pgingest.RunError; nothing is retried.
func (s *IngestService) Ingest(ctx context.Context, cfg pgingest.IngestConfig) (pgingest.RunStats, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return pgingest.RunStats{}, &pgingest.RunError{Stage: pgingest.StageIdle, Batch: -1, Err: err}
	}

	start := s.now()
	run := pgingest.RunStats{RunID: uuid.New()}
	path := filepath.Join(cfg.DownloadsDir, cfg.FileName)
	s.logger.Verbose("Run %s: %s -> %s -> %s", run.RunID, cfg.SourceURL, path, cfg.TableName)

	fetched, err := s.fetcher.Fetch(ctx, pgingest.ResourceDescriptor{SourceURI: cfg.SourceURL, Path: path})
	if err != nil {
		return run, &pgingest.RunError{Stage: pgingest.StageFetching, Batch: -1, Err: err}
	}
	run.Fetch = fetched
	s.logger.Verbose("Fetch complete: %d bytes, xxh3 %016x", fetched.Bytes, fetched.Checksum)

	r, err := reader.Open(path, reader.Options{
		BatchSize:  cfg.BatchSize,
		Delimiter:  cfg.Delimiter,
		RawHeaders: cfg.RawHeaders,
	})
	if err != nil {
		return run, &pgingest.RunError{Stage: pgingest.StageReading, Batch: 0, Err: err}
	}
	defer r.Close()

	rules := s.rules(cfg)

	var (
		store  pgingest.Store
		loader *load.Loader
	)
	defer func() {
		if store != nil {
			if err := store.Close(); err != nil {
				s.logger.Verbose("Closing store: %v", err)
			}
		}
	}()

	for index := 0; ; index++ {
		batch, err := r.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return run, &pgingest.RunError{Stage: pgingest.StageReading, Batch: index, Err: err}
		}

		if store == nil {
			store, err = s.opener.Open(ctx, cfg)
			if err != nil {
				return run, &pgingest.RunError{Stage: pgingest.StageLoading, Batch: 0, Err: err}
			}
			loader = load.New(store, load.WithIndexColumn(cfg.IndexColumn))
		}

		stats, err := loader.Load(ctx, batch, cfg.TableName, rules, index == 0)
		if err != nil {
			return run, &pgingest.RunError{Stage: pgingest.StageLoading, Batch: index, Err: err}
		}

		run.Batches++
		run.Rows += stats.RowsWritten
		s.logger.Info("Inserted chunk %d in %s (%.3f seconds.)", index+1, cfg.TableName, stats.Elapsed.Seconds())
		s.sink.BatchLoaded(index, stats.RowsWritten, stats.Elapsed)
	}

	run.Elapsed = s.now().Sub(start)
	s.logger.Info("✓ Loaded %d rows in %d batches into %s (%.3f seconds.)", run.Rows, run.Batches, cfg.TableName, run.Elapsed.Seconds())
	return run, nil
}

// rules returns the normalization rules in effect. Enabling normalization
// without explicit rules falls back to normalize.DefaultRules.
func (s *IngestService) rules(cfg pgingest.IngestConfig) []pgingest.NormalizationRule {
	if !cfg.Normalize {
		return nil
	}
	if len(cfg.Rules) == 0 {
		return normalize.DefaultRules
	}
	return cfg.Rules
}
