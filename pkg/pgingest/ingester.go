package pgingest

import "context"

// Ingester runs one complete ingestion: fetch, read in batches, load.
type Ingester interface {
	// Ingest executes a run described by cfg. On failure the returned error
	// is a *RunError carrying the stage and batch index at which the run stopped.
	Ingest(ctx context.Context, cfg IngestConfig) (RunStats, error)
}

// Fetcher retrieves a remote resource into local storage.
type Fetcher interface {
	Fetch(ctx context.Context, res ResourceDescriptor) (FetchStats, error)
}
