// Package fetch downloads a remote resource into local storage.
//
// The body is streamed to "<path>.part" and renamed over the destination
// only after it has been fully written and synced, so an interrupted
// transfer never replaces a previous good copy. A 404/410 response is
// detected before anything is created on disk.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/vvka-141/pgingest/internal/logging"
	"github.com/vvka-141/pgingest/pkg/pgingest"
	"github.com/zeebo/xxh3"
)

const copyBufferSize = 256 << 10

// HTTPFetcher implements pgingest.Fetcher over net/http.
type HTTPFetcher struct {
	client    *http.Client
	approver  pgingest.Approver
	progress  pgingest.ProgressSink
	logger    pgingest.Logger
	userAgent string
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithHTTPClient replaces the default client. The fetcher sets no timeout of
// its own; cancellation comes from the context.
func WithHTTPClient(c *http.Client) Option {
	return func(f *HTTPFetcher) { f.client = c }
}

// WithProgress sets the sink receiving byte counts.
func WithProgress(p pgingest.ProgressSink) Option {
	return func(f *HTTPFetcher) { f.progress = p }
}

// WithLogger sets the logger.
func WithLogger(l pgingest.Logger) Option {
	return func(f *HTTPFetcher) { f.logger = l }
}

// WithUserAgent sets the User-Agent header of the request.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) { f.userAgent = ua }
}

// New creates a fetcher that consults approver when the destination exists.
func New(approver pgingest.Approver, opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		client:    &http.Client{},
		approver:  approver,
		progress:  pgingest.NopProgress{},
		logger:    logging.NewNullLogger(),
		userAgent: "pgingest",
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves res.SourceURI into res.Path.
func (f *HTTPFetcher) Fetch(ctx context.Context, res pgingest.ResourceDescriptor) (pgingest.FetchStats, error) {
	start := time.Now()

	skip, err := f.checkExisting(ctx, res)
	if err != nil {
		return pgingest.FetchStats{}, err
	}
	if skip {
		stats, err := describeExisting(res)
		stats.Elapsed = time.Since(start)
		if err == nil {
			f.logger.Info("Using existing file %s (%d bytes)", res.Path, stats.Bytes)
		}
		return stats, err
	}

	f.logger.Verbose("Downloading %s to %s", res.SourceURI, res.Path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, res.SourceURI, nil)
	if err != nil {
		return pgingest.FetchStats{}, fetchErr(pgingest.FetchNetwork, res, 0, fmt.Errorf("build request: %w", err))
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return pgingest.FetchStats{}, fetchErr(pgingest.FetchNetwork, res, 0, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return pgingest.FetchStats{}, fetchErr(pgingest.FetchNotFound, res, resp.StatusCode, nil)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return pgingest.FetchStats{}, fetchErr(pgingest.FetchNetwork, res, resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status))
	}

	stats, err := f.stream(ctx, res, resp)
	if err != nil {
		return pgingest.FetchStats{}, err
	}
	stats.Elapsed = time.Since(start)
	f.logger.Verbose("Downloaded %d bytes in %v (xxh3 %016x)", stats.Bytes, stats.Elapsed.Round(time.Millisecond), stats.Checksum)
	return stats, nil
}

// checkExisting returns true when the existing file should be reused as-is.
func (f *HTTPFetcher) checkExisting(ctx context.Context, res pgingest.ResourceDescriptor) (bool, error) {
	info, err := os.Stat(res.Path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fetchErr(pgingest.FetchIO, res, 0, err)
	}
	if info.IsDir() {
		return false, fetchErr(pgingest.FetchIO, res, 0, fmt.Errorf("%s is a directory", res.Path))
	}

	decision, err := f.approver.ConfirmOverwrite(ctx, res.Path)
	if err != nil {
		return false, err
	}
	if !decision.Proceed {
		return false, fmt.Errorf("%s already exists: %w", res.Path, pgingest.ErrAborted)
	}
	return !decision.Overwrite, nil
}

func (f *HTTPFetcher) stream(ctx context.Context, res pgingest.ResourceDescriptor, resp *http.Response) (pgingest.FetchStats, error) {
	total := resp.ContentLength // -1 when unknown

	if err := os.MkdirAll(filepath.Dir(res.Path), 0o755); err != nil {
		return pgingest.FetchStats{}, fetchErr(pgingest.FetchIO, res, 0, err)
	}

	partPath := res.Path + pgingest.PartialSuffix
	out, err := os.Create(partPath)
	if err != nil {
		return pgingest.FetchStats{}, fetchErr(pgingest.FetchIO, res, 0, err)
	}
	closed := false
	defer func() {
		if !closed {
			out.Close()
		}
	}()

	hasher := xxh3.New()
	buf := make([]byte, copyBufferSize)
	var written int64

	f.progress.FetchProgress(0, total)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				return pgingest.FetchStats{}, fetchErr(pgingest.FetchIO, res, 0, err)
			}
			_, _ = hasher.Write(buf[:n])
			written += int64(n)
			f.progress.FetchProgress(written, total)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				readErr = fmt.Errorf("%w (%v)", ctxErr, readErr)
			}
			return pgingest.FetchStats{}, fetchErr(pgingest.FetchNetwork, res, 0,
				fmt.Errorf("transfer interrupted after %d bytes: %w", written, readErr))
		}
	}

	if total >= 0 && written != total {
		return pgingest.FetchStats{}, fetchErr(pgingest.FetchNetwork, res, 0,
			fmt.Errorf("body truncated: got %d of %d bytes", written, total))
	}

	if err := out.Sync(); err != nil {
		return pgingest.FetchStats{}, fetchErr(pgingest.FetchIO, res, 0, err)
	}
	closed = true
	if err := out.Close(); err != nil {
		return pgingest.FetchStats{}, fetchErr(pgingest.FetchIO, res, 0, err)
	}
	if err := os.Rename(partPath, res.Path); err != nil {
		return pgingest.FetchStats{}, fetchErr(pgingest.FetchIO, res, 0, err)
	}

	return pgingest.FetchStats{
		Path:     res.Path,
		Bytes:    written,
		Total:    total,
		Checksum: hasher.Sum64(),
	}, nil
}

func describeExisting(res pgingest.ResourceDescriptor) (pgingest.FetchStats, error) {
	in, err := os.Open(res.Path)
	if err != nil {
		return pgingest.FetchStats{}, fetchErr(pgingest.FetchIO, res, 0, err)
	}
	defer in.Close()

	hasher := xxh3.New()
	n, err := io.Copy(hasher, in)
	if err != nil {
		return pgingest.FetchStats{}, fetchErr(pgingest.FetchIO, res, 0, err)
	}
	return pgingest.FetchStats{
		Path:     res.Path,
		Bytes:    n,
		Total:    n,
		Skipped:  true,
		Checksum: hasher.Sum64(),
	}, nil
}

func fetchErr(kind pgingest.FetchErrorKind, res pgingest.ResourceDescriptor, status int, err error) error {
	return &pgingest.FetchError{
		Kind:       kind,
		URL:        res.SourceURI,
		Path:       res.Path,
		StatusCode: status,
		Err:        err,
	}
}
