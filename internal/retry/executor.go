package retry

import (
	"context"
	"time"
)

// Classifier separates failures worth another attempt from fatal ones.
type Classifier interface {
	IsTransient(err error) bool
}

// Executor runs an operation and repeats it while it fails transiently.
// An Executor is never modified after construction.
type Executor struct {
	classifier Classifier
	backoff    Backoff
	retries    int
	onRetry    func(attempt int, err error, delay time.Duration)
}

// New creates an Executor allowing up to retries extra attempts; a negative
// value removes the limit. It panics on a nil classifier.
func New(classifier Classifier, retries int, backoff Backoff) *Executor {
	if classifier == nil {
		panic("retry: nil classifier")
	}
	return &Executor{classifier: classifier, backoff: backoff, retries: retries}
}

// ForConnect builds the executor used to open destination stores.
// retries <= 0 yields a single attempt.
func ForConnect(retries int) *Executor {
	return New(NewConnectClassifier(), max(retries, 0), ConnectBackoff())
}

// WithOnRetry returns a copy of e that calls fn before sleeping for each retry.
func (e *Executor) WithOnRetry(fn func(attempt int, err error, delay time.Duration)) *Executor {
	clone := *e
	clone.onRetry = fn
	return &clone
}

// Execute returns the first success, the first fatal error, or the last
// transient error once the retries are used up.
func (e *Executor) Execute(ctx context.Context, operation func(ctx context.Context) error) error {
	for attempt := 0; ; attempt++ {
		err := operation(ctx)
		if err == nil || !e.classifier.IsTransient(err) {
			return err
		}
		if e.retries >= 0 && attempt >= e.retries {
			return err
		}

		delay := e.backoff.Delay(attempt)
		if e.onRetry != nil {
			e.onRetry(attempt, err, delay)
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Value is Execute for operations that produce a result.
func Value[T any](ctx context.Context, e *Executor, operation func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := e.Execute(ctx, func(ctx context.Context) error {
		v, err := operation(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}

var _ Classifier = (*ConnectClassifier)(nil)
