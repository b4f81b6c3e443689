package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// mockOperation fails with a transient error until failUntil, then returns fatalErr once or succeeds.
type mockOperation struct {
	invocations int
	failUntil   int
	fatalErr    error
}

func (m *mockOperation) execute(ctx context.Context) error {
	m.invocations++
	if m.invocations < m.failUntil {
		return &pgconn.PgError{Code: "08006", Message: "connection failure"}
	}
	if m.invocations == m.failUntil && m.fatalErr != nil {
		return m.fatalErr
	}
	return nil
}

func fastExecutor(retries int) *Executor {
	return New(NewConnectClassifier(), retries, Backoff{Initial: time.Millisecond, Factor: 2})
}

func TestExecutor_SuccessOnFirstAttempt(t *testing.T) {
	op := &mockOperation{failUntil: 1}
	if err := fastExecutor(3).Execute(context.Background(), op.execute); err != nil {
		t.Errorf("Expected success, got error: %v", err)
	}
	if op.invocations != 1 {
		t.Errorf("Expected 1 invocation, got %d", op.invocations)
	}
}

func TestExecutor_SuccessAfterRetries(t *testing.T) {
	op := &mockOperation{failUntil: 4}
	if err := fastExecutor(5).Execute(context.Background(), op.execute); err != nil {
		t.Errorf("Expected success after retries, got error: %v", err)
	}
	if op.invocations != 4 {
		t.Errorf("Expected 4 invocations, got %d", op.invocations)
	}
}

func TestExecutor_FatalErrorNoRetry(t *testing.T) {
	fatal := &pgconn.PgError{Code: "28P01", Message: "password authentication failed"}
	op := &mockOperation{failUntil: 1, fatalErr: fatal}

	err := fastExecutor(5).Execute(context.Background(), op.execute)
	if !errors.Is(err, fatal) {
		t.Errorf("Expected fatal error, got %v", err)
	}
	if op.invocations != 1 {
		t.Errorf("Expected 1 invocation, got %d", op.invocations)
	}
}

func TestExecutor_ZeroRetriesMeansSingleAttempt(t *testing.T) {
	op := &mockOperation{failUntil: 10}

	err := ForConnect(0).Execute(context.Background(), op.execute)
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		t.Fatalf("Expected last transient error, got %v", err)
	}
	if op.invocations != 1 {
		t.Errorf("Expected 1 invocation, got %d", op.invocations)
	}
}

func TestExecutor_ExhaustsAttempts(t *testing.T) {
	op := &mockOperation{failUntil: 100}
	var retries []int
	exec := fastExecutor(3).WithOnRetry(func(attempt int, err error, delay time.Duration) {
		retries = append(retries, attempt)
	})

	if err := exec.Execute(context.Background(), op.execute); err == nil {
		t.Fatal("Expected error after exhausting retries")
	}
	if op.invocations != 4 {
		t.Errorf("Expected 4 invocations, got %d", op.invocations)
	}
	if len(retries) != 3 || retries[2] != 2 {
		t.Errorf("unexpected retry callbacks: %v", retries)
	}
}

func TestExecutor_ContextCancelledDuringBackoff(t *testing.T) {
	exec := New(NewConnectClassifier(), 5, Backoff{Initial: time.Hour, Max: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	exec = exec.WithOnRetry(func(int, error, time.Duration) { cancel() })

	op := &mockOperation{failUntil: 100}
	err := exec.Execute(ctx, op.execute)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if op.invocations != 1 {
		t.Errorf("Expected 1 invocation, got %d", op.invocations)
	}
}

func TestWithOnRetry_DoesNotMutateReceiver(t *testing.T) {
	base := fastExecutor(1)
	_ = base.WithOnRetry(func(int, error, time.Duration) {})
	if base.onRetry != nil {
		t.Error("WithOnRetry modified the original executor")
	}
}

func TestValue(t *testing.T) {
	calls := 0
	got, err := Value(context.Background(), fastExecutor(2), func(ctx context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", errors.New("connection refused")
		}
		return "pool", nil
	})
	if err != nil || got != "pool" {
		t.Errorf("Value() = %q, %v", got, err)
	}
	if calls != 2 {
		t.Errorf("Expected 2 calls, got %d", calls)
	}
}

func TestNew_PanicsOnNilClassifier(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	New(nil, 1, Backoff{})
}

func TestForConnect_NegativeRetriesMeansSingleAttempt(t *testing.T) {
	op := &mockOperation{failUntil: 10}
	if err := ForConnect(-3).Execute(context.Background(), op.execute); err == nil {
		t.Fatal("expected the transient error")
	}
	if op.invocations != 1 {
		t.Errorf("Expected 1 invocation, got %d", op.invocations)
	}
}
