// Package testing provisions throwaway PostgreSQL databases for integration
// tests. The server comes from PGINGEST_TEST_CONN when set, otherwise from a
// container started once per test binary.
package testing

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/vvka-141/pgingest/internal/db"
)

// ConnEnvVar points the tests at an existing server instead of a container.
const ConnEnvVar = "PGINGEST_TEST_CONN"

const postgresImage = "postgres:17-alpine"

var server struct {
	once sync.Once
	dsn  string
	err  error
}

func serverDSN() (string, error) {
	if dsn := os.Getenv(ConnEnvVar); dsn != "" {
		return dsn, nil
	}
	server.once.Do(func() {
		server.dsn, server.err = startContainer(context.Background())
	})
	return server.dsn, server.err
}

// startContainer leaves the container running; testcontainers reaps it when
// the test binary exits.
func startContainer(ctx context.Context) (string, error) {
	ctr, err := postgres.Run(ctx, postgresImage,
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.WithDatabase("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	if err != nil {
		return "", fmt.Errorf("start postgres container: %w", err)
	}
	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = ctr.Terminate(ctx)
		return "", fmt.Errorf("container connection string: %w", err)
	}
	return dsn, nil
}

// NewDatabase creates an empty database named after prefix, drops it when
// the test ends, and returns a DSN for it. The test is skipped under -short
// or when no server is available.
func NewDatabase(t *testing.T, prefix string) string {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}

	admin, err := serverDSN()
	if err != nil {
		t.Skipf("%s not set and no container available: %v", ConnEnvVar, err)
	}

	name := prefix + "_" + uuid.NewString()[:8]
	ctx := context.Background()
	if err := adminExec(ctx, admin, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize()); err != nil {
		t.Fatalf("create database %s: %v", name, err)
	}
	t.Cleanup(func() {
		if err := adminExec(ctx, admin, "DROP DATABASE IF EXISTS "+pgx.Identifier{name}.Sanitize()+" WITH (FORCE)"); err != nil {
			t.Logf("drop database %s: %v", name, err)
		}
	})

	cfg, err := db.ParseConnectionString(admin)
	if err != nil {
		t.Fatalf("parse %s: %v", db.RedactConnectionString(admin), err)
	}
	cfg.Database = name
	return db.BuildConnectionString(cfg)
}

func adminExec(ctx context.Context, dsn, sql string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, sql)
	return err
}
