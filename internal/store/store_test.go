package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/pgingest/internal/logging"
	"github.com/vvka-141/pgingest/internal/store/sqlite"
	"github.com/vvka-141/pgingest/pkg/pgingest"
)

func TestOpen_SQLite(t *testing.T) {
	rec := logging.NewRecorder()
	path := filepath.Join(t.TempDir(), "trips.db")

	for _, dsn := range []string{path, "sqlite://" + path, "file:" + path} {
		s, err := NewOpener(rec).Open(context.Background(), pgingest.IngestConfig{ConnectionString: dsn, TableName: "t"})
		require.NoError(t, err, dsn)
		assert.IsType(t, &sqlite.Store{}, s)
		require.NoError(t, s.Close())
	}
	assert.True(t, rec.Contains("Opening SQLite database"))
}

func TestOpen_InvalidConfig(t *testing.T) {
	_, err := NewOpener(nil).Open(context.Background(), pgingest.IngestConfig{ConnectionString: "mysql://x", TableName: "t"})
	assert.ErrorIs(t, err, pgingest.ErrInvalidConfig)

	_, err = NewOpener(nil).Open(context.Background(), pgingest.IngestConfig{
		ConnectionString: "postgresql://localhost/db",
		AuthMethod:       pgingest.AuthMethodGoogleIAM,
		TableName:        "t",
	})
	assert.ErrorIs(t, err, pgingest.ErrInvalidConfig, "google auth without an instance")
}

func TestOpen_ConnectionFailure(t *testing.T) {
	_, err := NewOpener(nil).Open(context.Background(), pgingest.IngestConfig{
		ConnectionString: filepath.Join(t.TempDir(), "missing", "x.db"),
		TableName:        "trips",
	})
	require.Error(t, err)

	var le *pgingest.LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, pgingest.LoadConnection, le.Kind)
	assert.Equal(t, "trips", le.Table)
	assert.ErrorIs(t, err, pgingest.ErrConnectionFailed)
}

func TestOpen_PostgresUnreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("dials a closed local port")
	}
	_, err := NewOpener(nil).Open(context.Background(), pgingest.IngestConfig{
		ConnectionString: "postgresql://postgres@127.0.0.1:1/postgres?connect_timeout=2",
		TableName:        "trips",
	})
	assert.ErrorIs(t, err, pgingest.ErrConnectionFailed)
}
