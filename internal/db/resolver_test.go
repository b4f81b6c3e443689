package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvka-141/pgingest/pkg/pgingest"
)

func TestResolveDSN_Precedence(t *testing.T) {
	env := &EnvVars{
		PG_DSN:       "postgresql://env@localhost/pgdsn",
		DATABASE_URL: "postgresql://env@localhost/dburl",
	}

	dsn, src, err := ResolveDSN("postgresql://flag@localhost/db", env, "project.db")
	require.NoError(t, err)
	assert.Equal(t, "postgresql://flag@localhost/db", dsn)
	assert.Equal(t, SourceFlag, src)

	dsn, src, err = ResolveDSN("", env, "project.db")
	require.NoError(t, err)
	assert.Equal(t, env.PG_DSN, dsn)
	assert.Equal(t, SourcePGDSN, src)

	dsn, src, err = ResolveDSN("", &EnvVars{DATABASE_URL: env.DATABASE_URL}, "project.db")
	require.NoError(t, err)
	assert.Equal(t, env.DATABASE_URL, dsn)
	assert.Equal(t, SourceDatabaseURL, src)

	dsn, src, err = ResolveDSN("", nil, "project.db")
	require.NoError(t, err)
	assert.Equal(t, "project.db", dsn)
	assert.Equal(t, SourceProject, src)
}

func TestResolveDSN_Errors(t *testing.T) {
	_, _, err := ResolveDSN("", &EnvVars{}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, pgingest.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "PG_DSN")

	_, src, err := ResolveDSN("", &EnvVars{PG_DSN: "mysql://x"}, "")
	require.Error(t, err)
	assert.Equal(t, SourcePGDSN, src)
	assert.ErrorIs(t, err, pgingest.ErrInvalidConfig)
}

func TestApplyCloudAuth(t *testing.T) {
	env := &EnvVars{
		AWS_REGION:          "eu-west-1",
		AZURE_TENANT_ID:     "tenant-env",
		AZURE_CLIENT_ID:     "client-env",
		AZURE_CLIENT_SECRET: "secret-env",
	}

	t.Run("standard by default", func(t *testing.T) {
		cfg := pgingest.IngestConfig{ConnectionString: "postgresql://localhost/db"}
		require.NoError(t, ApplyCloudAuth(&cfg, CloudAuth{}, env))
		assert.Equal(t, pgingest.AuthMethodStandard, cfg.AuthMethod)
		assert.Empty(t, cfg.AzureClientSecret)
	})

	t.Run("aws region falls back to env", func(t *testing.T) {
		cfg := pgingest.IngestConfig{ConnectionString: "postgresql://localhost/db"}
		require.NoError(t, ApplyCloudAuth(&cfg, CloudAuth{AWS: true}, env))
		assert.Equal(t, pgingest.AuthMethodAWSIAM, cfg.AuthMethod)
		assert.Equal(t, "eu-west-1", cfg.AWSRegion)
	})

	t.Run("azure flags override env", func(t *testing.T) {
		cfg := pgingest.IngestConfig{ConnectionString: "postgresql://localhost/db"}
		require.NoError(t, ApplyCloudAuth(&cfg, CloudAuth{Azure: true, AzureClientID: "client-flag"}, env))
		assert.Equal(t, pgingest.AuthMethodAzureEntraID, cfg.AuthMethod)
		assert.Equal(t, "tenant-env", cfg.AzureTenantID)
		assert.Equal(t, "client-flag", cfg.AzureClientID)
		assert.Equal(t, "secret-env", cfg.AzureClientSecret)
	})

	t.Run("google", func(t *testing.T) {
		cfg := pgingest.IngestConfig{ConnectionString: "postgresql://sa@localhost/db"}
		require.NoError(t, ApplyCloudAuth(&cfg, CloudAuth{Google: true, GoogleInstance: "p:r:i"}, env))
		assert.Equal(t, pgingest.AuthMethodGoogleIAM, cfg.AuthMethod)
		assert.Equal(t, "p:r:i", cfg.GoogleInstance)
	})

	t.Run("mutually exclusive", func(t *testing.T) {
		cfg := pgingest.IngestConfig{ConnectionString: "postgresql://localhost/db"}
		err := ApplyCloudAuth(&cfg, CloudAuth{AWS: true, Google: true}, env)
		assert.ErrorIs(t, err, pgingest.ErrInvalidConfig)
	})

	t.Run("cloud auth needs postgres", func(t *testing.T) {
		cfg := pgingest.IngestConfig{ConnectionString: "trips.db"}
		err := ApplyCloudAuth(&cfg, CloudAuth{AWS: true}, env)
		assert.ErrorIs(t, err, pgingest.ErrInvalidConfig)
	})
}

func TestConnectionConfigFor(t *testing.T) {
	cfg := pgingest.IngestConfig{
		ConnectionString: "postgresql://iam_user@mydb.rds.amazonaws.com:5432/ny_taxi",
		AuthMethod:       pgingest.AuthMethodAWSIAM,
		AWSRegion:        "us-east-1",
	}

	conn, err := ConnectionConfigFor(cfg)
	require.NoError(t, err)
	assert.Equal(t, "mydb.rds.amazonaws.com", conn.Host)
	assert.Equal(t, "iam_user", conn.Username)
	assert.Equal(t, "pgingest", conn.AppName)
	assert.Equal(t, pgingest.AuthMethodAWSIAM, conn.AuthMethod)
	assert.Equal(t, "us-east-1", conn.AWSRegion)

	_, err = ConnectionConfigFor(pgingest.IngestConfig{ConnectionString: "trips.db"})
	assert.ErrorIs(t, err, pgingest.ErrInvalidConfig)
}
