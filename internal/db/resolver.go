package db

import (
	"fmt"
	"os"

	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// Source names where a resolved DSN came from.
type Source string

const (
	SourceFlag        Source = "--connection"
	SourcePGDSN       Source = "PG_DSN"
	SourceDatabaseURL Source = "DATABASE_URL"
	SourceProject     Source = "pgingest.yaml"
)

// EnvVars holds the environment variables that affect connection resolution.
type EnvVars struct {
	PG_DSN       string // usually set through .env
	DATABASE_URL string // Heroku/Rails convention
	AWS_REGION   string

	// Azure Entra ID environment variables (Azure SDK standard names)
	AZURE_TENANT_ID     string
	AZURE_CLIENT_ID     string
	AZURE_CLIENT_SECRET string
}

// LoadFromEnvironment reads EnvVars from the process environment.
func LoadFromEnvironment() *EnvVars {
	return &EnvVars{
		PG_DSN:              os.Getenv("PG_DSN"),
		DATABASE_URL:        os.Getenv("DATABASE_URL"),
		AWS_REGION:          os.Getenv("AWS_REGION"),
		AZURE_TENANT_ID:     os.Getenv("AZURE_TENANT_ID"),
		AZURE_CLIENT_ID:     os.Getenv("AZURE_CLIENT_ID"),
		AZURE_CLIENT_SECRET: os.Getenv("AZURE_CLIENT_SECRET"),
	}
}

// ResolveDSN picks the destination DSN by precedence:
//
//  1. --connection flag
//  2. PG_DSN
//  3. DATABASE_URL
//  4. connection in pgingest.yaml
func ResolveDSN(flag string, env *EnvVars, projectDSN string) (string, Source, error) {
	if env == nil {
		env = &EnvVars{}
	}

	candidates := []struct {
		value  string
		source Source
	}{
		{flag, SourceFlag},
		{env.PG_DSN, SourcePGDSN},
		{env.DATABASE_URL, SourceDatabaseURL},
		{projectDSN, SourceProject},
	}

	for _, c := range candidates {
		if c.value == "" {
			continue
		}
		if _, err := DetectDriver(c.value); err != nil {
			return "", c.source, fmt.Errorf("connection string from %s: %w", c.source, err)
		}
		return c.value, c.source, nil
	}

	return "", "", fmt.Errorf(
		"no connection string given\n"+
			"Provide one of:\n"+
			"  1. --connection \"postgresql://user@localhost:5432/postgres\"\n"+
			"  2. PG_DSN or DATABASE_URL in the environment or .env\n"+
			"  3. connection: in pgingest.yaml: %w", pgingest.ErrInvalidConfig)
}

// CloudAuth carries the cloud authentication choices made on the command line.
type CloudAuth struct {
	AWS            bool
	AWSRegion      string
	Azure          bool
	AzureTenantID  string
	AzureClientID  string
	Google         bool
	GoogleInstance string
}

// ApplyCloudAuth sets the auth method and cloud parameters on cfg.
// Flags take precedence over environment variables; the Azure client secret
// only comes from AZURE_CLIENT_SECRET.
func ApplyCloudAuth(cfg *pgingest.IngestConfig, auth CloudAuth, env *EnvVars) error {
	if env == nil {
		env = &EnvVars{}
	}

	selected := 0
	for _, on := range []bool{auth.AWS, auth.Azure, auth.Google} {
		if on {
			selected++
		}
	}
	if selected > 1 {
		return fmt.Errorf("--aws, --azure and --google are mutually exclusive: %w", pgingest.ErrInvalidConfig)
	}

	switch {
	case auth.AWS:
		cfg.AuthMethod = pgingest.AuthMethodAWSIAM
		cfg.AWSRegion = firstNonEmpty(auth.AWSRegion, env.AWS_REGION)
	case auth.Azure:
		cfg.AuthMethod = pgingest.AuthMethodAzureEntraID
		cfg.AzureTenantID = firstNonEmpty(auth.AzureTenantID, env.AZURE_TENANT_ID)
		cfg.AzureClientID = firstNonEmpty(auth.AzureClientID, env.AZURE_CLIENT_ID)
		cfg.AzureClientSecret = env.AZURE_CLIENT_SECRET
	case auth.Google:
		cfg.AuthMethod = pgingest.AuthMethodGoogleIAM
		cfg.GoogleInstance = auth.GoogleInstance
	default:
		cfg.AuthMethod = pgingest.AuthMethodStandard
	}

	if cfg.AuthMethod != pgingest.AuthMethodStandard {
		if driver, err := DetectDriver(cfg.ConnectionString); err == nil && driver != DriverPostgres {
			return fmt.Errorf("%s authentication requires a PostgreSQL connection string: %w", cfg.AuthMethod, pgingest.ErrInvalidConfig)
		}
	}
	return nil
}

// ConnectionConfigFor parses the DSN of cfg and overlays its cloud authentication settings.
func ConnectionConfigFor(cfg pgingest.IngestConfig) (*pgingest.ConnectionConfig, error) {
	conn, err := ParseConnectionString(cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string: %w: %w", err, pgingest.ErrInvalidConfig)
	}
	if conn.AppName == "" {
		conn.AppName = "pgingest"
	}
	conn.AuthMethod = cfg.AuthMethod
	conn.AWSRegion = cfg.AWSRegion
	conn.GoogleInstance = cfg.GoogleInstance
	conn.AzureTenantID = cfg.AzureTenantID
	conn.AzureClientID = cfg.AzureClientID
	conn.AzureClientSecret = cfg.AzureClientSecret
	return conn, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
