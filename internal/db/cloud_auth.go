package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/rds/auth"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/pgingest/internal/retry"
	"github.com/vvka-141/pgingest/pkg/pgingest"
)

const (
	// AzurePostgresScope is the OAuth scope Azure Database for PostgreSQL accepts.
	AzurePostgresScope = "https://ossrdbms-aad.database.windows.net/.default"

	// RDSTokenLifetime is how long an RDS IAM token is accepted after signing.
	RDSTokenLifetime = 15 * time.Minute

	tokenExpiryWarning = 5 * time.Minute
)

// Token is a short-lived password issued by a cloud identity service.
type Token struct {
	Value   string
	Expires time.Time
}

// TokenSource issues tokens used in place of a PostgreSQL password.
// String must not reveal secrets; it ends up in log lines.
type TokenSource interface {
	Token(ctx context.Context) (Token, error)
	String() string
}

// RDSTokenSource signs RDS IAM tokens with the default AWS credential chain.
type RDSTokenSource struct {
	endpoint string
	region   string
	user     string

	credentials func(ctx context.Context, region string) (aws.CredentialsProvider, error)
}

// NewRDSTokenSource validates the RDS parameters of conn.
func NewRDSTokenSource(conn *pgingest.ConnectionConfig) (*RDSTokenSource, error) {
	switch {
	case conn.Host == "":
		return nil, fmt.Errorf("AWS IAM auth needs a host in the connection string: %w", pgingest.ErrInvalidConfig)
	case conn.AWSRegion == "":
		return nil, fmt.Errorf("AWS IAM auth needs a region (--aws-region or $AWS_REGION): %w", pgingest.ErrInvalidConfig)
	case conn.Username == "":
		return nil, fmt.Errorf("AWS IAM auth needs a username in the connection string: %w", pgingest.ErrInvalidConfig)
	}
	return &RDSTokenSource{
		endpoint:    fmt.Sprintf("%s:%d", conn.Host, conn.Port),
		region:      conn.AWSRegion,
		user:        conn.Username,
		credentials: loadAWSCredentials,
	}, nil
}

func loadAWSCredentials(ctx context.Context, region string) (aws.CredentialsProvider, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return cfg.Credentials, nil
}

func (s *RDSTokenSource) Token(ctx context.Context) (Token, error) {
	creds, err := s.credentials(ctx, s.region)
	if err != nil {
		return Token{}, err
	}
	signed, err := auth.BuildAuthToken(ctx, s.endpoint, s.region, s.user, creds)
	if err != nil {
		return Token{}, fmt.Errorf("sign RDS auth token: %w", err)
	}
	return Token{Value: signed, Expires: time.Now().Add(RDSTokenLifetime)}, nil
}

func (s *RDSTokenSource) String() string {
	return fmt.Sprintf("AWS IAM (%s@%s, %s)", s.user, s.endpoint, s.region)
}

// EntraTokenSource requests Entra ID access tokens for Azure Database for PostgreSQL.
type EntraTokenSource struct {
	credential azcore.TokenCredential
	label      string
}

// NewEntraTokenSource picks a client-secret credential when tenant, client and
// secret are all set, and the DefaultAzureCredential chain otherwise.
func NewEntraTokenSource(conn *pgingest.ConnectionConfig) (*EntraTokenSource, error) {
	if conn.AzureTenantID != "" && conn.AzureClientID != "" && conn.AzureClientSecret != "" {
		cred, err := azidentity.NewClientSecretCredential(conn.AzureTenantID, conn.AzureClientID, conn.AzureClientSecret, nil)
		if err != nil {
			return nil, fmt.Errorf("create Azure client secret credential: %w", err)
		}
		return &EntraTokenSource{
			credential: cred,
			label:      fmt.Sprintf("Azure service principal (tenant %s, client %s)", conn.AzureTenantID, conn.AzureClientID),
		}, nil
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("create Azure default credential: %w", err)
	}
	return &EntraTokenSource{credential: cred, label: "Azure default credential"}, nil
}

func (s *EntraTokenSource) Token(ctx context.Context) (Token, error) {
	tok, err := s.credential.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{AzurePostgresScope}})
	if err != nil {
		return Token{}, fmt.Errorf("request Entra ID token: %w", err)
	}
	return Token{Value: tok.Token, Expires: tok.ExpiresOn}, nil
}

func (s *EntraTokenSource) String() string { return s.label }

// TokenConnector authenticates each physical connection with a token from
// its source. The pool may reconnect during a long load, so a new token is
// requested for every dial after the first.
type TokenConnector struct {
	config        *pgingest.ConnectionConfig
	source        TokenSource
	retryExecutor *retry.Executor
	logger        pgingest.Logger
}

// NewTokenConnector creates a TokenConnector.
func NewTokenConnector(config *pgingest.ConnectionConfig, source TokenSource, opts ConnectorOptions) *TokenConnector {
	return &TokenConnector{
		config:        config,
		source:        source,
		retryExecutor: opts.executor(),
		logger:        opts.logger(),
	}
}

// Connect fetches a token up front, so credential problems surface before
// the pool is built, and hands it to the first dial.
func (c *TokenConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	connStr := BuildConnectionString(c.config)
	return retry.Value(ctx, c.retryExecutor, func(ctx context.Context) (*pgxpool.Pool, error) {
		first, err := c.token(ctx)
		if err != nil {
			return nil, err
		}

		var mu sync.Mutex
		pending := &first
		return openPool(ctx, connStr, c.config, c.logger, func(pc *pgxpool.Config) {
			pc.BeforeConnect = func(ctx context.Context, cc *pgx.ConnConfig) error {
				mu.Lock()
				tok := pending
				pending = nil
				mu.Unlock()

				if tok == nil {
					fresh, err := c.token(ctx)
					if err != nil {
						return err
					}
					tok = &fresh
				}
				cc.Password = tok.Value
				return nil
			}
		})
	})
}

func (c *TokenConnector) token(ctx context.Context) (Token, error) {
	tok, err := c.source.Token(ctx)
	if err != nil {
		return Token{}, fmt.Errorf("failed to acquire token from %s: %w", c.source, err)
	}
	c.logger.Verbose("Acquired token from %s", c.source)
	if left := time.Until(tok.Expires); left < tokenExpiryWarning {
		c.logger.Info("Warning: token from %s expires in %v", c.source, left.Round(time.Second))
	}
	return tok, nil
}
