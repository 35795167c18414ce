package s3bridge

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/engine"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/internal/httpengine"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/internal/metrics"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/s3types"
)

const (
	defaultRegion     = "us-east-1"
	defaultMaxRetries = 3
	defaultConcurrent = 5
	defaultPartSize   = 8 * 1024 * 1024
	defaultThroughput = 10.0
)

// Client represents an S3 client with configurable options.
// It is safe for concurrent use. The configuration is fixed at construction.
type Client struct {
	// engine performs the HTTP exchanges
	engine engine.Engine

	// config is the resolved client configuration
	config s3types.ClientConfig

	metrics *metrics.Metrics
	logger  *slog.Logger

	// fs is the filesystem used for file operations
	fs billy.Filesystem

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// New creates a new client with the provided options.
// Unless an engine is supplied it resolves credentials with the default AWS
// credential chain and starts the built-in HTTP engine.
//
// Example:
//
//	client, err := s3bridge.New(ctx,
//	    s3bridge.WithRegion("us-west-2"),
//	    s3bridge.WithMaxRetries(3),
//	)
func New(ctx context.Context, opts ...s3types.Option) (*Client, error) {
	cfg := s3types.ClientConfig{
		MaxRetries:           defaultMaxRetries,
		Concurrency:          defaultConcurrent,
		PartSize:             defaultPartSize,
		ThroughputTargetGbps: defaultThroughput,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Filesystem == nil {
		cfg.Filesystem = osfs.New("/")
	}
	m := metrics.New(cfg.MetricsRegisterer)

	eng := cfg.Engine
	if eng == nil {
		if err := resolveAWSConfig(ctx, &cfg); err != nil {
			return nil, errors.NewError("client initialization", err)
		}
		e, err := httpengine.New(httpengine.Config{
			Region:                cfg.Region,
			Endpoint:              cfg.Endpoint,
			ForcePathStyle:        cfg.ForcePathStyle,
			Credentials:           cfg.Credentials,
			HTTPClient:            cfg.CustomHTTPClient,
			Timeout:               cfg.Timeout,
			MaxAttempts:           cfg.MaxRetries,
			ThroughputTargetGbps:  cfg.ThroughputTargetGbps,
			MaxConcurrentRequests: cfg.MaxConcurrentRequests,
			Logger:                cfg.Logger,
			Metrics:               m,
		})
		if err != nil {
			return nil, errors.NewError("client initialization", err)
		}
		eng = e
	} else if cfg.Region == "" {
		cfg.Region = defaultRegion
	}
	cfg.Engine = eng

	cfg.Logger.Debug("client created",
		"region", cfg.Region,
		"endpoint", cfg.Endpoint,
		"throughput_gbps", cfg.ThroughputTargetGbps,
		"part_size", cfg.PartSize,
	)

	return &Client{
		engine:  eng,
		config:  cfg,
		metrics: m,
		logger:  cfg.Logger,
		fs:      cfg.Filesystem,
	}, nil
}

// NewWithEngine creates a client that sends every request through eng.
// This is primarily used for testing with scripted engines.
func NewWithEngine(eng engine.Engine, opts ...s3types.Option) (*Client, error) {
	return New(context.Background(), append(opts, WithEngine(eng))...)
}

// resolveAWSConfig fills region, credentials and endpoint from the AWS
// configuration. The shared configuration is only loaded when the options
// leave region or credentials unset.
func resolveAWSConfig(ctx context.Context, cfg *s3types.ClientConfig) error {
	var awsCfg aws.Config
	switch {
	case cfg.CustomAWSConfig != nil:
		awsCfg = *cfg.CustomAWSConfig
	case cfg.Region == "" || cfg.Credentials == nil:
		loaded, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return err
		}
		awsCfg = loaded
	}

	if cfg.Region == "" {
		cfg.Region = awsCfg.Region
	}
	if cfg.Region == "" {
		cfg.Region = defaultRegion
	}
	if cfg.Credentials == nil {
		cfg.Credentials = awsCfg.Credentials
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = aws.ToString(awsCfg.BaseEndpoint)
	}
	return nil
}

// Close releases the engine. Operations started afterwards fail with
// errors.ErrClientClosed. Close is idempotent.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.closeErr = c.engine.Close()
	})
	return c.closeErr
}

// Region returns the region requests are signed for.
func (c *Client) Region() string {
	return c.config.Region
}

// Endpoint returns the configured endpoint, empty for the regional default.
func (c *Client) Endpoint() string {
	return c.config.Endpoint
}

// ThroughputTargetGbps returns the configured throughput target.
func (c *Client) ThroughputTargetGbps() float64 {
	return c.config.ThroughputTargetGbps
}

// PartSize returns the part size used for ranged downloads.
func (c *Client) PartSize() int64 {
	return c.config.PartSize
}

// Concurrency returns the concurrency used by batch operations.
func (c *Client) Concurrency() int {
	return c.config.Concurrency
}
