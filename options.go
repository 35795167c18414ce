package s3bridge

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/go-git/go-billy/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/engine"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/s3types"
)

// Client options

// WithRegion sets the AWS region for the client.
func WithRegion(region string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Region = region
	}
}

// WithEndpoint sets the service base URL, e.g. http://localhost:4566.
func WithEndpoint(endpoint string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Endpoint = endpoint
	}
}

// WithForcePathStyle addresses buckets in the request path instead of the host.
func WithForcePathStyle(enabled bool) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.ForcePathStyle = enabled
	}
}

// WithCredentials sets static credentials.
func WithCredentials(accessKeyID, secretAccessKey, sessionToken string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Credentials = credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, sessionToken)
	}
}

// WithCredentialsProvider sets the credentials provider.
func WithCredentialsProvider(provider aws.CredentialsProvider) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Credentials = provider
	}
}

// WithAWSConfig uses a custom AWS configuration for region, credentials and endpoint.
func WithAWSConfig(cfg *aws.Config) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.CustomAWSConfig = cfg
	}
}

// WithThroughputTarget sets the aggregate transfer rate the engine paces to.
func WithThroughputTarget(gbps float64) s3types.Option {
	return func(c *s3types.ClientConfig) {
		if gbps > 0 {
			c.ThroughputTargetGbps = gbps
		}
	}
}

// WithPartSize sets the part size used for ranged downloads.
func WithPartSize(size int64) s3types.Option {
	return func(c *s3types.ClientConfig) {
		if size > 0 {
			c.PartSize = size
		}
	}
}

// WithConcurrency sets the number of concurrent requests in batch operations.
func WithConcurrency(n int) s3types.Option {
	return func(c *s3types.ClientConfig) {
		if n > 0 {
			c.Concurrency = n
		}
	}
}

// WithMaxConcurrentRequests bounds the requests the engine exchanges at once.
func WithMaxConcurrentRequests(n int) s3types.Option {
	return func(c *s3types.ClientConfig) {
		if n > 0 {
			c.MaxConcurrentRequests = n
		}
	}
}

// WithMaxRetries sets the number of attempts per request.
func WithMaxRetries(n int) s3types.Option {
	return func(c *s3types.ClientConfig) {
		if n > 0 {
			c.MaxRetries = n
		}
	}
}

// WithTimeout bounds each attempt, body included.
func WithTimeout(d time.Duration) s3types.Option {
	return func(c *s3types.ClientConfig) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

// WithHTTPClient sets the HTTP client used by the built-in engine.
func WithHTTPClient(client *http.Client) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.CustomHTTPClient = client
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Logger = logger
	}
}

// WithMetricsRegisterer registers the client's Prometheus collectors with reg.
func WithMetricsRegisterer(reg prometheus.Registerer) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.MetricsRegisterer = reg
	}
}

// WithFilesystem sets the filesystem used by DownloadFile.
func WithFilesystem(fs billy.Filesystem) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Filesystem = fs
	}
}

// WithEngine replaces the built-in HTTP engine.
func WithEngine(eng engine.Engine) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Engine = eng
	}
}

// Copy options

// WithSourceVersionID copies a specific version of the source object.
func WithSourceVersionID(versionID string) s3types.CopyOption {
	return func(c *s3types.CopyOptionConfig) {
		c.SourceVersionID = &versionID
	}
}

// WithReplaceMetadata replaces the object's metadata with metadata instead of
// copying it from the source.
func WithReplaceMetadata(metadata map[string]string) s3types.CopyOption {
	return func(c *s3types.CopyOptionConfig) {
		c.Metadata = metadata
		c.ReplaceMetadata = true
	}
}

// WithStorageClass sets the storage class of the new object.
func WithStorageClass(class types.StorageClass) s3types.CopyOption {
	return func(c *s3types.CopyOptionConfig) {
		c.StorageClass = class
	}
}

// WithChecksumAlgorithm asks the service to checksum the new object.
func WithChecksumAlgorithm(algorithm types.ChecksumAlgorithm) s3types.CopyOption {
	return func(c *s3types.CopyOptionConfig) {
		c.ChecksumAlgorithm = algorithm
	}
}

// WithCopySourceIfMatch only copies when the source ETag matches.
func WithCopySourceIfMatch(etag string) s3types.CopyOption {
	return func(c *s3types.CopyOptionConfig) {
		c.IfMatch = &etag
	}
}

// Get options

// WithRange requests part of the object, e.g. "bytes=0-99".
func WithRange(rangeSpec string) s3types.GetOption {
	return func(c *s3types.GetOptionConfig) {
		c.Range = &rangeSpec
	}
}

// WithByteRange requests the inclusive byte range [start, end].
func WithByteRange(start, end int64) s3types.GetOption {
	return WithRange(fmt.Sprintf("bytes=%d-%d", start, end))
}

// WithIfMatch only returns the object when its ETag matches.
func WithIfMatch(etag string) s3types.GetOption {
	return func(c *s3types.GetOptionConfig) {
		c.IfMatch = &etag
	}
}

// WithIfNoneMatch only returns the object when its ETag differs.
func WithIfNoneMatch(etag string) s3types.GetOption {
	return func(c *s3types.GetOptionConfig) {
		c.IfNoneMatch = &etag
	}
}

// WithVersionID reads a specific version of the object.
func WithVersionID(versionID string) s3types.GetOption {
	return func(c *s3types.GetOptionConfig) {
		c.VersionID = &versionID
	}
}

// List options

// WithPrefix limits the listing to keys that begin with prefix.
func WithPrefix(prefix string) s3types.ListOption {
	return func(c *s3types.ListOptionConfig) {
		c.Prefix = &prefix
	}
}

// WithDelimiter rolls keys sharing a prefix up to the delimiter into common prefixes.
func WithDelimiter(delimiter string) s3types.ListOption {
	return func(c *s3types.ListOptionConfig) {
		c.Delimiter = &delimiter
	}
}

// WithMaxKeys sets the maximum number of keys per page.
func WithMaxKeys(n int32) s3types.ListOption {
	return func(c *s3types.ListOptionConfig) {
		c.MaxKeys = &n
	}
}

// WithStartAfter starts the listing after key.
func WithStartAfter(key string) s3types.ListOption {
	return func(c *s3types.ListOptionConfig) {
		c.StartAfter = &key
	}
}

// WithContinuationToken resumes a truncated listing.
func WithContinuationToken(token string) s3types.ListOption {
	return func(c *s3types.ListOptionConfig) {
		c.ContinuationToken = &token
	}
}

// WithFetchOwner includes object owners in the listing.
func WithFetchOwner() s3types.ListOption {
	return func(c *s3types.ListOptionConfig) {
		c.FetchOwner = true
	}
}

// Delete options

// WithDeleteVersionID deletes a specific version of the object.
func WithDeleteVersionID(versionID string) s3types.DeleteOption {
	return func(c *s3types.DeleteOptionConfig) {
		c.VersionID = &versionID
	}
}
