// Package s3types provides shared type definitions for the s3bridge module.
//
// Optional response fields are pointers. A nil pointer means the service did
// not send the field; it is never replaced by a default value.
package s3types

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/go-git/go-billy/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/engine"
)

// Checksums holds the object checksums reported by the service, one field per
// algorithm. Values are base64 encoded as sent on the wire.
type Checksums struct {
	CRC32     *string
	CRC32C    *string
	CRC64NVME *string
	SHA1      *string
	SHA256    *string

	// Type is FULL_OBJECT or COMPOSITE when reported
	Type *types.ChecksumType
}

// IsZero reports whether no checksum was returned.
func (c Checksums) IsZero() bool {
	return c.CRC32 == nil && c.CRC32C == nil && c.CRC64NVME == nil &&
		c.SHA1 == nil && c.SHA256 == nil && c.Type == nil
}

// CopyResult contains the result of a copy operation.
type CopyResult struct {
	// ETag is the entity tag of the new object
	ETag *string

	// LastModified is when the new object was written
	LastModified *time.Time

	Checksums Checksums

	// VersionID is the version of the new object if versioning is enabled
	VersionID *string

	// SourceVersionID is the version of the object that was copied
	SourceVersionID *string

	// ServerSideEncryption is the encryption applied to the new object
	ServerSideEncryption *string
}

// DeleteResult contains the result of a delete operation.
type DeleteResult struct {
	// DeleteMarker reports whether a delete marker was created or removed
	DeleteMarker *bool

	// VersionID is the version of the delete marker or of the deleted object
	VersionID *string
}

// GetResult contains an object and its metadata.
type GetResult struct {
	Body []byte

	ETag          *string
	LastModified  *time.Time
	ContentLength *int64
	ContentType   *string
	ContentRange  *string
	VersionID     *string
	StorageClass  *types.StorageClass

	// Metadata contains user-defined metadata keyed by lower-cased name
	Metadata map[string]string

	Checksums Checksums
}

// Owner identifies the owner of an object.
type Owner struct {
	ID          *string
	DisplayName *string
}

// Object represents an entry of a listing.
type Object struct {
	// Key is the object key
	Key string

	// LastModified is when the object was last modified
	LastModified time.Time

	// Size is the object size in bytes
	Size int64

	// ETag is the entity tag for the object
	ETag *string

	StorageClass *types.ObjectStorageClass

	// ChecksumAlgorithms lists the algorithms used to checksum the object
	ChecksumAlgorithms []types.ChecksumAlgorithm

	ChecksumType *types.ChecksumType

	// Owner is only present when the listing asked for it
	Owner *Owner
}

// CommonPrefix is a rolled-up key prefix produced by a delimiter.
type CommonPrefix struct {
	Prefix string
}

// ListResult contains one page of a listing.
type ListResult struct {
	// Name is the bucket name
	Name string

	Prefix     *string
	Delimiter  *string
	StartAfter *string
	MaxKeys    *int64
	KeyCount   *int64

	// IsTruncated indicates more results are available
	IsTruncated bool

	ContinuationToken     *string
	NextContinuationToken *string

	Objects        []Object
	CommonPrefixes []CommonPrefix
}

// ObjectResult is one element of a streamed listing. Err is set on the last
// element when the listing stopped early.
type ObjectResult struct {
	Object Object
	Err    error
}

// DeleteError records a key that could not be deleted.
type DeleteError struct {
	Key string
	Err error
}

// DeleteManyResult contains the result of a batch delete.
type DeleteManyResult struct {
	// Deleted contains the keys that were deleted
	Deleted []string

	// Errors contains keys that failed, in input order
	Errors []DeleteError

	// Duration is how long the operation took
	Duration time.Duration
}

// DownloadResult contains the result of a download to a file.
type DownloadResult struct {
	// Key is the object key that was downloaded
	Key string

	// Path is the file that was written
	Path string

	// Size is the number of bytes written
	Size int64

	// ETag is the entity tag of the downloaded object
	ETag *string

	// Duration is how long the download took
	Duration time.Duration
}

// ClientConfig holds configuration for the client. It is fixed once the
// client is constructed.
type ClientConfig struct {
	Region   string
	Endpoint string

	// ForcePathStyle addresses buckets as /bucket/key instead of bucket.host/key
	ForcePathStyle bool

	// Credentials overrides the default credential chain
	Credentials aws.CredentialsProvider

	CustomAWSConfig *aws.Config

	// ThroughputTargetGbps bounds the engine's aggregate transfer rate
	ThroughputTargetGbps float64

	// PartSize is the transfer part size in bytes
	PartSize int64

	// Concurrency bounds batch operations such as DeleteMany
	Concurrency int

	// MaxConcurrentRequests bounds in-flight requests in the engine
	MaxConcurrentRequests int

	// MaxRetries is the number of attempts per request, including the first
	MaxRetries int

	Timeout          time.Duration
	CustomHTTPClient *http.Client
	Logger           *slog.Logger

	// MetricsRegisterer receives the client's collectors when set
	MetricsRegisterer prometheus.Registerer

	// Filesystem is used by file operations; defaults to the OS filesystem
	Filesystem billy.Filesystem

	// Engine replaces the built-in HTTP engine. The client closes it on Close.
	Engine engine.Engine
}

// CopyOptionConfig holds configuration for copy operations.
type CopyOptionConfig struct {
	SourceVersionID   *string
	Metadata          map[string]string
	ReplaceMetadata   bool
	StorageClass      types.StorageClass
	ChecksumAlgorithm types.ChecksumAlgorithm
	IfMatch           *string
}

// GetOptionConfig holds configuration for get operations.
type GetOptionConfig struct {
	// Range is an HTTP range such as "bytes=0-99"
	Range       *string
	IfMatch     *string
	IfNoneMatch *string
	VersionID   *string
}

// ListOptionConfig holds configuration for list operations.
type ListOptionConfig struct {
	Prefix            *string
	Delimiter         *string
	MaxKeys           *int32
	StartAfter        *string
	ContinuationToken *string
	FetchOwner        bool
}

// DeleteOptionConfig holds configuration for delete operations.
type DeleteOptionConfig struct {
	VersionID *string
}

type (
	// Option is a functional option for configuring the client.
	Option func(*ClientConfig)
	// CopyOption is a functional option for configuring copy operations.
	CopyOption func(*CopyOptionConfig)
	// GetOption is a functional option for configuring get operations.
	GetOption func(*GetOptionConfig)
	// ListOption is a functional option for configuring list operations.
	ListOption func(*ListOptionConfig)
	// DeleteOption is a functional option for configuring delete operations.
	DeleteOption func(*DeleteOptionConfig)
)
