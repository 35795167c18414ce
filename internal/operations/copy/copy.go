// Package copy builds and interprets server-side object copies.
//
// A copy is a PUT to the destination object with an x-amz-copy-source header
// naming the source. The result is read from the response headers only.
package copy

import (
	"maps"
	"net/http"
	"slices"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/engine"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/internal/bridge"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/internal/classify"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/internal/operations"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/internal/parse"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/internal/request"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/s3types"
)

// Errors lists the failures a copy recognises. A missing bucket is reported
// under 403 as well as 404 because some services answer a copy from an
// unknown source bucket with Forbidden.
var Errors = classify.Table{
	classify.FamilyNotFound: {
		"NoSuchBucket": errors.KindNoSuchBucket,
		"NoSuchKey":    errors.KindNoSuchKey,
	},
	classify.FamilyForbidden: {
		"AccessDenied":       errors.KindAccessDenied,
		"NoSuchBucket":       errors.KindNoSuchBucket,
		"InvalidObjectState": errors.KindInvalidObjectState,
	},
	classify.FamilyPreconditionFailed: {
		"PreconditionFailed": errors.KindPreconditionFailed,
	},
}

// Operation interprets copy responses.
var Operation = bridge.Operation[s3types.CopyResult]{
	Name:   "copy_object",
	Parser: bridge.HeaderParser[s3types.CopyResult](ParseHeaders),
	Errors: Errors,
}

// Input names the source and destination of a copy.
type Input struct {
	SourceBucket string
	SourceKey    string
	Bucket       string
	Key          string
	Options      s3types.CopyOptionConfig
}

// Build returns the copy request.
func Build(in Input) (*engine.Request, error) {
	if _, err := request.NewObject(http.MethodGet, in.SourceBucket, in.SourceKey).Build(); err != nil {
		if cerr, ok := err.(*errors.ConstructionError); ok {
			cerr.Field = "source " + cerr.Field
		}
		return nil, err
	}

	b := request.NewObject(http.MethodPut, in.Bucket, in.Key).
		Header("x-amz-copy-source", request.CopySource(in.SourceBucket, in.SourceKey, in.Options.SourceVersionID)).
		OptionalHeader("x-amz-copy-source-if-match", in.Options.IfMatch)

	if in.Options.ReplaceMetadata {
		if err := validation.ValidateMetadata(in.Options.Metadata); err != nil {
			return nil, &errors.ConstructionError{Field: "metadata", Reason: "metadata rejected", Err: err}
		}
		b.Header("x-amz-metadata-directive", string(types.MetadataDirectiveReplace))
		for _, k := range slices.Sorted(maps.Keys(in.Options.Metadata)) {
			b.Header("x-amz-meta-"+k, in.Options.Metadata[k])
		}
	}
	if in.Options.StorageClass != "" {
		b.Header("x-amz-storage-class", string(in.Options.StorageClass))
	}
	if in.Options.ChecksumAlgorithm != "" {
		b.Header("x-amz-checksum-algorithm", string(in.Options.ChecksumAlgorithm))
	}
	return b.Build()
}

// ParseHeaders reads the copy result from the response headers. Every field is
// optional; headers that are present must decode.
func ParseHeaders(h engine.Headers) (s3types.CopyResult, error) {
	var r s3types.CopyResult
	var err error

	if r.ETag, err = parse.OptionalHeader(h, "ETag"); err != nil {
		return s3types.CopyResult{}, err
	}
	if r.LastModified, err = parse.OptionalHeaderTime(h, "Last-Modified"); err != nil {
		return s3types.CopyResult{}, err
	}
	if r.Checksums, err = operations.ChecksumHeaders(h); err != nil {
		return s3types.CopyResult{}, err
	}
	if r.VersionID, err = parse.OptionalHeader(h, "x-amz-version-id"); err != nil {
		return s3types.CopyResult{}, err
	}
	if r.SourceVersionID, err = parse.OptionalHeader(h, "x-amz-copy-source-version-id"); err != nil {
		return s3types.CopyResult{}, err
	}
	if r.ServerSideEncryption, err = parse.OptionalHeader(h, "x-amz-server-side-encryption"); err != nil {
		return s3types.CopyResult{}, err
	}
	return r, nil
}
