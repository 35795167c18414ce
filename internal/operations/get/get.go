// Package get builds and interprets whole or ranged object reads.
package get

import (
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/engine"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/internal/bridge"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/internal/classify"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/internal/operations"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/internal/parse"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/internal/request"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/s3types"
)

// Errors lists the failures a get recognises.
var Errors = classify.Table{
	classify.FamilyNotFound: {
		"NoSuchBucket": errors.KindNoSuchBucket,
		"NoSuchKey":    errors.KindNoSuchKey,
	},
	classify.FamilyForbidden: {
		"AccessDenied":       errors.KindAccessDenied,
		"InvalidObjectState": errors.KindInvalidObjectState,
	},
	classify.FamilyPreconditionFailed: {
		"PreconditionFailed": errors.KindPreconditionFailed,
	},
	classify.FamilyRangeNotSatisfiable: {
		"InvalidRange": errors.KindInvalidRange,
	},
}

// Operation interprets get responses.
var Operation = bridge.Operation[s3types.GetResult]{
	Name:   "get_object",
	Parser: bridge.BodyParser[s3types.GetResult](Parse),
	Errors: Errors,
}

// Build returns the get request.
func Build(bucket, key string, opts s3types.GetOptionConfig) (*engine.Request, error) {
	return request.NewObject(http.MethodGet, bucket, key).
		OptionalHeader("Range", opts.Range).
		OptionalHeader("If-Match", opts.IfMatch).
		OptionalHeader("If-None-Match", opts.IfNoneMatch).
		OptionalQuery("versionId", opts.VersionID).
		Build()
}

// Parse reads the object body and its describing headers. The body slice is
// owned by the caller's call and is returned without copying.
func Parse(h engine.Headers, body []byte) (s3types.GetResult, error) {
	r := s3types.GetResult{Body: body}
	if r.Body == nil {
		r.Body = []byte{}
	}

	var err error
	if r.ETag, err = parse.OptionalHeader(h, "ETag"); err != nil {
		return s3types.GetResult{}, err
	}
	if r.LastModified, err = parse.OptionalHeaderTime(h, "Last-Modified"); err != nil {
		return s3types.GetResult{}, err
	}
	if r.ContentLength, err = parse.OptionalHeaderInt64(h, "Content-Length"); err != nil {
		return s3types.GetResult{}, err
	}
	if r.ContentLength != nil && *r.ContentLength != int64(len(r.Body)) {
		return s3types.GetResult{}, &errors.ParseError{
			Kind:  errors.InvalidFieldValue,
			Field: "Content-Length",
			Raw:   fmt.Sprintf("%d", *r.ContentLength),
			Err:   fmt.Errorf("received %d body bytes", len(r.Body)),
		}
	}
	if r.ContentType, err = parse.OptionalHeader(h, "Content-Type"); err != nil {
		return s3types.GetResult{}, err
	}
	if r.ContentRange, err = parse.OptionalHeader(h, "Content-Range"); err != nil {
		return s3types.GetResult{}, err
	}
	if r.VersionID, err = parse.OptionalHeader(h, "x-amz-version-id"); err != nil {
		return s3types.GetResult{}, err
	}
	sc, err := parse.OptionalHeader(h, "x-amz-storage-class")
	if err != nil {
		return s3types.GetResult{}, err
	}
	if sc != nil {
		v := types.StorageClass(*sc)
		r.StorageClass = &v
	}
	if r.Metadata, err = parse.Metadata(h); err != nil {
		return s3types.GetResult{}, err
	}
	if r.Checksums, err = operations.ChecksumHeaders(h); err != nil {
		return s3types.GetResult{}, err
	}
	return r, nil
}
