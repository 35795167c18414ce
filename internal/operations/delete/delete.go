// Package delete builds and interprets single-object deletes.
package delete

import (
	"net/http"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/engine"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/internal/bridge"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/internal/classify"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/internal/parse"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/internal/request"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/s3types"
)

// Errors lists the failures a delete recognises. Deleting a key that does not
// exist succeeds, so NoSuchKey is not listed.
var Errors = classify.Table{
	classify.FamilyNotFound:  {"NoSuchBucket": errors.KindNoSuchBucket},
	classify.FamilyForbidden: {"AccessDenied": errors.KindAccessDenied},
}

// Operation interprets delete responses.
var Operation = bridge.Operation[s3types.DeleteResult]{
	Name:   "delete_object",
	Parser: bridge.HeaderParser[s3types.DeleteResult](ParseHeaders),
	Errors: Errors,
}

// Build returns the delete request.
func Build(bucket, key string, opts s3types.DeleteOptionConfig) (*engine.Request, error) {
	return request.NewObject(http.MethodDelete, bucket, key).
		OptionalQuery("versionId", opts.VersionID).
		Build()
}

// ParseHeaders reads the delete result from the response headers.
func ParseHeaders(h engine.Headers) (s3types.DeleteResult, error) {
	marker, err := parse.OptionalHeaderBool(h, "x-amz-delete-marker")
	if err != nil {
		return s3types.DeleteResult{}, err
	}
	version, err := parse.OptionalHeader(h, "x-amz-version-id")
	if err != nil {
		return s3types.DeleteResult{}, err
	}
	return s3types.DeleteResult{DeleteMarker: marker, VersionID: version}, nil
}
