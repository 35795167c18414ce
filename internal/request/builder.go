// Package request builds engine requests from operation arguments.
package request

import (
	"net/url"
	"strings"

	"github.com/aws/smithy-go/encoding/httpbinding"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/engine"
	s3errors "github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/internal/validation"
)

// Builder accumulates the parts of a request. The first invalid input is
// remembered and reported by Build.
type Builder struct {
	method  string
	bucket  string
	key     string
	headers engine.Headers
	query   url.Values
	body    []byte
	err     error
}

// New starts a request against bucket and, when key is non-empty, an object
// within it. Paths are path-style: /bucket/key.
func New(method, bucket, key string) *Builder {
	b := &Builder{method: method, bucket: bucket, key: key}
	if err := validation.ValidateBucketName(bucket); err != nil {
		b.fail("bucket", "bucket name rejected", err)
	} else if key != "" {
		if err := validation.ValidateObjectKey(key); err != nil {
			b.fail("key", "object key rejected", err)
		}
	}
	return b
}

// NewObject is New for operations that require a key.
func NewObject(method, bucket, key string) *Builder {
	b := New(method, bucket, key)
	if key == "" {
		b.fail("key", "object key is required", s3errors.ErrInvalidObjectKey)
	}
	return b
}

func (b *Builder) fail(field, reason string, err error) {
	if b.err == nil {
		b.err = &s3errors.ConstructionError{Field: field, Reason: reason, Err: err}
	}
}

// Header appends a header.
func (b *Builder) Header(name, value string) *Builder {
	if err := validation.ValidateHeaderValue(name, value); err != nil {
		b.fail("header", name, err)
		return b
	}
	b.headers = append(b.headers, engine.Header{Name: name, Value: value})
	return b
}

// OptionalHeader appends a header when value is non-nil.
func (b *Builder) OptionalHeader(name string, value *string) *Builder {
	if value == nil {
		return b
	}
	return b.Header(name, *value)
}

// Query sets a query parameter. An empty value is still sent, as in ?list-type=.
func (b *Builder) Query(name, value string) *Builder {
	if b.query == nil {
		b.query = url.Values{}
	}
	b.query.Set(name, value)
	return b
}

// OptionalQuery sets a query parameter when value is non-nil.
func (b *Builder) OptionalQuery(name string, value *string) *Builder {
	if value == nil {
		return b
	}
	return b.Query(name, *value)
}

// Body sets the request payload.
func (b *Builder) Body(body []byte) *Builder {
	b.body = body
	return b
}

// Build returns the request or the first construction error.
func (b *Builder) Build() (*engine.Request, error) {
	if b.err != nil {
		return nil, b.err
	}
	path := "/" + b.bucket
	if b.key != "" {
		path += "/" + httpbinding.EscapePath(b.key, false)
	}
	if len(b.query) > 0 {
		path += "?" + EncodeQuery(b.query)
	}
	return &engine.Request{
		Method:  b.method,
		Path:    path,
		Headers: b.headers,
		Body:    b.body,
	}, nil
}

// EncodeQuery encodes q in sorted key order with %20 for spaces.
func EncodeQuery(q url.Values) string {
	return strings.ReplaceAll(q.Encode(), "+", "%20")
}

// CopySource returns the x-amz-copy-source value for an object.
func CopySource(bucket, key string, versionID *string) string {
	src := "/" + bucket + "/" + httpbinding.EscapePath(key, false)
	if versionID != nil {
		src += "?versionId=" + url.QueryEscape(*versionID)
	}
	return src
}
