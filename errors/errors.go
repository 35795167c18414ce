// Package errors provides error types and handling for object storage operations.
//
// Every failure returned by the client is wrapped in an *Error carrying the
// operation, bucket and key. The wrapped value is one of a closed set of
// operation errors (see OperationError) and always answers errors.Is against
// the sentinels declared here.
package errors

import (
	"errors"
	"fmt"
)

// Error is returned by every client operation. It names the operation and the
// object it was acting on and wraps the failure that stopped it.
type Error struct {
	// Op is the client method that failed, e.g. "getObject" or "move"
	Op string

	// Bucket is empty for operations that are not bucket scoped
	Bucket string

	// Key is empty for bucket-level operations
	Key string

	Err error
}

// subject describes the resource the operation was acting on.
func (e *Error) subject() string {
	switch {
	case e.Bucket != "" && e.Key != "":
		return " " + e.Bucket + "/" + e.Key
	case e.Bucket != "":
		return " bucket " + e.Bucket
	case e.Key != "":
		return " object " + e.Key
	default:
		return ""
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("s3bridge.%s%s: %v", e.Op, e.subject(), e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithBucket sets the bucket and returns e.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithKey sets the object key and returns e.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithMessage prefixes the wrapped error with message. The original error
// stays reachable through errors.Is and errors.As.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError wraps err as a failure of op.
func NewError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}

// NewBucketError wraps err as a failure of op on bucket.
func NewBucketError(op, bucket string, err error) *Error {
	return NewError(op, err).WithBucket(bucket)
}

// NewObjectError wraps err as a failure of op on bucket/key.
func NewObjectError(op, bucket, key string, err error) *Error {
	return NewBucketError(op, bucket, err).WithKey(key)
}

// Sentinels matched by the operation errors. Test for them with errors.Is or
// the Is helpers below.
var (
	ErrObjectNotFound = errors.New("s3bridge: object not found")

	ErrBucketNotFound = errors.New("s3bridge: bucket not found")

	ErrAccessDenied = errors.New("s3bridge: access denied")

	// ErrInvalidInput is matched by every construction error
	ErrInvalidInput = errors.New("s3bridge: invalid input")

	ErrInvalidBucketName = errors.New("s3bridge: invalid bucket name")

	ErrInvalidObjectKey = errors.New("s3bridge: invalid object key")

	// ErrInvalidObjectState indicates the object is archived and not readable in place
	ErrInvalidObjectState = errors.New("s3bridge: invalid object state")

	// ErrPreconditionFailed indicates a conditional request did not match
	ErrPreconditionFailed = errors.New("s3bridge: precondition failed")

	ErrInvalidRange = errors.New("s3bridge: invalid range")

	// ErrTooManyRequests is matched by unclassified throttling responses
	ErrTooManyRequests = errors.New("s3bridge: too many requests")

	// ErrMalformedResponse indicates that a successful response could not be parsed
	ErrMalformedResponse = errors.New("s3bridge: malformed response")

	// ErrClientClosed is returned by operations started after Close
	ErrClientClosed = errors.New("s3bridge: client closed")
)

// IsObjectNotFound reports whether err means the object does not exist.
func IsObjectNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}

// IsBucketNotFound reports whether err means the bucket does not exist.
func IsBucketNotFound(err error) bool {
	return errors.Is(err, ErrBucketNotFound)
}

// IsAccessDenied reports whether the service refused the request.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsInvalidInput reports whether err was caused by the caller's arguments.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsMalformedResponse reports whether a successful response could not be read.
func IsMalformedResponse(err error) bool {
	return errors.Is(err, ErrMalformedResponse)
}

// IsInvalidRange reports whether the requested range lies outside the object.
func IsInvalidRange(err error) bool {
	return errors.Is(err, ErrInvalidRange)
}
