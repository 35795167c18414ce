package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/smithy-go"
)

// OperationError is the closed set of failures an operation can produce.
// The only implementations are *ConstructionError, *DomainError,
// *ServiceError and *InternalError.
type OperationError interface {
	error

	// Category reports the broad class of the failure.
	Category() Category

	operationError()
}

// CategoryOf returns the category of the first OperationError in err's chain,
// or CategoryUnknown when there is none.
func CategoryOf(err error) Category {
	var opErr OperationError
	if errors.As(err, &opErr) {
		return opErr.Category()
	}
	return CategoryUnknown
}

// ConstructionError reports input that cannot be turned into a request.
// It is returned before anything is submitted.
type ConstructionError struct {
	// Field names the offending input (e.g. "bucket", "key", "header")
	Field string

	// Reason describes why the input was rejected
	Reason string

	// Err is the underlying validation failure, if any
	Err error
}

func (e *ConstructionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ConstructionError) Unwrap() error { return e.Err }

// Is reports true for ErrInvalidInput.
func (e *ConstructionError) Is(target error) bool { return target == ErrInvalidInput }

// Category implements OperationError.
func (e *ConstructionError) Category() Category { return CategoryInvalidInput }

func (*ConstructionError) operationError() {}

// DomainKind enumerates the service failures the client recognises.
type DomainKind int

const (
	// KindUnclassified is the fallback for any failure that does not match a
	// known kind. It is never carried by a DomainError; failures that land here
	// are reported as *ServiceError.
	KindUnclassified DomainKind = iota
	KindNoSuchBucket
	KindNoSuchKey
	KindAccessDenied
	KindInvalidObjectState
	KindPreconditionFailed
	KindInvalidRange
)

var domainKindNames = map[DomainKind]string{
	KindUnclassified:       "Unclassified",
	KindNoSuchBucket:       "NoSuchBucket",
	KindNoSuchKey:          "NoSuchKey",
	KindAccessDenied:       "AccessDenied",
	KindInvalidObjectState: "InvalidObjectState",
	KindPreconditionFailed: "PreconditionFailed",
	KindInvalidRange:       "InvalidRange",
}

func (k DomainKind) String() string {
	if name, ok := domainKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("DomainKind(%d)", int(k))
}

// sentinel maps a kind onto the package sentinel it satisfies.
func (k DomainKind) sentinel() error {
	switch k {
	case KindNoSuchBucket:
		return ErrBucketNotFound
	case KindNoSuchKey:
		return ErrObjectNotFound
	case KindAccessDenied:
		return ErrAccessDenied
	case KindInvalidObjectState:
		return ErrInvalidObjectState
	case KindPreconditionFailed:
		return ErrPreconditionFailed
	case KindInvalidRange:
		return ErrInvalidRange
	default:
		return nil
	}
}

// DomainError is a recognised, operation-specific failure reported by the service.
type DomainError struct {
	Kind       DomainKind
	Code       string
	Message    string
	RequestID  string
	StatusCode int
}

func (e *DomainError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s: %s (status %d)", e.Kind, msg, e.StatusCode)
}

// Is maps the kind onto the package sentinels, so errors.Is(err, ErrBucketNotFound)
// holds for a NoSuchBucket failure.
func (e *DomainError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && s == target
}

// Category implements OperationError.
func (e *DomainError) Category() Category { return CategoryDomain }

// ErrorCode implements smithy.APIError.
func (e *DomainError) ErrorCode() string {
	if e.Code != "" {
		return e.Code
	}
	return e.Kind.String()
}

// ErrorMessage implements smithy.APIError.
func (e *DomainError) ErrorMessage() string { return e.Message }

// ErrorFault implements smithy.APIError.
func (e *DomainError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

func (*DomainError) operationError() {}

// ServiceError is the fallback for failures that are not recognised domain
// errors: engine-level failures and unclassified service responses.
type ServiceError struct {
	// StatusCode is the HTTP status, or 0 when no response was received
	StatusCode int

	// Body is the raw error body, nil when absent
	Body []byte

	// Code and Message are taken from the error envelope when it could be read
	Code    string
	Message string

	// Err is the engine-level failure, nil when the exchange completed
	Err error
}

func (e *ServiceError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode == 0:
		return fmt.Sprintf("transport failure: %v", e.Err)
	case e.Err != nil:
		return fmt.Sprintf("transport failure (status %d): %v", e.StatusCode, e.Err)
	case e.Code != "":
		return fmt.Sprintf("service error %s (status %d): %s", e.Code, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("service error (status %d)", e.StatusCode)
	}
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Is reports status-derived sentinels.
func (e *ServiceError) Is(target error) bool {
	switch target {
	case ErrAccessDenied:
		return e.StatusCode == http.StatusForbidden
	case ErrTooManyRequests:
		return e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusServiceUnavailable
	}
	return false
}

// Category implements OperationError.
func (e *ServiceError) Category() Category { return CategoryNetwork }

// ErrorCode implements smithy.APIError.
func (e *ServiceError) ErrorCode() string { return e.Code }

// ErrorMessage implements smithy.APIError.
func (e *ServiceError) ErrorMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.StatusCode)
}

// ErrorFault implements smithy.APIError.
func (e *ServiceError) ErrorFault() smithy.ErrorFault {
	switch {
	case e.StatusCode >= 500:
		return smithy.FaultServer
	case e.StatusCode >= 400:
		return smithy.FaultClient
	default:
		return smithy.FaultUnknown
	}
}

func (*ServiceError) operationError() {}

// ParseErrorKind enumerates the ways a successful response can fail to parse.
type ParseErrorKind int

const (
	// MalformedBody means the body is not well-formed or an element has no usable text.
	MalformedBody ParseErrorKind = iota
	// MissingField means a required header or element is absent.
	MissingField
	// InvalidFieldValue means a field is present but does not convert to its type.
	InvalidFieldValue
	// HeaderProtocol means a header value is not valid UTF-8 or contains line breaks.
	HeaderProtocol
)

func (k ParseErrorKind) String() string {
	switch k {
	case MalformedBody:
		return "malformed body"
	case MissingField:
		return "missing field"
	case InvalidFieldValue:
		return "invalid field value"
	case HeaderProtocol:
		return "header protocol violation"
	default:
		return fmt.Sprintf("ParseErrorKind(%d)", int(k))
	}
}

// ParseError describes why a response could not be turned into a result.
type ParseError struct {
	Kind ParseErrorKind

	// Field is the header or element name involved, empty for whole-body failures
	Field string

	// Raw holds the offending raw text when available
	Raw string

	Err error
}

func (e *ParseError) Error() string {
	msg := e.Kind.String()
	if e.Field != "" {
		msg = fmt.Sprintf("%s %q", msg, e.Field)
	}
	if e.Raw != "" {
		msg = fmt.Sprintf("%s (raw %q)", msg, e.Raw)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// InternalError reports a successful response that could not be interpreted.
type InternalError struct {
	Err error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error: %v", e.Err)
}

func (e *InternalError) Unwrap() error { return e.Err }

// Is reports true for ErrMalformedResponse.
func (e *InternalError) Is(target error) bool { return target == ErrMalformedResponse }

// Category implements OperationError.
func (e *InternalError) Category() Category { return CategoryInternal }

func (*InternalError) operationError() {}

var (
	_ OperationError  = (*ConstructionError)(nil)
	_ OperationError  = (*DomainError)(nil)
	_ OperationError  = (*ServiceError)(nil)
	_ OperationError  = (*InternalError)(nil)
	_ smithy.APIError = (*DomainError)(nil)
	_ smithy.APIError = (*ServiceError)(nil)
)
