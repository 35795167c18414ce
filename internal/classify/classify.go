// Package classify maps failed responses onto domain errors.
//
// Classification is best-effort. A body that cannot be read, a missing Code
// element or a code that is not listed for the status family all yield
// KindUnclassified; classification itself never returns an error.
package classify

import (
	"bytes"
	"net/http"

	smithyxml "github.com/aws/smithy-go/encoding/xml"

	s3errors "github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/internal/parse"
)

// Family is the coarse class of a failure status.
type Family int

const (
	FamilyOther Family = iota
	FamilyBadRequest
	FamilyForbidden
	FamilyNotFound
	FamilyConflict
	FamilyPreconditionFailed
	FamilyRangeNotSatisfiable
	FamilyServer
)

func (f Family) String() string {
	switch f {
	case FamilyBadRequest:
		return "bad-request"
	case FamilyForbidden:
		return "forbidden"
	case FamilyNotFound:
		return "not-found"
	case FamilyConflict:
		return "conflict"
	case FamilyPreconditionFailed:
		return "precondition-failed"
	case FamilyRangeNotSatisfiable:
		return "range-not-satisfiable"
	case FamilyServer:
		return "server"
	default:
		return "other"
	}
}

// FamilyOf returns the family of an HTTP status code.
func FamilyOf(status int) Family {
	switch {
	case status == http.StatusBadRequest:
		return FamilyBadRequest
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return FamilyForbidden
	case status == http.StatusNotFound:
		return FamilyNotFound
	case status == http.StatusConflict:
		return FamilyConflict
	case status == http.StatusPreconditionFailed:
		return FamilyPreconditionFailed
	case status == http.StatusRequestedRangeNotSatisfiable:
		return FamilyRangeNotSatisfiable
	case status >= 500 && status <= 599:
		return FamilyServer
	default:
		return FamilyOther
	}
}

// Envelope holds the fields read from an error body.
type Envelope struct {
	Code      string
	Message   string
	RequestID string
}

// ReadEnvelope extracts Code, Message and RequestId from an error body. Both
// the bare <Error> form and the <ErrorResponse><Error> form are accepted.
// The boolean is false when no code could be read.
func ReadEnvelope(body []byte) (Envelope, bool) {
	if len(bytes.TrimSpace(body)) == 0 {
		return Envelope{}, false
	}
	for _, unwrapped := range []bool{true, false} {
		c, err := smithyxml.GetErrorResponseComponents(bytes.NewReader(body), unwrapped)
		if err == nil && c.Code != "" {
			return Envelope{Code: c.Code, Message: c.Message, RequestID: requestID(body)}, true
		}
	}
	return Envelope{}, false
}

// requestID reads RequestId from either envelope form. Failures yield "".
func requestID(body []byte) string {
	root, err := parse.ParseXML(body)
	if err != nil {
		return ""
	}
	for _, n := range []*parse.Node{root, root.Child("Error")} {
		if id, ok := n.Child("RequestId").Text(); ok {
			return id
		}
	}
	if id, ok := root.Child("RequestID").Text(); ok {
		return id
	}
	return ""
}

// Table lists, per status family, the error codes an operation recognises.
type Table map[Family]map[string]s3errors.DomainKind

// Result is the outcome of classification. Kind is KindUnclassified when the
// failure did not match the table; Envelope is filled whenever the body could
// be read, so unclassified failures still carry the service code.
type Result struct {
	Kind     s3errors.DomainKind
	Envelope Envelope
}

// Classify inspects a failure status and optional body. It is deterministic
// and has no side effects.
func (t Table) Classify(status int, body []byte) Result {
	env, ok := ReadEnvelope(body)
	if !ok {
		return Result{Kind: s3errors.KindUnclassified}
	}
	codes, ok := t[FamilyOf(status)]
	if !ok {
		return Result{Kind: s3errors.KindUnclassified, Envelope: env}
	}
	kind, ok := codes[env.Code]
	if !ok {
		return Result{Kind: s3errors.KindUnclassified, Envelope: env}
	}
	return Result{Kind: kind, Envelope: env}
}

// Error converts a classification into the error handed to the caller: a
// *DomainError for recognised kinds, otherwise a *ServiceError.
func (r Result) Error(status int, body []byte) error {
	if r.Kind != s3errors.KindUnclassified {
		return &s3errors.DomainError{
			Kind:       r.Kind,
			Code:       r.Envelope.Code,
			Message:    r.Envelope.Message,
			RequestID:  r.Envelope.RequestID,
			StatusCode: status,
		}
	}
	return &s3errors.ServiceError{
		StatusCode: status,
		Body:       body,
		Code:       r.Envelope.Code,
		Message:    r.Envelope.Message,
	}
}
