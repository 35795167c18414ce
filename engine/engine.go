// Package engine defines the contract between the operation layer and the
// transport engine that performs HTTP exchanges.
//
// An Engine accepts a Request and reports progress through Callbacks. The
// callbacks may run on goroutines owned by the engine, never on the caller's.
// For every Submit, OnComplete fires exactly once, including when the exchange
// fails before any response arrives or the context is cancelled.
package engine

import (
	"context"
	"strings"
)

// Header is a single response or request header.
type Header struct {
	Name  string
	Value string
}

// Headers is an ordered header list. Duplicate names are allowed and lookups
// are case-insensitive.
type Headers []Header

// Get returns the first value for name.
func (h Headers) Get(name string) (string, bool) {
	for _, hdr := range h {
		if strings.EqualFold(hdr.Name, name) {
			return hdr.Value, true
		}
	}
	return "", false
}

// Values returns every value for name in order.
func (h Headers) Values(name string) []string {
	var out []string
	for _, hdr := range h {
		if strings.EqualFold(hdr.Name, name) {
			out = append(out, hdr.Value)
		}
	}
	return out
}

// Clone returns a copy that does not share storage with h.
func (h Headers) Clone() Headers {
	if h == nil {
		return nil
	}
	out := make(Headers, len(h))
	copy(out, h)
	return out
}

// Request describes one HTTP exchange. It is never mutated after Submit.
type Request struct {
	Method string

	// Path is the escaped request path, optionally followed by '?' and an encoded query
	Path string

	Headers Headers

	// Body is nil for requests without a payload
	Body []byte
}

// Outcome is reported once per submission when the exchange finishes.
type Outcome struct {
	// StatusCode is the final HTTP status, 0 when no response was received
	StatusCode int

	// ErrorBody is the body of a failure response as seen by the engine, nil when absent
	ErrorBody []byte

	// Headers are the headers of the final response
	Headers Headers

	// Err is set when the exchange failed at the transport level
	Err error
}

// Callbacks receive the progress of one submission.
//
// OnHeaders fires at most once, before any OnBody. OnBody may fire any number
// of times; the chunk is only valid for the duration of the call. OnComplete
// fires exactly once and is always last.
type Callbacks struct {
	OnHeaders  func(statusCode int, headers Headers)
	OnBody     func(chunk []byte)
	OnComplete func(outcome Outcome)
}

// Handle refers to an in-flight submission.
type Handle interface {
	// Done is closed after OnComplete has returned.
	Done() <-chan struct{}
}

// Engine performs HTTP exchanges on behalf of operations.
type Engine interface {
	// Submit starts the exchange and returns immediately. Failures are reported
	// through OnComplete, never by panicking or blocking.
	Submit(ctx context.Context, req *Request, cb Callbacks) Handle

	// Close releases resources held by the engine. Submissions made after
	// Close complete with an error.
	Close() error
}

// DoneHandle is a Handle backed by a channel the engine closes after OnComplete.
type DoneHandle struct {
	done chan struct{}
}

// NewDoneHandle returns an open handle.
func NewDoneHandle() *DoneHandle {
	return &DoneHandle{done: make(chan struct{})}
}

// Done implements Handle.
func (h *DoneHandle) Done() <-chan struct{} { return h.done }

// Finish closes the handle. It must be called exactly once.
func (h *DoneHandle) Finish() { close(h.done) }

type operationIDKey struct{}

// WithOperationID returns a context carrying the ID of the operation a
// submission belongs to. Engines may forward it to the service.
func WithOperationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, operationIDKey{}, id)
}

// OperationID returns the operation ID stored by WithOperationID.
func OperationID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(operationIDKey{}).(string)
	return id, ok && id != ""
}
