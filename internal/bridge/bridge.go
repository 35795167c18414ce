// Package bridge drives a single request through a callback-based engine and
// hands its outcome to one waiting caller.
//
// Each submission owns a small state machine fed by the engine callbacks and a
// oneshot that is written only when the engine reports completion. The result
// is either the parsed value, a domain error chosen by the operation's
// classifier, or a service error describing the transport failure.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/engine"
	s3errors "github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/internal/classify"
)

var (
	// ErrProtocolViolation is reported when an engine fires callbacks out of order.
	ErrProtocolViolation = errors.New("engine protocol violation")

	// ErrAlreadyWaited is returned by a second Wait on the same call.
	ErrAlreadyWaited = errors.New("call result already consumed")
)

// Parser decodes a successful response. It is implemented only by
// HeaderParser and BodyParser, so an operation has exactly one result source.
type Parser[T any] interface {
	parser()
}

// HeaderParser builds the result from the response headers. It runs as soon
// as the headers of a successful response arrive.
type HeaderParser[T any] func(headers engine.Headers) (T, error)

func (HeaderParser[T]) parser() {}

// BodyParser builds the result from the headers and the complete body. It
// runs once the engine reports completion.
type BodyParser[T any] func(headers engine.Headers, body []byte) (T, error)

func (BodyParser[T]) parser() {}

// Operation describes how to interpret the responses of one request type.
type Operation[T any] struct {
	// Name is used in logs, e.g. "copy_object"
	Name string

	Parser Parser[T]

	// Errors maps failure responses onto domain errors
	Errors classify.Table
}

func (op Operation[T]) wantsBody() bool {
	_, ok := op.Parser.(BodyParser[T])
	return ok
}

// Option configures a submission.
type Option func(*options)

type options struct {
	logger *slog.Logger
	id     string
}

// WithLogger sets the logger used for the call.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithOperationID overrides the generated operation ID.
func WithOperationID(id string) Option {
	return func(o *options) {
		if id != "" {
			o.id = id
		}
	}
}

type result[T any] struct {
	value T
	err   error
}

// Call is an in-flight submission.
type Call[T any] struct {
	id     string
	rx     *Receiver[result[T]]
	handle engine.Handle
}

// ID returns the operation ID assigned to the call.
func (c *Call[T]) ID() string { return c.id }

// Done is closed once the result is available.
func (c *Call[T]) Done() <-chan struct{} { return c.rx.Done() }

// Settled is closed once the engine has returned from the final callback.
func (c *Call[T]) Settled() <-chan struct{} { return c.handle.Done() }

// Wait blocks until the engine reports completion and returns the outcome.
// It may be called once; later calls return ErrAlreadyWaited.
func (c *Call[T]) Wait() (T, error) {
	r, ok := c.rx.Recv()
	if !ok {
		var zero T
		return zero, ErrAlreadyWaited
	}
	return r.value, r.err
}

// Submit hands req to eng and returns immediately.
func Submit[T any](ctx context.Context, eng engine.Engine, req *engine.Request, op Operation[T], opts ...Option) *Call[T] {
	o := options{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		id:     uuid.NewString(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	tx, rx := NewOneshot[result[T]]()
	st := &callState[T]{
		op:     op,
		tx:     tx,
		logger: o.logger.With("op", op.Name, "operation_id", o.id),
	}

	st.logger.Debug("submitting request", "method", req.Method, "path", req.Path)
	handle := eng.Submit(engine.WithOperationID(ctx, o.id), req, engine.Callbacks{
		OnHeaders:  st.onHeaders,
		OnBody:     st.onBody,
		OnComplete: st.onComplete,
	})

	return &Call[T]{id: o.id, rx: rx, handle: handle}
}

// Do submits req and waits for its outcome.
func Do[T any](ctx context.Context, eng engine.Engine, req *engine.Request, op Operation[T], opts ...Option) (T, error) {
	return Submit(ctx, eng, req, op, opts...).Wait()
}

type callState[T any] struct {
	op     Operation[T]
	tx     *Sender[result[T]]
	logger *slog.Logger

	mu        sync.Mutex
	state     State
	status    int
	headers   engine.Headers
	body      []byte
	parsed    *result[T]
	violation error
}

func isSuccess(status int) bool { return status >= 200 && status <= 299 }

// advance applies ev and records a violation when it is not allowed.
// Callers must hold mu.
func (s *callState[T]) advance(ev event) bool {
	next, ok := s.state.next(ev)
	if !ok {
		if s.violation == nil {
			s.violation = fmt.Errorf("%w: %s callback in state %s", ErrProtocolViolation, ev, s.state)
		}
		s.logger.Warn("unexpected engine callback", "event", ev.String(), "state", s.state.String())
		return false
	}
	s.state = next
	return true
}

func (s *callState[T]) onHeaders(status int, headers engine.Headers) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.advance(eventHeaders) {
		return
	}
	s.status = status
	s.headers = headers.Clone()

	if hp, ok := s.op.Parser.(HeaderParser[T]); ok && isSuccess(status) {
		v, err := hp(s.headers)
		s.parsed = &result[T]{value: v, err: err}
	}
}

func (s *callState[T]) onBody(chunk []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.advance(eventBody) {
		return
	}
	if !isSuccess(s.status) || s.op.wantsBody() {
		s.body = append(s.body, chunk...)
	}
}

func (s *callState[T]) onComplete(out engine.Outcome) {
	s.mu.Lock()
	if !s.advance(eventComplete) {
		s.mu.Unlock()
		return
	}
	r := s.finish(out)
	s.mu.Unlock()

	if r.err != nil {
		s.logger.Debug("request failed", "status", out.StatusCode, "error", r.err)
	} else {
		s.logger.Debug("request completed", "status", out.StatusCode)
	}
	s.tx.Send(r)
}

// finish derives the single result of the call. Callers must hold mu.
func (s *callState[T]) finish(out engine.Outcome) result[T] {
	status := out.StatusCode
	if status == 0 {
		status = s.status
	}
	headers := s.headers
	if headers == nil {
		headers = out.Headers
	}

	if s.violation != nil {
		return result[T]{err: &s3errors.ServiceError{StatusCode: status, Err: s.violation}}
	}

	if status != 0 && !isSuccess(status) {
		body := out.ErrorBody
		if body == nil {
			body = s.body
		}
		c := s.op.Errors.Classify(status, body)
		if c.Kind != s3errors.KindUnclassified {
			return result[T]{err: c.Error(status, body)}
		}
		return result[T]{err: &s3errors.ServiceError{
			StatusCode: status,
			Body:       body,
			Code:       c.Envelope.Code,
			Message:    c.Envelope.Message,
			Err:        out.Err,
		}}
	}

	if out.Err != nil || status == 0 {
		err := out.Err
		if err == nil {
			err = fmt.Errorf("%w: completed without a response", ErrProtocolViolation)
		}
		return result[T]{err: &s3errors.ServiceError{StatusCode: status, Err: err}}
	}

	var v T
	var err error
	switch p := s.op.Parser.(type) {
	case HeaderParser[T]:
		if s.parsed != nil {
			v, err = s.parsed.value, s.parsed.err
		} else {
			v, err = p(headers)
		}
	case BodyParser[T]:
		v, err = p(headers, s.body)
	default:
		err = fmt.Errorf("operation %s has no parser", s.op.Name)
	}
	if err != nil {
		var zero T
		return result[T]{value: zero, err: &s3errors.InternalError{Err: err}}
	}
	return result[T]{value: v}
}
