// Package testutil provides a builder for scripted engine responses.
package testutil

import (
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/engine"
)

// ResponseBuilder provides a fluent interface for building response scripts.
type ResponseBuilder struct {
	status    int
	headers   engine.Headers
	body      []byte
	chunkSize int
	engineErr error
}

// Respond starts a response with the given status.
func Respond(status int) *ResponseBuilder {
	return &ResponseBuilder{status: status, chunkSize: 7}
}

// WithHeader adds a response header.
func (b *ResponseBuilder) WithHeader(name, value string) *ResponseBuilder {
	b.headers = append(b.headers, engine.Header{Name: name, Value: value})
	return b
}

// WithBody sets the response body.
func (b *ResponseBuilder) WithBody(body string) *ResponseBuilder {
	b.body = []byte(body)
	return b
}

// WithChunkSize sets how the body is split across OnBody calls.
func (b *ResponseBuilder) WithChunkSize(n int) *ResponseBuilder {
	if n > 0 {
		b.chunkSize = n
	}
	return b
}

// WithEngineError attaches an engine-level error to the completion.
func (b *ResponseBuilder) WithEngineError(err error) *ResponseBuilder {
	b.engineErr = err
	return b
}

// Script returns the callbacks for the response. The body is delivered in
// chunks; failure responses also carry it as the outcome's error body.
func (b *ResponseBuilder) Script() Script {
	s := Script{{Kind: StepHeaders, Status: b.status, Headers: b.headers}}
	for rest := b.body; len(rest) > 0; {
		n := b.chunkSize
		if n > len(rest) {
			n = len(rest)
		}
		chunk := make([]byte, n)
		copy(chunk, rest[:n])
		s = append(s, Step{Kind: StepBody, Chunk: chunk})
		rest = rest[n:]
	}
	out := engine.Outcome{StatusCode: b.status, Headers: b.headers, Err: b.engineErr}
	if b.status < 200 || b.status > 299 {
		out.ErrorBody = b.body
	}
	return append(s, Step{Kind: StepComplete, Outcome: out})
}

// Failure returns a script that completes with an engine error and no response.
func Failure(err error) Script {
	return Script{{Kind: StepComplete, Outcome: engine.Outcome{Err: err}}}
}
