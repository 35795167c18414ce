package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/engine"
)

// ErrNoScript is reported when a submission arrives and no script is queued.
var ErrNoScript = errors.New("testutil: no script queued")

// ErrEngineClosed is reported for submissions made after Close.
var ErrEngineClosed = errors.New("testutil: engine closed")

// StepKind identifies which callback a step drives.
type StepKind int

const (
	StepHeaders StepKind = iota
	StepBody
	StepComplete
)

// Step is one callback invocation.
type Step struct {
	Kind    StepKind
	Status  int
	Headers engine.Headers
	Chunk   []byte
	Outcome engine.Outcome
}

// Script is the ordered list of callbacks delivered for one submission.
type Script []Step

// ScriptedEngine is an engine.Engine that replays scripts instead of talking
// to a network. Scripts are consumed in submission order. Callbacks run on a
// goroutine owned by the engine, one per submission, in script order.
type ScriptedEngine struct {
	mu       sync.Mutex
	scripts  []Script
	respond  func(*engine.Request) Script
	requests []*engine.Request
	closed   bool
	wg       sync.WaitGroup
}

// NewScriptedEngine returns an engine that replays scripts in order.
func NewScriptedEngine(scripts ...Script) *ScriptedEngine {
	return &ScriptedEngine{scripts: scripts}
}

// NewRespondingEngine returns an engine that builds a script for each request.
func NewRespondingEngine(fn func(*engine.Request) Script) *ScriptedEngine {
	return &ScriptedEngine{respond: fn}
}

// Enqueue appends scripts for later submissions.
func (e *ScriptedEngine) Enqueue(scripts ...Script) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scripts = append(e.scripts, scripts...)
}

// Requests returns every request submitted so far.
func (e *ScriptedEngine) Requests() []*engine.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*engine.Request, len(e.requests))
	copy(out, e.requests)
	return out
}

// LastRequest returns the most recent request, or nil.
func (e *ScriptedEngine) LastRequest() *engine.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.requests) == 0 {
		return nil
	}
	return e.requests[len(e.requests)-1]
}

// Submit implements engine.Engine.
func (e *ScriptedEngine) Submit(ctx context.Context, req *engine.Request, cb engine.Callbacks) engine.Handle {
	h := engine.NewDoneHandle()

	e.mu.Lock()
	e.requests = append(e.requests, req)
	var script Script
	switch {
	case e.closed:
		script = Failure(ErrEngineClosed)
	case e.respond != nil:
		script = e.respond(req)
	case len(e.scripts) > 0:
		script = e.scripts[0]
		e.scripts = e.scripts[1:]
	default:
		script = Failure(ErrNoScript)
	}
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		defer h.Finish()
		e.run(ctx, script, cb)
	}()
	return h
}

func (e *ScriptedEngine) run(ctx context.Context, script Script, cb engine.Callbacks) {
	for _, step := range script {
		if err := ctx.Err(); err != nil {
			cb.OnComplete(engine.Outcome{Err: err})
			return
		}
		switch step.Kind {
		case StepHeaders:
			cb.OnHeaders(step.Status, step.Headers.Clone())
		case StepBody:
			cb.OnBody(step.Chunk)
		case StepComplete:
			cb.OnComplete(step.Outcome)
		}
	}
}

// Close implements engine.Engine. It waits for running scripts to finish.
func (e *ScriptedEngine) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.wg.Wait()
	return nil
}
