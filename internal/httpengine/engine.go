// Package httpengine implements engine.Engine on top of net/http.
//
// Each submission runs on its own goroutine: the request is signed with
// SigV4, sent through a circuit breaker, retried on transient failures and
// its body streamed to the callbacks through pooled read buffers. The
// aggregate read rate is paced to the configured throughput target.
package httpengine

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/engine"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/internal/classify"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/internal/metrics"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/internal/pool"
)

const (
	signingName = "s3"
	userAgent   = "s3bridge"

	// maxErrorBody bounds how much of a failure response is kept.
	maxErrorBody = 1024 * 1024

	defaultMaxAttempts   = 3
	defaultBaseDelay     = 100 * time.Millisecond
	defaultMaxDelay      = 20 * time.Second
	defaultMaxConcurrent = 64
)

// ErrClosed is reported for submissions made after Close.
var ErrClosed = errors.New("httpengine: engine closed")

// errServerFault marks 5xx responses so the breaker counts them as failures.
var errServerFault = errors.New("httpengine: server fault")

// Config configures an Engine. Zero values select defaults.
type Config struct {
	// Region is used for signing and for the default endpoint
	Region string

	// Endpoint is the service base URL, e.g. http://localhost:4566
	Endpoint string

	// ForcePathStyle disables virtual-hosted bucket addressing
	ForcePathStyle bool

	// Credentials signs requests; nil sends them unsigned
	Credentials aws.CredentialsProvider

	HTTPClient *http.Client

	// Timeout bounds a whole attempt, body included; ignored with HTTPClient
	Timeout time.Duration

	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// ThroughputTargetGbps paces body reads; zero or less disables pacing
	ThroughputTargetGbps float64

	// ReadBufferSize is the size of the chunks handed to OnBody
	ReadBufferSize int

	// MaxConcurrentRequests bounds submissions exchanging data at once
	MaxConcurrentRequests int

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Engine performs signed HTTP exchanges for operations.
type Engine struct {
	base           *url.URL
	region         string
	forcePathStyle bool

	client      *http.Client
	credentials aws.CredentialsProvider
	signer      *v4.Signer
	retryer     *Retryer
	breaker     *gobreaker.CircuitBreaker[*http.Response]
	limiter     *rate.Limiter
	slots       *semaphore.Weighted
	buffers     *pool.BufferPool
	readSize    int

	logger  *slog.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// New creates an engine from cfg.
func New(cfg Config) (*Engine, error) {
	if cfg.Region == "" {
		return nil, errors.New("httpengine: region is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://s3.%s.amazonaws.com", cfg.Region)
	}
	base, err := url.Parse(strings.TrimSuffix(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("httpengine: invalid endpoint %q: %w", endpoint, err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("httpengine: invalid endpoint %q: want http(s)://host[:port]", endpoint)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.New(nil)
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = defaultMaxAttempts
	}
	baseDelay := cfg.BaseDelay
	if baseDelay == 0 {
		baseDelay = defaultBaseDelay
	}
	maxDelay := cfg.MaxDelay
	if maxDelay == 0 {
		maxDelay = defaultMaxDelay
	}
	maxConcurrent := cfg.MaxConcurrentRequests
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	readSize := cfg.ReadBufferSize
	if readSize <= 0 {
		readSize = pool.MediumBufferSize
	}
	readSize = pool.ClassFor(readSize)

	e := &Engine{
		base:           base,
		region:         cfg.Region,
		forcePathStyle: cfg.ForcePathStyle,
		client:         client,
		signer:         v4.NewSigner(),
		retryer:        NewRetryer(maxAttempts, baseDelay, maxDelay),
		slots:          semaphore.NewWeighted(int64(maxConcurrent)),
		buffers:        pool.NewBufferPool(),
		readSize:       readSize,
		logger:         logger,
		metrics:        m,
	}
	if cfg.Credentials != nil {
		e.credentials = aws.NewCredentialsCache(cfg.Credentials)
	}
	if cfg.ThroughputTargetGbps > 0 {
		bytesPerSecond := cfg.ThroughputTargetGbps * 1e9 / 8
		e.limiter = rate.NewLimiter(rate.Limit(bytesPerSecond), readSize)
	}
	e.breaker = gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "s3bridge-" + base.Host,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			m.BreakerState.Set(float64(to))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return e, nil
}

// Submit implements engine.Engine.
func (e *Engine) Submit(ctx context.Context, req *engine.Request, cb engine.Callbacks) engine.Handle {
	h := engine.NewDoneHandle()

	e.mu.Lock()
	closed := e.closed
	if !closed {
		e.inflight.Add(1)
	}
	e.mu.Unlock()

	if closed {
		go func() {
			defer h.Finish()
			cb.OnComplete(engine.Outcome{Err: ErrClosed})
		}()
		return h
	}

	go func() {
		defer e.inflight.Done()
		defer h.Finish()

		if err := e.slots.Acquire(ctx, 1); err != nil {
			cb.OnComplete(engine.Outcome{Err: err})
			return
		}
		defer e.slots.Release(1)

		cb.OnComplete(e.exchange(ctx, req, cb))
	}()
	return h
}

// Close rejects new submissions, waits for running ones and releases idle
// connections. It is safe to call more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	e.inflight.Wait()
	e.client.CloseIdleConnections()
	return nil
}

// exchange runs the attempts of one submission and returns its outcome.
// OnHeaders and OnBody are only invoked for the attempt whose response is
// delivered.
func (e *Engine) exchange(ctx context.Context, req *engine.Request, cb engine.Callbacks) engine.Outcome {
	invocationID, ok := engine.OperationID(ctx)
	if !ok {
		invocationID = uuid.NewString()
	}
	payloadHash := hashPayload(req.Body)
	maxAttempts := e.retryer.MaxAttempts()

	for attempt := 1; ; attempt++ {
		resp, err := e.breaker.Execute(func() (*http.Response, error) {
			return e.roundTrip(ctx, req, invocationID, payloadHash, attempt)
		})

		if resp == nil {
			if attempt < maxAttempts && e.retryer.IsErrorRetryable(err) {
				if e.backoff(ctx, attempt, "transport", err) == nil {
					continue
				}
			}
			return engine.Outcome{Err: err}
		}

		status := resp.StatusCode
		headers := convertHeaders(resp.Header)

		if status < 200 || status > 299 {
			body, readErr := readErrorBody(resp.Body)
			_ = resp.Body.Close()

			if readErr == nil && attempt < maxAttempts {
				env, _ := classify.ReadEnvelope(body)
				if e.retryer.IsStatusRetryable(status, env.Code) {
					reason := fmt.Sprintf("status_%d", status)
					if e.backoff(ctx, attempt, reason, nil) == nil {
						continue
					}
				}
			}

			cb.OnHeaders(status, headers)
			if len(body) > 0 {
				cb.OnBody(body)
			}
			return engine.Outcome{StatusCode: status, ErrorBody: body, Headers: headers, Err: readErr}
		}

		cb.OnHeaders(status, headers)
		err = e.stream(ctx, resp.Body, cb.OnBody)
		_ = resp.Body.Close()
		return engine.Outcome{StatusCode: status, Headers: headers, Err: err}
	}
}

// roundTrip sends one signed attempt. A 5xx response is returned together
// with errServerFault.
func (e *Engine) roundTrip(ctx context.Context, req *engine.Request, invocationID, payloadHash string, attempt int) (*http.Response, error) {
	u, err := e.resolve(req.Path)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("httpengine: building request: %w", err)
	}
	// NewRequest re-parses the URL; keep the escaping chosen by the caller.
	httpReq.URL = u
	httpReq.ContentLength = int64(len(req.Body))

	for _, h := range req.Headers {
		httpReq.Header.Add(h.Name, h.Value)
	}
	// An explicit encoding stops net/http from negotiating gzip and
	// transparently decoding the object, which would change its bytes.
	if httpReq.Header.Get("Accept-Encoding") == "" {
		httpReq.Header.Set("Accept-Encoding", "identity")
	}
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("X-Amz-Content-Sha256", payloadHash)
	httpReq.Header.Set("Amz-Sdk-Invocation-Id", invocationID)
	httpReq.Header.Set("Amz-Sdk-Request", fmt.Sprintf("attempt=%d; max=%d", attempt, e.retryer.MaxAttempts()))

	if err := e.sign(ctx, httpReq, payloadHash); err != nil {
		return nil, err
	}

	e.logger.Debug("sending request",
		"method", req.Method,
		"host", u.Host,
		"path", u.EscapedPath(),
		"attempt", attempt,
		"invocation_id", invocationID)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 500 {
		return resp, errServerFault
	}
	return resp, nil
}

func (e *Engine) sign(ctx context.Context, r *http.Request, payloadHash string) error {
	if e.credentials == nil {
		return nil
	}
	creds, err := e.credentials.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("httpengine: retrieving credentials: %w", err)
	}
	if !creds.HasKeys() {
		return nil
	}
	err = e.signer.SignHTTP(ctx, creds, r, payloadHash, signingName, e.region, time.Now().UTC(),
		func(o *v4.SignerOptions) {
			o.DisableURIPathEscaping = true
		})
	if err != nil {
		return fmt.Errorf("httpengine: signing request: %w", err)
	}
	return nil
}

// backoff waits before the next attempt. It returns the context error when
// the wait is interrupted.
func (e *Engine) backoff(ctx context.Context, attempt int, reason string, cause error) error {
	delay := e.retryer.RetryDelay(attempt)
	e.metrics.RetriesTotal.WithLabelValues(reason).Inc()
	e.logger.Warn("retrying request",
		"attempt", attempt,
		"reason", reason,
		"delay", delay,
		"error", cause)

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// stream delivers body to onBody in pooled chunks, pacing reads to the
// throughput target.
func (e *Engine) stream(ctx context.Context, body io.Reader, onBody func([]byte)) error {
	buf := e.buffers.Get(e.readSize)
	defer e.buffers.Put(buf)

	for {
		n, err := body.Read(buf)
		if n > 0 {
			if e.limiter != nil {
				if werr := e.limiter.WaitN(ctx, n); werr != nil {
					return werr
				}
			}
			e.metrics.BytesReceivedTotal.Add(float64(n))
			onBody(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func readErrorBody(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if len(body) == 0 {
		body = nil
	}
	return body, err
}

func hashPayload(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// convertHeaders flattens h into an ordered list, sorted by name so the
// order does not depend on map iteration.
func convertHeaders(h http.Header) engine.Headers {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	var out engine.Headers
	for _, name := range names {
		for _, v := range h[name] {
			out = append(out, engine.Header{Name: name, Value: v})
		}
	}
	return out
}
