package httpengine

import (
	"context"
	"errors"
	"io"
	"math"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Retryer decides whether a failed attempt is repeated and how long to wait
// before the next one. It is immutable and safe for concurrent use.
type Retryer struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

// NewRetryer returns a retryer allowing maxAttempts attempts in total.
// Values below one mean a single attempt.
func NewRetryer(maxAttempts int, baseDelay, maxDelay time.Duration) *Retryer {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if maxDelay < baseDelay {
		maxDelay = baseDelay
	}
	return &Retryer{maxAttempts: maxAttempts, baseDelay: baseDelay, maxDelay: maxDelay}
}

// MaxAttempts returns the total number of attempts, including the first.
func (r *Retryer) MaxAttempts() int {
	return r.maxAttempts
}

// RetryDelay returns the wait before the attempt following attempt:
// baseDelay * 2^(attempt-1) with ±25% jitter, capped at maxDelay.
func (r *Retryer) RetryDelay(attempt int) time.Duration {
	delay := time.Duration(math.Pow(2, float64(attempt-1))) * r.baseDelay

	jitterRange := int64(float64(delay) * 0.25)
	if jitterRange > 0 {
		delay += time.Duration(rand.Int63n(2*jitterRange) - jitterRange)
	}

	if delay > r.maxDelay {
		delay = r.maxDelay
	}
	if delay < 0 {
		delay = 0
	}
	return delay
}

// IsErrorRetryable reports whether a transport failure is transient.
// Cancellation and an open circuit are never retried.
func (r *Retryer) IsErrorRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsStatusRetryable reports whether a failure response is worth repeating,
// judged by its status and the error code from its body.
func (r *Retryer) IsStatusRetryable(status int, code string) bool {
	switch code {
	case "SlowDown",
		"RequestTimeout",
		"InternalError",
		"ServiceUnavailable",
		"ThrottlingException",
		"RequestLimitExceeded",
		"TooManyRequestsException":
		return true
	}

	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
