package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"time"
)

// Policy describes a bounded retry loop: how many attempts, how to back
// off between them, and which errors are worth another try. The zero
// value is unusable; construct with NewPolicy or fill all fields.
type Policy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	Retryable   func(error) bool
}

// NewPolicy returns a policy with the given attempt count and defaults
// for everything else (100ms base backoff, 10s cap, transient-only
// predicate).
func NewPolicy(maxAttempts int) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		BaseBackoff: 100 * time.Millisecond,
		MaxBackoff:  10 * time.Second,
		Retryable:   IsTransient,
	}
}

// Do runs fn until it succeeds, exhausts MaxAttempts, or hits a
// non-retryable error. Backoff between attempts is exponential with full
// jitter and respects ctx cancellation.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsTransient
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}

		// Context errors never get another attempt.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !retryable(err) {
			return err
		}
		lastErr = err

		if attempt == maxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.backoff(attempt)):
		}
	}

	return fmt.Errorf("retry: max attempts (%d) exceeded: %w", maxAttempts, lastErr)
}

// backoff computes exponential backoff with full jitter: a random wait in
// [0, base*2^attempt], capped at MaxBackoff.
func (p Policy) backoff(attempt int) time.Duration {
	base := p.BaseBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	const maxExponent = 10
	if attempt > maxExponent {
		attempt = maxExponent
	}

	d := time.Duration(float64(base) * math.Pow(2, float64(attempt)))

	maxAllowed := p.MaxBackoff
	if maxAllowed <= 0 {
		maxAllowed = 10 * time.Second
	}
	if d > maxAllowed {
		d = maxAllowed
	}

	return time.Duration(rand.Float64() * float64(d))
}

// StatusError carries an HTTP status from an upstream call so the policy
// can decide whether it is retryable.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream status %d", e.Status)
	}
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Body)
}

// IsTransient reports whether an error is worth retrying: temporary
// network failures and retryable upstream statuses (408, 429, 5xx).
// Well-formed client errors (4xx) are not transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return RetryableStatus(se.Status)
	}

	return isTransientNetError(err)
}

// RetryableStatus reports whether an HTTP status indicates the request
// should be retried.
func RetryableStatus(status int) bool {
	switch {
	case status == 0:
		// No response received at all.
		return true
	case status == http.StatusTooManyRequests:
		return true
	case status == http.StatusRequestTimeout:
		return true
	case status >= 500 && status <= 599:
		return true
	default:
		return false
	}
}

// isTransientNetError classifies network errors that might resolve on a
// retry.
func isTransientNetError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTimeout || dnsErr.IsTemporary
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Op == "dial" || opErr.Op == "read" || opErr.Op == "write" {
			return true
		}
	}

	// Wrapped transport errors sometimes only expose a message.
	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"temporary failure",
	} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
