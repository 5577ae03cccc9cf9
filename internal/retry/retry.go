package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"skyreel/internal/logging"
	"skyreel/internal/services"
)

const defaultBackoff = 2.0

// Policy describes how many times an operation runs and how long to wait
// between attempts. The wait before attempt n+1 is Delay * Backoff^(n-1).
type Policy struct {
	Attempts  int
	Delay     time.Duration
	Backoff   float64
	MaxDelay  time.Duration
	Retryable func(error) bool
	Sleep     func(context.Context, time.Duration) error

	// Operation names the call in retry log lines.
	Operation string
	Logger    *slog.Logger
}

// StatusError reports a non-2xx HTTP response so the classifier can tell
// throttling and server faults apart from client errors.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("GET %s: status %d: %s", e.URL, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
}

// Do runs op until it succeeds, the policy is exhausted, the context ends, or
// op returns an error the policy does not consider retryable.
func Do(ctx context.Context, policy Policy, op func(context.Context) error) error {
	_, err := Value(ctx, policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Value is Do for operations that produce a result.
func Value[T any](ctx context.Context, policy Policy, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if ctx == nil {
		return zero, errors.New("retry: nil context")
	}
	attempts := policy.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	retryable := policy.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}
	sleep := policy.Sleep
	if sleep == nil {
		sleep = SleepWithContext
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return zero, err
		}
		if !retryable(err) {
			return zero, err
		}
		if attempt == attempts {
			break
		}
		delay := policy.DelayFor(attempt)
		if policy.Logger != nil {
			policy.Logger.Warn("attempt failed; retrying",
				logging.String("operation", policy.operation()),
				logging.Int("attempt", attempt),
				logging.Int("max_attempts", attempts),
				logging.Duration("delay", delay),
				logging.Error(err),
				logging.String(logging.FieldEventType, "retry_scheduled"),
				logging.Hint("no action needed unless every attempt fails"),
				logging.Impact("operation delayed"),
			)
		}
		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
	if attempts == 1 {
		return zero, lastErr
	}
	return zero, fmt.Errorf("%s: failed after %d attempts: %w", policy.operation(), attempts, lastErr)
}

// DelayFor returns the wait after the given 1-based failed attempt.
func (p Policy) DelayFor(attempt int) time.Duration {
	if p.Delay <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	backoff := p.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	delay := time.Duration(float64(p.Delay) * math.Pow(backoff, float64(attempt-1)))
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

func (p Policy) operation() string {
	if p.Operation == "" {
		return "operation"
	}
	return p.Operation
}

// SleepWithContext waits for d or until ctx is done.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsRetryable reports whether err is a transient condition worth another
// attempt. Account problems, validation failures and caller cancellation are
// never retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if services.IsPermanent(err) {
		return false
	}
	if errors.Is(err, services.ErrTransient) || errors.Is(err, services.ErrTimeout) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusRequestTimeout ||
			statusErr.StatusCode == http.StatusTooManyRequests ||
			statusErr.StatusCode >= http.StatusInternalServerError
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}

	message := strings.ToLower(err.Error())
	for _, token := range []string{
		"timeout",
		"deadline exceeded",
		"connection reset",
		"connection refused",
		"broken pipe",
		"temporarily unavailable",
		"unexpected eof",
	} {
		if strings.Contains(message, token) {
			return true
		}
	}
	return false
}
