// Package retry provides the bounded retry policy applied to every backend
// network call. Transient failures (network errors, timeouts, HTTP 429/5xx)
// are retried with randomized exponential backoff; permanent failures and
// context cancellation abort immediately. When attempts are exhausted the
// original error is returned — never swallowed or replaced.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Defaults for a zero-valued Policy.
const (
	// DefaultMaxAttempts is the total number of attempts including the first.
	DefaultMaxAttempts = 3
	// DefaultInitialInterval is the first backoff wait.
	DefaultInitialInterval = 1 * time.Second
	// DefaultMaxInterval caps the backoff wait between attempts.
	DefaultMaxInterval = 20 * time.Second
)

// Transienter is implemented by errors that know whether they are worth
// retrying. Backend API errors implement it based on the HTTP status code.
type Transienter interface {
	Transient() bool
}

// Policy is a composable retry policy. The zero value retries up to
// DefaultMaxAttempts with a 1s–20s randomized exponential backoff.
type Policy struct {
	// MaxAttempts is the total number of attempts including the first.
	MaxAttempts int

	// InitialInterval is the first backoff wait.
	InitialInterval time.Duration

	// MaxInterval caps the backoff wait between attempts.
	MaxInterval time.Duration

	// OnRetry, if set, is invoked before each re-attempt with the 1-based
	// number of the attempt that just failed and its error. Used for
	// logging and retry metrics.
	OnRetry func(attempt int, err error)
}

// Do runs op, retrying transient failures per the policy. It returns nil on
// success, ctx.Err() if the context ends while waiting, and otherwise the
// error of the last attempt.
func (p Policy) Do(ctx context.Context, op func() error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	initial := p.InitialInterval
	if initial <= 0 {
		initial = DefaultInitialInterval
	}
	maxWait := p.MaxInterval
	if maxWait <= 0 {
		maxWait = DefaultMaxInterval
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initial
	bo.MaxInterval = maxWait
	bo.MaxElapsedTime = 0 // bounded by attempt count, not wall clock

	attempt := 0
	wrapped := func() error {
		attempt++
		err := op()
		switch {
		case err == nil:
			return nil
		case !Retryable(err):
			return backoff.Permanent(err)
		default:
			if attempt < maxAttempts && p.OnRetry != nil {
				p.OnRetry(attempt, err)
			}
			return err
		}
	}

	return backoff.Retry(wrapped,
		backoff.WithContext(backoff.WithMaxRetries(bo, uint64(maxAttempts-1)), ctx))
}

// Retryable reports whether err is worth retrying. Context cancellation and
// deadline expiry are never retried. Errors implementing Transienter decide
// for themselves. Anything else (raw transport errors and the like) is
// treated as transient.
func Retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var t Transienter
	if errors.As(err, &t) {
		return t.Transient()
	}
	return true
}
