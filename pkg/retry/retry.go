// Package retry runs an operation under a bounded retry policy.
//
// The default policy waits a fixed delay between attempts. Swapping in a
// different backoff.BackOff (for example exponential) only touches Policy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy describes how an operation is retried.
type Policy struct {
	// MaxRetries is the number of attempts allowed after the first one.
	MaxRetries int
	// Delay is the fixed wait between attempts.
	Delay time.Duration
	// Retryable reports whether a failure may be retried. Nil retries every error.
	Retryable func(error) bool
	// OnRetry is called before each wait with the failed attempt number.
	OnRetry func(attempt int, err error, wait time.Duration)
	// BackOff overrides the fixed delay when set.
	BackOff backoff.BackOff
}

// Fixed returns a policy with a constant delay and no retryable filter.
func Fixed(maxRetries int, delay time.Duration) Policy {
	return Policy{MaxRetries: maxRetries, Delay: delay}
}

// ExhaustedError is returned when every attempt failed.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Do runs op until it succeeds, the policy gives up or ctx is done.
// Failures are reported as *ExhaustedError wrapping the last cause.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	attempts := 0
	operation := func() (T, error) {
		attempts++
		v, err := op(ctx)
		if err != nil && p.Retryable != nil && !p.Retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(uint(maxRetries + 1)),
	}
	if p.OnRetry != nil {
		opts = append(opts, backoff.WithNotify(func(err error, wait time.Duration) {
			p.OnRetry(attempts, err, wait)
		}))
	}

	result, err := backoff.Retry(ctx, operation, opts...)
	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Unwrap()
		}
		var zero T
		return zero, &ExhaustedError{Attempts: attempts, Err: err}
	}
	return result, nil
}

func (p Policy) backOff() backoff.BackOff {
	if p.BackOff != nil {
		return p.BackOff
	}
	return backoff.NewConstantBackOff(p.Delay)
}
