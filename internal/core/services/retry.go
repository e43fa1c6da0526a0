package services

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy is the shared retry abstraction used by the slug
// allocator, the frontier claim path and external-call wrappers.
// One policy object replaces the ad-hoc loops the ingestion scripts
// used to duplicate.
type RetryPolicy struct {
	// MaxAttempts bounds the loop; the final error is returned after it
	MaxAttempts int

	// Backoff computes the sleep before attempt n (1-based). Nil means
	// no sleep between attempts.
	Backoff func(attempt int) time.Duration
}

// DefaultRetryPolicy returns the policy most call sites use: a handful
// of attempts with capped exponential backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		Backoff:     ExponentialBackoff(100*time.Millisecond, 5*time.Second),
	}
}

// ExponentialBackoff returns a backoff function doubling from base and
// capped at max.
func ExponentialBackoff(base, max time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		d := base << uint(attempt-1)
		if d > max || d <= 0 {
			return max
		}
		return d
	}
}

// Do runs fn until it succeeds, the attempts are exhausted or the
// context is cancelled. The last error is wrapped with the attempt
// count.
func (p RetryPolicy) Do(ctx context.Context, fn func(attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}

		if attempt < attempts && p.Backoff != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.Backoff(attempt)):
			}
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

// WithTimeout wraps an outbound collaborator call with a deadline.
// No operation in this pipeline is allowed to block indefinitely.
func WithTimeout(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}
