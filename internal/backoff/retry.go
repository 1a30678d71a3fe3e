package backoff

import (
	"context"
	"errors"
)

// ErrAttemptsExhausted is returned when every attempt failed with a retryable
// error.
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

// Retry runs fn up to p.MaxAttempts times, sleeping between attempts per the
// policy. A non-retryable error aborts immediately. On exhaustion the last
// error is returned wrapped with ErrAttemptsExhausted so callers can
// distinguish "gave up" from "refused".
func Retry[T any](ctx context.Context, p Policy, fn func(attempt int) (T, error), retryable func(error) bool) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		value, err := fn(attempt)
		if err == nil {
			return value, nil
		}
		lastErr = err

		if retryable != nil && !retryable(err) {
			return zero, err
		}
		if attempt < p.MaxAttempts {
			if err := Sleep(ctx, p, attempt); err != nil {
				return zero, err
			}
		}
	}
	return zero, errors.Join(ErrAttemptsExhausted, lastErr)
}
