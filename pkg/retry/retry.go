package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type RetryableError interface {
	error
	IsRetryable() bool
}

type FatalError interface {
	error
	IsFatal() bool
}

type fatalError struct {
	err error
}

func (e *fatalError) Error() string {
	return e.err.Error()
}

func (e *fatalError) IsFatal() bool {
	return true
}

func (e *fatalError) Unwrap() error {
	return e.err
}

func NewFatalError(err error) FatalError {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// Policy describes a sequential retry budget with linear backoff.
type Policy struct {
	// MaxAttempts counts the first attempt, so MaxAttempts-1 retries.
	MaxAttempts int
	Interval    time.Duration
	// ExtraDelay, when set, is added to the backoff before the retry that
	// follows the given failed attempt (0-based).
	ExtraDelay func(attempt int, err error) time.Duration
	// Timer overrides the wall-clock timer used between attempts.
	Timer backoff.Timer
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Interval:    1 * time.Second,
	}
}

// Retry runs fn until it succeeds, returns a fatal error, the budget is
// exhausted or ctx is done. fn receives the 0-based attempt number. The number
// of attempts made is returned alongside the last error.
func Retry(ctx context.Context, policy Policy, fn func(attempt int) error) (int, error) {
	return RetryWithCallback(ctx, policy, fn, nil)
}

func RetryWithCallback(ctx context.Context, policy Policy, fn func(attempt int) error, onRetry func(attempt int, err error, nextDelay time.Duration)) (int, error) {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 3
	}

	attempt := 0
	var lastErr error

	var b backoff.BackOff = &adjustedBackOff{
		BackOff: NewLinearBackOff(policy.Interval),
		extra: func() time.Duration {
			if policy.ExtraDelay == nil {
				return 0
			}
			return policy.ExtraDelay(attempt-1, lastErr)
		},
	}
	b = backoff.WithContext(b, ctx)
	b = backoff.WithMaxRetries(b, uint64(policy.MaxAttempts-1))

	operation := func() error {
		current := attempt
		attempt++
		err := fn(current)
		lastErr = err

		if err == nil {
			return nil
		}

		var fatalErr FatalError
		if errors.As(err, &fatalErr) && fatalErr.IsFatal() {
			return backoff.Permanent(err)
		}

		return err
	}

	notify := func(err error, next time.Duration) {
		if onRetry != nil {
			onRetry(attempt, err, next)
		}
	}

	err := backoff.RetryNotifyWithTimer(operation, b, notify, policy.Timer)
	if err != nil && lastErr != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		// Report what the last attempt saw rather than the bare cancellation.
		return attempt, lastErr
	}
	return attempt, err
}
