package retry

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// LinearBackOff waits Interval*n before the n-th retry.
type LinearBackOff struct {
	Interval time.Duration
	retries  int
}

func NewLinearBackOff(interval time.Duration) *LinearBackOff {
	return &LinearBackOff{Interval: interval}
}

func (b *LinearBackOff) NextBackOff() time.Duration {
	b.retries++
	return b.Interval * time.Duration(b.retries)
}

func (b *LinearBackOff) Reset() {
	b.retries = 0
}

// adjustedBackOff adds a caller-computed extra delay on top of the wrapped
// policy, based on the attempt that just failed.
type adjustedBackOff struct {
	backoff.BackOff
	extra func() time.Duration
}

func (b *adjustedBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop || b.extra == nil {
		return next
	}
	return next + b.extra()
}

func CalculateLinearDuration(retry int, interval time.Duration) time.Duration {
	if retry <= 0 {
		return 0
	}
	return interval * time.Duration(retry)
}
