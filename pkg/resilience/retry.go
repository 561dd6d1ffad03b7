// Package resilience provides a bounded retry wrapper and a consecutive
// failure tracker for calls to external providers.
package resilience

import (
	"context"
	"time"
)

const (
	DefaultInitialBackoff = 200 * time.Millisecond
	DefaultMaxBackoff     = 2 * time.Second
)

// Policy bounds how often a call is attempted.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first one.
	// Values below 1 are treated as 1.
	MaxAttempts int

	// InitialBackoff is the delay before the second attempt. It doubles after
	// every further failure up to MaxBackoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// Retryable reports whether err is worth another attempt. A nil Retryable
	// retries every error.
	Retryable func(err error) bool
}

// SingleAttempt is a policy that never retries.
var SingleAttempt = Policy{MaxAttempts: 1}

func (p Policy) attempts() int {
	return max(1, p.MaxAttempts)
}

func (p Policy) backoff(attempt int) time.Duration {
	d := p.InitialBackoff
	if d <= 0 {
		d = DefaultInitialBackoff
	}
	ceiling := p.MaxBackoff
	if ceiling <= 0 {
		ceiling = DefaultMaxBackoff
	}
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= ceiling {
			return ceiling
		}
	}
	return min(d, ceiling)
}

// Retry runs fn until it succeeds, returns an error the policy does not
// retry, the attempts are exhausted or ctx is done. The error of the last
// attempt is returned.
func Retry[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	for attempt := 1; ; attempt++ {
		result, err = fn(ctx)
		if err == nil {
			return result, nil
		}
		if attempt >= p.attempts() || ctx.Err() != nil {
			return result, err
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return result, err
		}

		timer := time.NewTimer(p.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return result, err
		case <-timer.C:
		}
	}
}
