// Package retry runs a fallible operation with bounded exponential backoff.
package retry

import (
	"context"
	"time"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
)

// Policy configures Do. The zero value makes a single attempt.
type Policy struct {
	// MaxAttempts is the total number of invocations, including the first.
	// Values below 1 are treated as 1.
	MaxAttempts int
	// BaseDelay is the wait after the first failure. The wait after failure
	// i (0-based) is BaseDelay * 2^i.
	BaseDelay time.Duration
	// Sleep waits for d or until ctx is done. Nil means a timer-based wait.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is called after a failed attempt that will be retried, before
	// the backoff wait. attempt is 1-based.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// Delay returns the backoff after the failure of attempt index i (0-based).
func (p Policy) Delay(i int) time.Duration {
	return p.BaseDelay << uint(i)
}

// Do invokes op until it succeeds or MaxAttempts invocations have failed.
// Attempts are strictly sequential. After the last failure the error of that
// attempt is returned unchanged, so callers can inspect it with errors.As.
// If ctx is done during a backoff wait, Do stops and returns the last
// operation error.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var (
		res T
		err error
	)
	for i := 0; i < attempts; i++ {
		res, err = op(ctx)
		if err == nil {
			return res, nil
		}
		if i == attempts-1 {
			break
		}

		d := p.Delay(i)
		if p.OnRetry != nil {
			p.OnRetry(i+1, d, err)
		}
		if sleep(ctx, d) != nil {
			break
		}
	}
	var zero T
	return zero, err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
