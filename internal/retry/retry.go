package retry

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Options configures exponential backoff for retries.
type Options struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool
}

// Default backoff settings used when opts are zero/invalid.
var Default = Options{
	MaxAttempts:  5,
	InitialDelay: 300 * time.Millisecond,
	MaxDelay:     8 * time.Second,
	Multiplier:   2.0,
	Jitter:       true,
}

type IsRetryableFunc func(error) bool

func (o Options) normalized() Options {
	if o.MaxAttempts <= 0 {
		return Default
	}
	if o.Multiplier < 1 {
		o.Multiplier = 1
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = Default.MaxDelay
	}
	return o
}

// delay returns the sleep before the next attempt, with +/-20% jitter when enabled.
func (o Options) delay(backoff time.Duration) time.Duration {
	sleep := backoff
	if o.Jitter {
		delta := float64(backoff) * 0.2
		j := (rand.Float64()*2 - 1) * delta
		sleep = time.Duration(math.Max(0, float64(backoff)+j))
	}
	return min(sleep, o.MaxDelay)
}

// next grows backoff by the multiplier, capped at MaxDelay.
func (o Options) next(backoff time.Duration) time.Duration {
	n := time.Duration(float64(backoff) * o.Multiplier)
	if n < backoff {
		n = backoff
	}
	return min(n, o.MaxDelay)
}

// Do executes fn with retries and exponential backoff until it succeeds,
// context is done, or attempts are exhausted. Returns the last error.
func Do(ctx context.Context, opts Options, isRetryable IsRetryableFunc, fn func(context.Context) error) error {
	opts = opts.normalized()
	backoff := opts.InitialDelay

	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if isRetryable != nil && !isRetryable(err) {
			return err
		}
		if attempt >= opts.MaxAttempts {
			return err
		}

		timer := time.NewTimer(opts.delay(backoff))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff = opts.next(backoff)
	}
}
