package retry

import (
	"context"
	"time"
)

const (
	// MaxAttempts bounds transient-retryable failures before degrading.
	MaxAttempts = 5
	// BaseDelay is the first backoff delay; it doubles on every attempt.
	BaseDelay = time.Second
)

// Sleeper lets tests replace the real clock.
type Sleeper func(ctx context.Context, d time.Duration) error

// Wait blocks for d or until ctx is done.
func Wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do runs fn up to MaxAttempts times, backing off exponentially between
// attempts, but only while retryable classifies the error as transient.
// The last error is returned once attempts are exhausted or the error is
// not retryable.
func Do(ctx context.Context, sleep Sleeper, fn func(ctx context.Context) error, retryable func(error) bool) error {
	if sleep == nil {
		sleep = Wait
	}

	var err error
	delay := BaseDelay
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		err = fn(ctx)
		if err == nil || !retryable(err) {
			return err
		}
		if attempt == MaxAttempts {
			break
		}
		if serr := sleep(ctx, delay); serr != nil {
			return serr
		}
		delay *= 2
	}
	return err
}
