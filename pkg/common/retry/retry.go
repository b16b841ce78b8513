package retry

import (
	"context"
	"time"
)

// MaxDelay caps the backoff between attempts.
const MaxDelay = 2 * time.Second

// Do runs fn up to attempts times with exponential backoff starting at
// baseDelay. It returns the last error, or ctx's error if ctx ends first.
func Do(ctx context.Context, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts <= 1 {
		return fn()
	}

	var err error
	delay := baseDelay
	for i := 0; i < attempts; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err = fn()
		if err == nil {
			return nil
		}

		// no sleep after the last attempt
		if i == attempts-1 {
			break
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		delay *= 2
		if delay > MaxDelay {
			delay = MaxDelay
		}
	}

	return err
}
