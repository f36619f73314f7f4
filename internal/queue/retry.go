package queue

import (
	"context"
	"time"
)

// RetryPolicy retries a failed job a fixed number of times with a constant
// delay between attempts.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

// DefaultRetryPolicy retries three times, five seconds apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, Backoff: 5 * time.Second}
}

// Do runs fn until it succeeds, the retries are exhausted, or ctx is done.
// attempt starts at 1. The last error is returned.
func (p RetryPolicy) Do(ctx context.Context, fn func(attempt int) error) error {
	var err error
	for attempt := 1; attempt <= p.MaxRetries+1; attempt++ {
		if err = fn(attempt); err == nil {
			return nil
		}
		if attempt > p.MaxRetries {
			break
		}

		timer := time.NewTimer(p.Backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
	return err
}
