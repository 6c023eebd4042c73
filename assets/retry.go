package assets

import (
	"context"
	"fmt"
	"log"
	"time"
)

// RetryPolicy is a bounded-retry schedule with exponential backoff, applied
// uniformly to every download regardless of the fetch mechanism.
type RetryPolicy struct {
	MaxAttempts    int
	BaseDelay      time.Duration // doubles after each failed attempt
	AttemptTimeout time.Duration // per attempt; 0 = no timeout
}

// Do runs fn until it succeeds, attempts are exhausted, or the context is
// cancelled. The last error is returned on exhaustion.
func (p RetryPolicy) Do(ctx context.Context, label string, fn func(context.Context) error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}

	var err error
	delay := p.BaseDelay
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		attemptCtx := ctx
		var cancel context.CancelFunc
		if p.AttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, p.AttemptTimeout)
		}
		err = fn(attemptCtx)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt < p.MaxAttempts {
			log.Printf("[assets] %s: attempt %d/%d failed: %v — retrying in %v", label, attempt, p.MaxAttempts, err, delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}
	}
	return fmt.Errorf("after %d attempts: %w", p.MaxAttempts, err)
}
