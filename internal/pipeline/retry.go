package pipeline

import (
	"context"
	"fmt"
	"time"

	"recast/internal/services"
)

// Policy is a bounded exponential backoff budget for one class of step.
type Policy struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

// APIPolicy is the budget for network and external-service steps.
func APIPolicy() Policy {
	return Policy{BaseDelay: time.Second, MaxDelay: 5 * time.Minute, MaxAttempts: 5}
}

// DBPolicy is the tighter budget for local persistence steps.
func DBPolicy() Policy {
	return Policy{BaseDelay: time.Second, MaxDelay: 30 * time.Second, MaxAttempts: 3}
}

// Do runs fn under the policy. Only errors services.IsRetryable accepts are
// retried; validation and configuration failures surface immediately. Sleeps
// between attempts honor ctx.
func (p Policy) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt == attempts || !services.IsRetryable(err) {
			return err
		}
		if err := services.SleepWithContext(ctx, p.delay(attempt)); err != nil {
			return err
		}
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

// delay doubles per attempt, capped at MaxDelay.
func (p Policy) delay(attempt int) time.Duration {
	delay := p.BaseDelay
	if delay <= 0 {
		return 0
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = delay
	}
	for i := 1; i < attempt; i++ {
		if delay > maxDelay/2 {
			return maxDelay
		}
		delay *= 2
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}
