package aggregate

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/trendscribe/trend-aggregator/internal/domain"
)

// RetryPolicy is an opt-in, bounded retry layered over adapter fetches.
// MaxAttempts of 1 (or less) disables retrying entirely.
type RetryPolicy struct {
	MaxAttempts int
	MinWait     time.Duration
	MaxWait     time.Duration
}

// Attempts returns the effective attempt budget, never below 1.
func (p RetryPolicy) Attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Do runs fn up to the attempt budget, sleeping a jittered interval
// between attempts. Config and schema failures are deterministic and
// never retried. The last error is returned once the budget is spent.
func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) error) error {
	attempts := p.Attempts()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) || attempt == attempts {
			return lastErr
		}
		if err := sleepContext(ctx, p.wait(attempt)); err != nil {
			return lastErr
		}
	}
	return lastErr
}

// wait computes the pause before the next attempt: a random base between
// the configured bounds plus a small growth term per prior retry.
func (p RetryPolicy) wait(attempt int) time.Duration {
	min, max := p.MinWait, p.MaxWait
	if min < 0 {
		min = 0
	}
	if max < min {
		max = min
	}

	base := min
	if span := max - min; span > 0 {
		base += rand.N(span)
	}
	growth := time.Duration(attempt-1) * (time.Second + rand.N(time.Second))
	return base + growth
}

func retryable(err error) bool {
	switch domain.KindOf(err) {
	case domain.KindConfig, domain.KindSchema:
		return false
	default:
		return true
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
