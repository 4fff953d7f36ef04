package aggregate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/trendscribe/trend-aggregator/internal/domain"
)

func TestRetryPolicyAttempts(t *testing.T) {
	if got := (RetryPolicy{}).Attempts(); got != 1 {
		t.Fatalf("zero policy attempts = %d", got)
	}
	if got := (RetryPolicy{MaxAttempts: -3}).Attempts(); got != 1 {
		t.Fatalf("negative policy attempts = %d", got)
	}
	if got := (RetryPolicy{MaxAttempts: 4}).Attempts(); got != 4 {
		t.Fatalf("attempts = %d", got)
	}
}

func TestRetryPolicyExhaustsBudget(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, MinWait: time.Millisecond, MaxWait: 2 * time.Millisecond}

	calls := 0
	wantErr := domain.NewError(domain.KindTransport, "x", "connection refused")
	err := policy.Do(context.Background(), func(context.Context) error {
		calls++
		return wantErr
	})

	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v", err)
	}
}

func TestRetryPolicyStopsOnSuccess(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 5, MinWait: time.Millisecond, MaxWait: 2 * time.Millisecond}

	calls := 0
	err := policy.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 2 {
			return domain.NewError(domain.KindTransport, "x", "flaky")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestRetryPolicyNeverRetriesDeterministicFailures(t *testing.T) {
	for _, kind := range []domain.Kind{domain.KindConfig, domain.KindSchema} {
		policy := RetryPolicy{MaxAttempts: 5, MinWait: time.Millisecond, MaxWait: 2 * time.Millisecond}

		calls := 0
		err := policy.Do(context.Background(), func(context.Context) error {
			calls++
			return domain.NewError(kind, "x", "will not change")
		})

		if calls != 1 {
			t.Fatalf("kind %s: calls = %d, want 1", kind, calls)
		}
		if domain.KindOf(err) != kind {
			t.Fatalf("kind %s: err = %v", kind, err)
		}
	}
}

func TestRetryPolicyHonorsCancellation(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 10, MinWait: time.Hour, MaxWait: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := policy.Do(ctx, func(context.Context) error {
		calls++
		return domain.NewError(domain.KindTransport, "x", "down")
	})

	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if err == nil {
		t.Fatalf("expected the last fetch error")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("cancellation not honored, waited %v", elapsed)
	}
}
