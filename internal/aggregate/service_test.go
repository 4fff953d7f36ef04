package aggregate

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/trendscribe/trend-aggregator/internal/domain"
	"github.com/trendscribe/trend-aggregator/pkg/platforms"
)

// fakeAdapter replays canned responses or errors keyed by platform id.
type fakeAdapter struct {
	responses map[string]platforms.RawResponse
	errs      map[string]error
	delay     time.Duration
	calls     atomic.Int64
}

func (f *fakeAdapter) Fetch(ctx context.Context, p platforms.Platform) (platforms.RawResponse, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return platforms.RawResponse{}, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if err, ok := f.errs[p.ID]; ok {
		return platforms.RawResponse{}, err
	}
	if resp, ok := f.responses[p.ID]; ok {
		return resp, nil
	}
	return platforms.RawResponse{PlatformID: p.ID, Body: map[string]any{"items": []any{}}}, nil
}

func mustRegistry(t *testing.T, entries ...platforms.Platform) *platforms.Registry {
	t.Helper()
	reg, err := platforms.NewRegistry(entries)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

func envelope(titles ...string) map[string]any {
	items := make([]any, 0, len(titles))
	for _, title := range titles {
		items = append(items, map[string]any{"title": title})
	}
	return map[string]any{"status": "success", "items": items}
}

func TestRunIsolatesPlatformFailures(t *testing.T) {
	standard := &fakeAdapter{
		responses: map[string]platforms.RawResponse{
			"zhihu": {PlatformID: "zhihu", Body: envelope("a", "b")},
			"weibo": {PlatformID: "weibo", Body: envelope("c")},
		},
		errs: map[string]error{
			"douyin": domain.NewError(domain.KindUpstream, "douyin", "status 502"),
		},
	}
	service := NewService(platforms.NewAdapterRegistry(standard, nil), Options{})

	reg := mustRegistry(t,
		platforms.Platform{ID: "zhihu", Name: "知乎"},
		platforms.Platform{ID: "douyin", Name: "抖音"},
		platforms.Platform{ID: "weibo", Name: "微博"},
	)

	report, err := service.Run(context.Background(), "run-1", reg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Len() != 3 {
		t.Fatalf("report entries = %d", report.Len())
	}

	results := report.Results()
	wantOrder := []string{"zhihu", "douyin", "weibo"}
	for i, id := range wantOrder {
		if results[i].PlatformID != id {
			t.Fatalf("position %d: got %q want %q", i, results[i].PlatformID, id)
		}
	}

	zhihu, _ := report.Result("zhihu")
	if !zhihu.OK() || len(zhihu.Items) != 2 {
		t.Fatalf("zhihu result = %#v", zhihu)
	}
	if zhihu.Items[0].Rank != 1 || zhihu.Items[1].Rank != 2 {
		t.Fatalf("zhihu ranks = %d,%d", zhihu.Items[0].Rank, zhihu.Items[1].Rank)
	}

	douyin, _ := report.Result("douyin")
	if douyin.OK() {
		t.Fatalf("douyin should have failed")
	}
	if douyin.Failure.Kind != domain.KindUpstream {
		t.Fatalf("douyin failure = %#v", douyin.Failure)
	}
	if len(douyin.Items) != 0 {
		t.Fatalf("a failed platform carries no items")
	}

	weibo, _ := report.Result("weibo")
	if !weibo.OK() || len(weibo.Items) != 1 {
		t.Fatalf("weibo result = %#v", weibo)
	}
}

func TestRunDispatchesByMode(t *testing.T) {
	standard := &fakeAdapter{responses: map[string]platforms.RawResponse{
		"std": {PlatformID: "std", Body: envelope("standard item")},
	}}
	custom := &fakeAdapter{responses: map[string]platforms.RawResponse{
		"cus": {PlatformID: "cus", Body: envelope("custom item")},
	}}
	service := NewService(platforms.NewAdapterRegistry(standard, custom), Options{})

	reg := mustRegistry(t,
		platforms.Platform{ID: "std", Name: "Std"},
		platforms.Platform{ID: "cus", Name: "Cus", APIURL: "https://cus.example.com/api"},
	)

	report, err := service.Run(context.Background(), "run-2", reg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := standard.calls.Load(); got != 1 {
		t.Fatalf("standard adapter calls = %d", got)
	}
	if got := custom.calls.Load(); got != 1 {
		t.Fatalf("custom adapter calls = %d", got)
	}
	if failed := report.Failed(); len(failed) != 0 {
		t.Fatalf("failed = %v", failed)
	}
}

func TestRunDeadlineBecomesTimeoutFailure(t *testing.T) {
	slow := &fakeAdapter{delay: time.Second}
	service := NewService(platforms.NewAdapterRegistry(slow, nil), Options{
		RunTimeout: 50 * time.Millisecond,
	})

	reg := mustRegistry(t, platforms.Platform{ID: "slow", Name: "Slow"})

	report, err := service.Run(context.Background(), "run-3", reg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	res, _ := report.Result("slow")
	if res.OK() {
		t.Fatalf("expected a timeout failure")
	}
	if res.Failure.Kind != domain.KindTimeout {
		t.Fatalf("failure kind = %s, want timeout", res.Failure.Kind)
	}
}

func TestRunEmptyRegistry(t *testing.T) {
	service := NewService(platforms.NewAdapterRegistry(&fakeAdapter{}, nil), Options{})

	if _, err := service.Run(context.Background(), "run-4", nil); err == nil {
		t.Fatalf("nil registry should be a config error")
	} else if domain.KindOf(err) != domain.KindConfig {
		t.Fatalf("kind = %s", domain.KindOf(err))
	}
}

func TestRunMissingAdapterIsConfigFailure(t *testing.T) {
	service := NewService(platforms.NewAdapterRegistry(&fakeAdapter{}, nil), Options{})

	reg := mustRegistry(t, platforms.Platform{ID: "cus", Name: "Cus", APIURL: "https://cus.example.com"})

	report, err := service.Run(context.Background(), "run-5", reg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	res, _ := report.Result("cus")
	if res.OK() || res.Failure.Kind != domain.KindConfig {
		t.Fatalf("result = %#v", res)
	}
}

func TestRunRetriesTransientFetches(t *testing.T) {
	flaky := &flakyAdapter{failuresBefore: 2}
	service := NewService(platforms.NewAdapterRegistry(flaky, nil), Options{
		Retry: RetryPolicy{MaxAttempts: 3, MinWait: time.Millisecond, MaxWait: 2 * time.Millisecond},
	})

	reg := mustRegistry(t, platforms.Platform{ID: "flaky", Name: "Flaky"})

	report, err := service.Run(context.Background(), "run-6", reg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	res, _ := report.Result("flaky")
	if !res.OK() {
		t.Fatalf("expected success after retries, got %#v", res.Failure)
	}
	if got := flaky.calls.Load(); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
}

// flakyAdapter fails a fixed number of times before succeeding.
type flakyAdapter struct {
	failuresBefore int64
	calls          atomic.Int64
}

func (f *flakyAdapter) Fetch(ctx context.Context, p platforms.Platform) (platforms.RawResponse, error) {
	n := f.calls.Add(1)
	if n <= f.failuresBefore {
		return platforms.RawResponse{}, domain.NewError(domain.KindTransport, p.ID, "connection reset")
	}
	return platforms.RawResponse{PlatformID: p.ID, Body: envelope("recovered")}, nil
}
