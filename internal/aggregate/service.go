package aggregate

import (
	"context"
	"time"

	"github.com/trendscribe/trend-aggregator/internal/domain"
	"github.com/trendscribe/trend-aggregator/internal/logger"
	"github.com/trendscribe/trend-aggregator/internal/normalize"
	"github.com/trendscribe/trend-aggregator/pkg/platforms"
	"golang.org/x/sync/errgroup"
)

// Normalizer converts a raw adapter response into ranked items. Wired to
// normalize.Normalize in production; injectable for tests.
type Normalizer func(platforms.Platform, platforms.RawResponse) (normalize.Result, error)

// Options tunes a Service.
type Options struct {
	RunTimeout    time.Duration
	MaxConcurrent int
	Retry         RetryPolicy
	Logger        logger.Logger
}

// Service orchestrates one aggregation pass: concurrent per-platform
// fetch, normalization, and report assembly in registry order.
type Service struct {
	adapters      *platforms.AdapterRegistry
	normalizer    Normalizer
	retry         RetryPolicy
	runTimeout    time.Duration
	maxConcurrent int
	log           logger.Logger
}

// NewService wires the aggregator with its adapter registry.
func NewService(adapters *platforms.AdapterRegistry, opts Options) *Service {
	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	return &Service{
		adapters:      adapters,
		normalizer:    normalize.Normalize,
		retry:         opts.Retry,
		runTimeout:    opts.RunTimeout,
		maxConcurrent: maxConcurrent,
		log:           logger.Ensure(opts.Logger),
	}
}

// WithNormalizer overrides the normalizer, mainly for tests.
func (s *Service) WithNormalizer(n Normalizer) *Service {
	if n != nil {
		s.normalizer = n
	}
	return s
}

// Run executes one aggregation pass over the registry. Per-platform
// failures become report entries; only an unusable registry returns an
// error. The report always carries one entry per registered platform,
// in declaration order regardless of completion order.
func (s *Service) Run(ctx context.Context, runID string, reg *platforms.Registry) (*domain.Report, error) {
	if s == nil || s.adapters == nil {
		return nil, domain.NewError(domain.KindConfig, "", "aggregator is not initialized")
	}
	if reg == nil || reg.Len() == 0 {
		return nil, domain.NewError(domain.KindConfig, "", "no platforms registered for aggregation")
	}

	list := reg.All()

	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	start := time.Now()
	results := make([]domain.FetchResult, len(list))

	// Each slot is written exactly once by its own task; no shared
	// mutable state beyond the pre-sized slice.
	g := new(errgroup.Group)
	g.SetLimit(s.maxConcurrent)
	for i, p := range list {
		g.Go(func() error {
			results[i] = s.fetchPlatform(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	report := domain.NewReport(runID, results)
	s.log.InfoObj("aggregation run completed", "run_meta", map[string]any{
		"run_id":     runID,
		"platforms":  len(list),
		"succeeded":  len(report.Succeeded()),
		"failed":     report.Failed(),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return report, nil
}

// fetchPlatform resolves the adapter for one platform, fetches with the
// retry budget, and normalizes. Any error collapses into a failure entry.
func (s *Service) fetchPlatform(ctx context.Context, p platforms.Platform) domain.FetchResult {
	adapter, err := s.adapters.AdapterFor(p)
	if err != nil {
		return s.failure(p, domain.WrapError(domain.KindConfig, p.ID, "resolve adapter", err))
	}

	var raw platforms.RawResponse
	err = s.retry.Do(ctx, func(ctx context.Context) error {
		var fetchErr error
		raw, fetchErr = adapter.Fetch(ctx, p)
		return fetchErr
	})
	if err != nil {
		return s.failure(p, err)
	}

	res, err := s.normalizer(p, raw)
	if err != nil {
		return s.failure(p, err)
	}

	for _, w := range res.Warnings {
		s.log.WarnObj("response element skipped", "normalize_warning", map[string]any{
			"platform_id": p.ID,
			"element":     w.Element,
			"reason":      w.Reason,
		})
	}

	s.log.DebugObj("platform fetch completed", "fetch_meta", map[string]any{
		"platform_id": p.ID,
		"mode":        string(p.Mode()),
		"items":       len(res.Items),
	})

	return domain.FetchResult{PlatformID: p.ID, Items: res.Items}
}

func (s *Service) failure(p platforms.Platform, err error) domain.FetchResult {
	s.log.ErrorObj("platform fetch failed", "fetch_error", map[string]any{
		"platform_id": p.ID,
		"mode":        string(p.Mode()),
		"kind":        string(domain.KindOf(err)),
		"error":       err.Error(),
	})
	return domain.FetchResult{
		PlatformID: p.ID,
		Failure:    domain.FailureFrom(p.ID, err),
	}
}
