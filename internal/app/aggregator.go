package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/trendscribe/trend-aggregator/internal/aggregate"
	"github.com/trendscribe/trend-aggregator/internal/config"
	"github.com/trendscribe/trend-aggregator/internal/domain"
	"github.com/trendscribe/trend-aggregator/internal/logger"
	"github.com/trendscribe/trend-aggregator/internal/storage"
	"github.com/trendscribe/trend-aggregator/pkg/httpclient"
	"github.com/trendscribe/trend-aggregator/pkg/platforms"
	"github.com/trendscribe/trend-aggregator/pkg/sinks"
)

// Aggregator is the application runtime. It wires the platform registry,
// the aggregation service, the snapshot store and the sink fanout, and
// executes one aggregation pass per invocation. Scheduling is left to
// the operator (cron, CI, systemd timers).
type Aggregator struct {
	cfg     *config.Config
	reg     *platforms.Registry
	service *aggregate.Service
	fanout  *sinks.Fanout
	store   storage.Store
	log     logger.Logger
	now     func() time.Time
}

// runSnapshot is the persisted form of one run's report.
type runSnapshot struct {
	RunID       string        `json:"run_id"`
	GeneratedAt time.Time     `json:"generated_at"`
	Platforms   []sinks.Event `json:"platforms"`
}

// New builds the aggregator runtime from config files.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*Aggregator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	reg, err := platforms.LoadRegistry(cfg.PlatformsFile)
	if err != nil {
		return nil, fmt.Errorf("load platform registry: %w", err)
	}
	ids := make([]string, 0, reg.Len())
	for _, p := range reg.All() {
		ids = append(ids, p.ID)
	}
	log.InfoObj("platform registry loaded", "platforms_meta", map[string]any{
		"count": len(ids),
		"ids":   ids,
	})

	client := httpclient.NewRestyClientWithOptions(httpclient.Options{
		Timeout:  cfg.RequestTimeout,
		ProxyURL: cfg.ProxyURL,
	})
	adapters := platforms.NewAdapterRegistry(
		platforms.NewStandardAdapter(client, cfg.AggregateAPIURL),
		platforms.NewCustomAdapter(client),
	)

	service := aggregate.NewService(adapters, aggregate.Options{
		RunTimeout:    cfg.RunTimeout,
		MaxConcurrent: cfg.MaxConcurrentFetches,
		Retry: aggregate.RetryPolicy{
			MaxAttempts: cfg.RetryMaxAttempts,
			MinWait:     cfg.RetryMinWait,
			MaxWait:     cfg.RetryMaxWait,
		},
		Logger: log,
	})

	sinkReg, err := sinks.LoadRegistry(cfg.SinksFile)
	if err != nil {
		return nil, fmt.Errorf("load sink registry: %w", err)
	}
	enabled := sinkReg.Enabled()
	if len(enabled) == 0 {
		return nil, fmt.Errorf("no sinks enabled")
	}
	built, err := sinks.BuildAll(ctx, sinks.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build sinks: %w", err)
	}
	fanout := sinks.NewFanout(built)
	sinkSummaries := make([]map[string]string, 0, len(enabled))
	for _, sc := range enabled {
		sinkSummaries = append(sinkSummaries, map[string]string{
			"id":   sc.ID,
			"type": sc.Type,
		})
	}
	log.InfoObj("sink registry loaded", "sinks_meta", map[string]any{
		"count": len(sinkSummaries),
		"sinks": sinkSummaries,
	})

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
		SnapshotTTL:     cfg.SnapshotTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                 cfg.StorageType,
		"path":                 cfg.BBoltPath,
		"snapshot_ttl_seconds": int(cfg.SnapshotTTL.Seconds()),
	})

	return &Aggregator{
		cfg:     cfg,
		reg:     reg,
		service: service,
		fanout:  fanout,
		store:   store,
		log:     log,
		now:     time.Now,
	}, nil
}

// Run executes one aggregation pass: fetch all platforms, persist the
// snapshot, fan the per-platform events out to the sinks.
func (a *Aggregator) Run(ctx context.Context) error {
	if a == nil || a.service == nil {
		return fmt.Errorf("aggregator is not initialized")
	}
	defer a.closeStore()

	runID := a.now().UTC().Format("20060102T150405Z")

	report, err := a.service.Run(ctx, runID, a.reg)
	if err != nil {
		return fmt.Errorf("aggregation run: %w", err)
	}

	events := a.events(report)

	if err := a.persist(runID, events); err != nil {
		a.log.ErrorObj("snapshot persist failed", "error", err.Error())
	}

	delivered := 0
	for _, evt := range events {
		n, err := a.fanout.Deliver(ctx, evt)
		if err != nil {
			a.log.ErrorObj("sink delivery failed", "delivery_error", map[string]any{
				"platform_id": evt.PlatformID,
				"error":       err.Error(),
			})
		}
		delivered += n
	}

	a.log.InfoObj("run finished", "run_summary", map[string]any{
		"run_id":      runID,
		"platforms":   report.Len(),
		"succeeded":   report.Succeeded(),
		"failed":      report.Failed(),
		"deliveries":  delivered,
		"sinks_count": a.fanout.Size(),
	})
	return nil
}

// events converts the report into deliverable events, in report order.
func (a *Aggregator) events(report *domain.Report) []sinks.Event {
	results := report.Results()
	out := make([]sinks.Event, 0, len(results))
	for _, res := range results {
		name := res.PlatformID
		if p, ok := a.reg.ByID(res.PlatformID); ok {
			name = p.Name
		}
		out = append(out, sinks.NewEvent(report.RunID, res.PlatformID, name, res))
	}
	return out
}

func (a *Aggregator) persist(runID string, events []sinks.Event) error {
	if a.store == nil {
		return nil
	}
	payload, err := json.Marshal(runSnapshot{
		RunID:       runID,
		GeneratedAt: a.now().UTC(),
		Platforms:   events,
	})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := a.store.SaveRun(runID, payload); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// closeStore safely closes the storage backend, logging any errors.
func (a *Aggregator) closeStore() {
	if a == nil || a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.log.ErrorObj("storage close failed", "error", err.Error())
	}
}
