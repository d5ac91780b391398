package correlate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"argus/config"
	"argus/core"
	"argus/metrics"
	"argus/storage"
)

// Dataset is one run's immutable snapshot of loaded telemetry, already
// narrowed to the requested time window.
type Dataset struct {
	SecurityEvents []core.SecurityEvent
	Endpoints      []core.Endpoint
	EndpointEvents []core.EndpointEvent
	BlockedIPs     []core.BlockedIP
	Rules          []core.CorrelationRule
	Cutoff         time.Time
}

// Loader fetches bounded sets of records from the entity store.
type Loader struct {
	store  storage.Store
	cfg    *config.Config
	logger *zap.SugaredLogger
}

// NewLoader creates a loader over the given store.
func NewLoader(store storage.Store, cfg *config.Config, logger *zap.SugaredLogger) *Loader {
	return &Loader{store: store, cfg: cfg, logger: logger}
}

// Load fetches all five sources concurrently and awaits them together.
// Any single fetch failure fails the load; there are no partial results.
func (l *Loader) Load(ctx context.Context, windowHours float64, now time.Time) (*Dataset, error) {
	if windowHours <= 0 {
		windowHours = l.cfg.Engine.DefaultWindowHours
	}
	cutoff := now.Add(-time.Duration(windowHours * float64(time.Hour)))

	ds := &Dataset{Cutoff: cutoff}
	errs := make([]error, 5)

	fetch := func(i int, source string, fn func() error) func() {
		return func() {
			start := time.Now()
			if err := fn(); err != nil {
				errs[i] = fmt.Errorf("failed to load %s: %w", source, err)
			}
			metrics.LoadDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
		}
	}

	tasks := []func(){
		fetch(0, "security_events", func() error {
			events, err := l.store.GetRecentSecurityEvents(ctx, cutoff, l.cfg.Engine.MaxSecurityEvents)
			ds.SecurityEvents = events
			return err
		}),
		fetch(1, "endpoints", func() error {
			endpoints, err := l.store.GetEndpoints(ctx, l.cfg.Engine.MaxEndpoints)
			ds.Endpoints = endpoints
			return err
		}),
		fetch(2, "endpoint_events", func() error {
			events, err := l.store.GetRecentEndpointEvents(ctx, cutoff, l.cfg.Engine.MaxEndpointEvents)
			ds.EndpointEvents = events
			return err
		}),
		fetch(3, "blocked_ips", func() error {
			blocked, err := l.store.GetActiveBlockedIPs(ctx)
			ds.BlockedIPs = blocked
			return err
		}),
		fetch(4, "correlation_rules", func() error {
			rules, err := l.store.GetEnabledCorrelationRules(ctx)
			ds.Rules = rules
			return err
		}),
	}

	var wg sync.WaitGroup
	wg.Add(len(tasks))
	for _, task := range tasks {
		go func(run func()) {
			defer wg.Done()
			run()
		}(task)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	l.logger.Debugw("Telemetry loaded",
		"security_events", len(ds.SecurityEvents),
		"endpoints", len(ds.Endpoints),
		"endpoint_events", len(ds.EndpointEvents),
		"blocked_ips", len(ds.BlockedIPs),
		"rules", len(ds.Rules),
		"cutoff", cutoff)

	return ds, nil
}
