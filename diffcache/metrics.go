package diffcache

import (
	"context"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("unf.diffcache")

var (
	updateTotal     metric.Int64Counter
	resyncedTotal   metric.Int64Counter
	classifiedTotal metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

var metricsEnabled atomic.Bool

func init() {
	metricsEnabled.Store(true)
}

// SetMetricsEnabled controls whether metrics are recorded.
func SetMetricsEnabled(enabled bool) {
	metricsEnabled.Store(enabled)
}

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		updateTotal, err = meter.Int64Counter(
			"diffcache_update_total",
			metric.WithDescription("Total number of diff cache updates"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		resyncedTotal, err = meter.Int64Counter(
			"diffcache_resynced_paths_total",
			metric.WithDescription("Total number of resynced paths submitted to the diff cache"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		classifiedTotal, err = meter.Int64Counter(
			"diffcache_classified_paths_total",
			metric.WithDescription("Net number of paths newly classified per category"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordUpdate records one Update call. The deltas are the growth of each
// result set; negative deltas (evictions) are not recorded.
func recordUpdate(ctx context.Context, resynced, added, removed, modified int) {
	if !metricsEnabled.Load() {
		return
	}
	if err := initMetrics(); err != nil {
		return
	}

	updateTotal.Add(ctx, 1)
	resyncedTotal.Add(ctx, int64(resynced))
	for class, delta := range map[string]int{"added": added, "removed": removed, "modified": modified} {
		if delta > 0 {
			classifiedTotal.Add(ctx, int64(delta), metric.WithAttributes(attribute.String("class", class)))
		}
	}
}
