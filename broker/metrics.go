package broker

import (
	"context"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("unf.broker")

// Notice dispositions in Process.
const (
	dispositionSent      = "sent"
	dispositionCaptured  = "captured"
	dispositionDiscarded = "discarded"
)

// Transaction events.
const (
	eventBegin = "begin"
	eventEnd   = "end"
	eventAbort = "abort"
)

var (
	processedTotal   metric.Int64Counter
	sentTotal        metric.Int64Counter
	transactionTotal metric.Int64Counter
	foldTotal        metric.Int64Counter

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

		processedTotal, err = meter.Int64Counter(
			"broker_notices_processed_total",
			metric.WithDescription("Total number of notices passed to Process by disposition"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		sentTotal, err = meter.Int64Counter(
			"broker_notices_sent_total",
			metric.WithDescription("Total number of notices delivered to listeners"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		transactionTotal, err = meter.Int64Counter(
			"broker_transactions_total",
			metric.WithDescription("Total number of transaction events"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		foldTotal, err = meter.Int64Counter(
			"broker_merge_folds_total",
			metric.WithDescription("Total number of notices folded into another on commit"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordProcessed(ctx context.Context, typeID, disposition string) {
	if !metricsEnabled.Load() {
		return
	}
	if err := initMetrics(); err != nil {
		return
	}
	processedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", typeID),
		attribute.String("disposition", disposition),
	))
}

func recordSent(ctx context.Context, typeID string) {
	if !metricsEnabled.Load() {
		return
	}
	if err := initMetrics(); err != nil {
		return
	}
	sentTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("type", typeID)))
}

func recordTransaction(ctx context.Context, event string) {
	if !metricsEnabled.Load() {
		return
	}
	if err := initMetrics(); err != nil {
		return
	}
	transactionTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("event", event)))
}

func recordFolds(ctx context.Context, typeID string, count int) {
	if !metricsEnabled.Load() || count == 0 {
		return
	}
	if err := initMetrics(); err != nil {
		return
	}
	foldTotal.Add(ctx, int64(count), metric.WithAttributes(attribute.String("type", typeID)))
}
