package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/prohmpiriya/wedding-market/pkg/telemetry"
)

var (
	// Pricing counters
	QuotesServed     *telemetry.Counter
	SnapshotFailures *telemetry.Counter
	StaleLoads       *telemetry.Counter

	// Calendar counters
	CalendarWrites   *telemetry.Counter
	DealsExpired     *telemetry.Counter
	ModerationsTotal *telemetry.Counter
	PublishFailures  *telemetry.Counter

	// Histograms
	SnapshotLoadDuration *telemetry.Histogram
	CalendarRangeDays    *telemetry.Histogram

	initOnce sync.Once
	initErr  error
)

// Init initializes all pricing service metrics
func Init() error {
	initOnce.Do(func() {
		initErr = initMetrics()
	})
	return initErr
}

func initMetrics() error {
	var err error

	QuotesServed, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "pricing_quotes_total",
		Description: "Total number of availability and price answers served",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	SnapshotFailures, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "pricing_snapshot_failures_total",
		Description: "Total number of failed calendar snapshot loads by source",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	StaleLoads, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "pricing_stale_loads_total",
		Description: "Total number of snapshot loads discarded because a newer load started",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	CalendarWrites, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "calendar_writes_total",
		Description: "Total number of owner calendar changes by kind",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	DealsExpired, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "calendar_deals_expired_total",
		Description: "Total number of deals deactivated after their end date",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	ModerationsTotal, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "listing_moderations_total",
		Description: "Total number of moderation decisions by status",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	PublishFailures, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "listing_event_publish_failures_total",
		Description: "Total number of listing events that could not be published",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	SnapshotLoadDuration, err = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "pricing_snapshot_load_duration_seconds",
		Description: "Duration of a three-source calendar snapshot load",
		Unit:        "s",
	}, []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}) // 1ms to 2.5s
	if err != nil {
		return err
	}

	CalendarRangeDays, err = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "pricing_calendar_range_days",
		Description: "Number of dates requested per calendar query",
		Unit:        "1",
	}, []float64{1, 7, 14, 31, 62, 93, 183, 366})
	if err != nil {
		return err
	}

	return nil
}

// RecordQuote records an answered pricing query
func RecordQuote(ctx context.Context, kind, query string) {
	if QuotesServed != nil {
		QuotesServed.Inc(ctx,
			attribute.String("listing_kind", kind),
			attribute.String("query", query),
		)
	}
}

// RecordSnapshotLoad records a snapshot load outcome and its duration
func RecordSnapshotLoad(ctx context.Context, kind string, days int, durationSeconds float64) {
	if SnapshotLoadDuration != nil {
		SnapshotLoadDuration.Record(ctx, durationSeconds,
			attribute.String("listing_kind", kind),
		)
	}
	if CalendarRangeDays != nil {
		CalendarRangeDays.Record(ctx, float64(days))
	}
}

// RecordSnapshotFailure records a failed snapshot load
func RecordSnapshotFailure(ctx context.Context, source string) {
	if SnapshotFailures != nil {
		SnapshotFailures.Inc(ctx,
			attribute.String("source", source),
		)
	}
}

// RecordStaleLoad records a discarded snapshot load
func RecordStaleLoad(ctx context.Context) {
	if StaleLoads != nil {
		StaleLoads.Inc(ctx)
	}
}

// RecordCalendarWrite records an owner calendar change
func RecordCalendarWrite(ctx context.Context, kind, change string) {
	if CalendarWrites != nil {
		CalendarWrites.Inc(ctx,
			attribute.String("listing_kind", kind),
			attribute.String("change", change),
		)
	}
}

// RecordDealsExpired records deals deactivated by the expiry worker
func RecordDealsExpired(ctx context.Context, count int64) {
	if DealsExpired != nil && count > 0 {
		DealsExpired.Add(ctx, count)
	}
}

// RecordModeration records a moderation decision
func RecordModeration(ctx context.Context, status string) {
	if ModerationsTotal != nil {
		ModerationsTotal.Inc(ctx,
			attribute.String("status", status),
		)
	}
}

// RecordPublishFailure records an event that could not be published
func RecordPublishFailure(ctx context.Context, eventType string) {
	if PublishFailures != nil {
		PublishFailures.Inc(ctx,
			attribute.String("event_type", eventType),
		)
	}
}
