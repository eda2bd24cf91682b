// Package observe provides application-wide observability primitives for
// bolbill: OpenTelemetry metrics, tracing, structured logging, and HTTP
// middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still
// be scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all bolbill metrics.
const meterName = "github.com/kiranaops/bolbill"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// ProcessDuration tracks end-to-end transcript processing latency.
	ProcessDuration metric.Float64Histogram

	// Commands counts processed commands. Use with attribute:
	//   attribute.String("outcome", ...) — added, merged, replaced, removed,
	//   unmatched, rejected, invalid, error.
	Commands metric.Int64Counter

	// ResolverMatches counts successful product resolutions by cascade
	// stage. Use with attribute: attribute.String("stage", ...).
	ResolverMatches metric.Int64Counter

	// MergeRejections counts cart merges refused by validation. Use with
	// attribute: attribute.String("reason", ...).
	MergeRejections metric.Int64Counter

	// DedupHits counts transcripts dropped by the duplicate-submission
	// guard.
	DedupHits metric.Int64Counter

	// ActiveSessions tracks the number of live order-intake sessions.
	ActiveSessions metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// transcript processing on small devices.
var latencyBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ProcessDuration, err = m.Float64Histogram("bolbill.process.duration",
		metric.WithDescription("Latency of one transcript processing pass."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.Commands, err = m.Int64Counter("bolbill.commands",
		metric.WithDescription("Total processed commands by outcome."),
	); err != nil {
		return nil, err
	}
	if met.ResolverMatches, err = m.Int64Counter("bolbill.resolver.matches",
		metric.WithDescription("Total product resolutions by cascade stage."),
	); err != nil {
		return nil, err
	}
	if met.MergeRejections, err = m.Int64Counter("bolbill.merge.rejections",
		metric.WithDescription("Total cart merges refused by stock or MOQ validation, by reason."),
	); err != nil {
		return nil, err
	}
	if met.DedupHits, err = m.Int64Counter("bolbill.dedup.hits",
		metric.WithDescription("Total transcripts dropped by the duplicate-submission guard."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("bolbill.active_sessions",
		metric.WithDescription("Number of live order-intake sessions."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("bolbill.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordCommand records one processed command with its outcome.
func (m *Metrics) RecordCommand(ctx context.Context, outcome string) {
	m.Commands.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

// RecordResolverMatch records a successful resolution by cascade stage.
func (m *Metrics) RecordResolverMatch(ctx context.Context, stage string) {
	m.ResolverMatches.Add(ctx, 1,
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}

// RecordMergeRejection records a refused cart merge by reason.
func (m *Metrics) RecordMergeRejection(ctx context.Context, reason string) {
	m.MergeRejections.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}
