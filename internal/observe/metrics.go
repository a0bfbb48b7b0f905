// Package observe provides application-wide observability primitives for
// voiceorder: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [NewProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
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

// meterName is the instrumentation scope name used for all voiceorder metrics.
const meterName = "github.com/MrWong99/voiceorder"

// Resolution outcomes recorded by [Metrics.RecordResolution].
const (
	OutcomeOK                = "ok"
	OutcomePartial           = "partial"
	OutcomeMissingTable      = "missing_table"
	OutcomeNoResolvableItems = "no_resolvable_items"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// ResolutionDuration tracks end-to-end transcript → order latency.
	ResolutionDuration metric.Float64Histogram

	// CatalogFetchDuration tracks how long a catalog snapshot takes to load.
	// Use with attribute:
	//   attribute.String("source", ...)
	CatalogFetchDuration metric.Float64Histogram

	// PublishDuration tracks how long publishing a confirmed order takes.
	PublishDuration metric.Float64Histogram

	// --- Counters ---

	// Resolutions counts resolved transcripts. Use with attribute:
	//   attribute.String("outcome", ...)
	Resolutions metric.Int64Counter

	// ResolvedItems counts item phrases by the alias stage that matched
	// them. Use with attribute:
	//   attribute.String("method", ...)
	ResolvedItems metric.Int64Counter

	// UnresolvedItems counts spoken items that matched no catalog dish.
	UnresolvedItems metric.Int64Counter

	// OrdersPublished counts orders handed to the kitchen. Use with attribute:
	//   attribute.String("status", ...)
	OrdersPublished metric.Int64Counter

	// --- Error counters ---

	// CatalogErrors counts failed catalog fetches. Use with attribute:
	//   attribute.String("source", ...)
	CatalogErrors metric.Int64Counter

	// --- Gauges ---

	// InFlightResolutions tracks resolutions currently running.
	InFlightResolutions metric.Int64UpDownCounter

	// CatalogDishes records the size of the last fetched catalog snapshot.
	CatalogDishes metric.Int64Gauge

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...),
	//   attribute.Int("status", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Resolution
// itself is sub-millisecond; catalog and broker round-trips dominate the
// upper buckets.
var latencyBuckets = []float64{
	0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.ResolutionDuration, err = m.Float64Histogram("voiceorder.resolution.duration",
		metric.WithDescription("Latency of resolving a transcript into an order."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CatalogFetchDuration, err = m.Float64Histogram("voiceorder.catalog.fetch.duration",
		metric.WithDescription("Latency of loading a catalog snapshot."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PublishDuration, err = m.Float64Histogram("voiceorder.submit.publish.duration",
		metric.WithDescription("Latency of publishing a confirmed order."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Resolutions, err = m.Int64Counter("voiceorder.resolutions",
		metric.WithDescription("Total transcript resolutions by outcome."),
	); err != nil {
		return nil, err
	}
	if met.ResolvedItems, err = m.Int64Counter("voiceorder.resolved_items",
		metric.WithDescription("Total item phrases by alias match method."),
	); err != nil {
		return nil, err
	}
	if met.UnresolvedItems, err = m.Int64Counter("voiceorder.unresolved_items",
		metric.WithDescription("Total spoken items that matched no catalog dish."),
	); err != nil {
		return nil, err
	}
	if met.OrdersPublished, err = m.Int64Counter("voiceorder.orders.published",
		metric.WithDescription("Total orders handed to the kitchen by status."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.CatalogErrors, err = m.Int64Counter("voiceorder.catalog.errors",
		metric.WithDescription("Total failed catalog fetches by source."),
	); err != nil {
		return nil, err
	}

	// Gauges.
	if met.InFlightResolutions, err = m.Int64UpDownCounter("voiceorder.resolutions.in_flight",
		metric.WithDescription("Number of resolutions currently running."),
	); err != nil {
		return nil, err
	}
	if met.CatalogDishes, err = m.Int64Gauge("voiceorder.catalog.dishes",
		metric.WithDescription("Number of dishes in the last catalog snapshot."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("voiceorder.http.request.duration",
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

// RecordResolution records one finished resolution with its outcome and the
// number of unresolved items it produced.
func (m *Metrics) RecordResolution(ctx context.Context, outcome string, seconds float64, unresolved int) {
	m.Resolutions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	m.ResolutionDuration.Record(ctx, seconds)
	if unresolved > 0 {
		m.UnresolvedItems.Add(ctx, int64(unresolved))
	}
}

// RecordResolvedItem records one item phrase resolved by method. Unmatched
// phrases use method "none".
func (m *Metrics) RecordResolvedItem(ctx context.Context, method string) {
	if method == "" {
		method = "none"
	}
	m.ResolvedItems.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
}

// RecordCatalogFetch records a catalog snapshot fetch. A non-nil err counts
// as a catalog error; otherwise the snapshot size gauge is updated.
func (m *Metrics) RecordCatalogFetch(ctx context.Context, source string, seconds float64, dishes int, err error) {
	attrs := metric.WithAttributes(attribute.String("source", source))
	m.CatalogFetchDuration.Record(ctx, seconds, attrs)
	if err != nil {
		m.CatalogErrors.Add(ctx, 1, attrs)
		return
	}
	m.CatalogDishes.Record(ctx, int64(dishes), attrs)
}

// RecordPublish records a publish attempt with status "ok" or "error".
func (m *Metrics) RecordPublish(ctx context.Context, status string, seconds float64) {
	m.OrdersPublished.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	m.PublishDuration.Record(ctx, seconds)
}
