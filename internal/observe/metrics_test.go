package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumFor returns the value of the int64 sum data point carrying key=value.
func sumFor(t *testing.T, rm metricdata.ResourceMetrics, name, key, value string) int64 {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not a sum", name)
	}
	for _, dp := range sum.DataPoints {
		if key == "" {
			return dp.Value
		}
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			return dp.Value
		}
	}
	t.Fatalf("metric %q: no data point with %s=%s", name, key, value)
	return 0
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestHistogramObservation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	histograms := []struct {
		name string
		h    metric.Float64Histogram
	}{
		{"voiceorder.resolution.duration", m.ResolutionDuration},
		{"voiceorder.catalog.fetch.duration", m.CatalogFetchDuration},
		{"voiceorder.submit.publish.duration", m.PublishDuration},
	}

	for _, tc := range histograms {
		tc.h.Record(ctx, 0.0012)
		tc.h.Record(ctx, 0.045)
	}

	rm := collect(t, reader)

	for _, tc := range histograms {
		t.Run(tc.name, func(t *testing.T) {
			met := findMetric(rm, tc.name)
			if met == nil {
				t.Fatalf("metric %q not found", tc.name)
			}
			hist, ok := met.Data.(metricdata.Histogram[float64])
			if !ok {
				t.Fatalf("metric %q is not a histogram", tc.name)
			}
			if len(hist.DataPoints) == 0 {
				t.Fatalf("metric %q has no data points", tc.name)
			}
			if got := hist.DataPoints[0].Count; got != 2 {
				t.Errorf("sample count = %d, want 2", got)
			}
		})
	}
}

func TestRecordResolution(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordResolution(ctx, OutcomeOK, 0.001, 0)
	m.RecordResolution(ctx, OutcomePartial, 0.002, 2)
	m.RecordResolution(ctx, OutcomePartial, 0.002, 1)
	m.RecordResolution(ctx, OutcomeMissingTable, 0.001, 0)

	rm := collect(t, reader)

	if got := sumFor(t, rm, "voiceorder.resolutions", "outcome", OutcomePartial); got != 2 {
		t.Errorf("partial resolutions = %d, want 2", got)
	}
	if got := sumFor(t, rm, "voiceorder.resolutions", "outcome", OutcomeOK); got != 1 {
		t.Errorf("ok resolutions = %d, want 1", got)
	}
	if got := sumFor(t, rm, "voiceorder.unresolved_items", "", ""); got != 3 {
		t.Errorf("unresolved items = %d, want 3", got)
	}
}

func TestRecordResolvedItem(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordResolvedItem(ctx, "exact")
	m.RecordResolvedItem(ctx, "exact")
	m.RecordResolvedItem(ctx, "")

	rm := collect(t, reader)
	if got := sumFor(t, rm, "voiceorder.resolved_items", "method", "exact"); got != 2 {
		t.Errorf("exact = %d, want 2", got)
	}
	if got := sumFor(t, rm, "voiceorder.resolved_items", "method", "none"); got != 1 {
		t.Errorf("none = %d, want 1", got)
	}
}

func TestRecordCatalogFetch(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordCatalogFetch(ctx, "postgres", 0.01, 42, nil)
	m.RecordCatalogFetch(ctx, "postgres", 0.5, 0, errors.New("connection refused"))

	rm := collect(t, reader)
	if got := sumFor(t, rm, "voiceorder.catalog.errors", "source", "postgres"); got != 1 {
		t.Errorf("catalog errors = %d, want 1", got)
	}

	met := findMetric(rm, "voiceorder.catalog.dishes")
	if met == nil {
		t.Fatal("catalog dishes gauge not found")
	}
	gauge, ok := met.Data.(metricdata.Gauge[int64])
	if !ok {
		t.Fatal("catalog dishes is not a gauge")
	}
	if len(gauge.DataPoints) != 1 || gauge.DataPoints[0].Value != 42 {
		t.Errorf("catalog dishes = %+v, want 42", gauge.DataPoints)
	}
}

func TestRecordPublish(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordPublish(ctx, "ok", 0.003)
	m.RecordPublish(ctx, "error", 0.2)

	rm := collect(t, reader)
	if got := sumFor(t, rm, "voiceorder.orders.published", "status", "ok"); got != 1 {
		t.Errorf("published ok = %d, want 1", got)
	}
}

func TestInFlightGauge(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.InFlightResolutions.Add(ctx, 1)
	m.InFlightResolutions.Add(ctx, 1)
	m.InFlightResolutions.Add(ctx, -1)

	rm := collect(t, reader)
	if got := sumFor(t, rm, "voiceorder.resolutions.in_flight", "", ""); got != 1 {
		t.Errorf("in flight = %d, want 1", got)
	}
}

func TestHTTPRequestDuration(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.HTTPRequestDuration.Record(ctx, 0.05,
		metric.WithAttributes(
			attribute.String("method", "GET"),
			attribute.String("path", "/healthz"),
		),
	)

	rm := collect(t, reader)
	met := findMetric(rm, "voiceorder.http.request.duration")
	if met == nil {
		t.Fatal("metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("metric is not a histogram")
	}
	if len(hist.DataPoints) == 0 {
		t.Fatal("no data points")
	}
	if got := hist.DataPoints[0].Count; got != 1 {
		t.Errorf("sample count = %d, want 1", got)
	}
}

func TestDefaultMetrics_ReturnsSameInstance(t *testing.T) {
	// DefaultMetrics uses the global OTel provider so we just check
	// that repeated calls return the same pointer.
	a := DefaultMetrics()
	b := DefaultMetrics()
	if a != b {
		t.Error("DefaultMetrics returned different pointers")
	}
}
