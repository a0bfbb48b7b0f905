package observe

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// RestaurantKey is the resource attribute naming the restaurant a voiceorder
// instance takes orders for.
const RestaurantKey = attribute.Key("restaurant.name")

// ProviderConfig configures the OpenTelemetry SDK providers.
type ProviderConfig struct {
	// ServiceName is the service name reported in telemetry. Default: "voiceorder".
	ServiceName string

	// ServiceVersion is the build version reported in telemetry.
	ServiceVersion string

	// Restaurant is attached to every metric series and span as
	// restaurant.name so several restaurants can share one backend.
	// Omitted when empty.
	Restaurant string

	// Instance is the service.instance.id. A random UUID when empty.
	Instance string

	// SampleRatio is the fraction of new traces that are sampled, in [0, 1].
	// Children of a sampled remote parent are always sampled. Nil samples
	// every trace.
	SampleRatio *float64

	// TraceExporter receives finished spans. When nil, spans are recorded
	// but not exported.
	TraceExporter sdktrace.SpanExporter
}

// Provider owns the metric and trace providers of one voiceorder process.
//
// Metrics are exported through a Prometheus registry private to the
// provider, so two providers in one process (tests, mostly) never collide
// on collector registration.
type Provider struct {
	// Metrics are the voiceorder instruments bound to this provider.
	Metrics *Metrics

	mp       *sdkmetric.MeterProvider
	tp       *sdktrace.TracerProvider
	registry *prometheus.Registry
	res      *resource.Resource
}

// NewProvider builds the providers described by cfg without touching the
// global OTel state. Call [Provider.Install] to make them global.
func NewProvider(cfg ProviderConfig) (*Provider, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "voiceorder"
	}
	if cfg.Instance == "" {
		cfg.Instance = uuid.NewString()
	}
	if r := cfg.SampleRatio; r != nil && (*r < 0 || *r > 1) {
		return nil, fmt.Errorf("observe: sample ratio %v outside [0, 1]", *r)
	}

	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.ServiceInstanceID(cfg.Instance),
	}
	if cfg.Restaurant != "" {
		attrs = append(attrs, RestaurantKey.String(cfg.Restaurant))
	}
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(semconv.SchemaURL, attrs...))
	if err != nil {
		return nil, fmt.Errorf("observe: build resource: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	exp, err := promexporter.New(promexporter.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("observe: prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exp),
	)

	m, err := NewMetrics(mp)
	if err != nil {
		_ = mp.Shutdown(context.Background())
		return nil, fmt.Errorf("observe: create instruments: %w", err)
	}

	sampler := sdktrace.AlwaysSample()
	if cfg.SampleRatio != nil {
		sampler = sdktrace.TraceIDRatioBased(*cfg.SampleRatio)
	}
	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler)),
	}
	if cfg.TraceExporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(cfg.TraceExporter))
	}

	return &Provider{
		Metrics:  m,
		mp:       mp,
		tp:       sdktrace.NewTracerProvider(tpOpts...),
		registry: reg,
		res:      res,
	}, nil
}

// InitProvider builds a [Provider] and installs it as the global OTel meter
// and tracer provider. Call [Provider.Shutdown] before exiting.
func InitProvider(cfg ProviderConfig) (*Provider, error) {
	p, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	p.Install()
	return p, nil
}

// Install registers p's providers as the global OTel providers, so
// [StartSpan] and [DefaultMetrics] report through p.
func (p *Provider) Install() {
	otel.SetMeterProvider(p.mp)
	otel.SetTracerProvider(p.tp)
}

// Handler serves p's metrics in the Prometheus exposition format.
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Tracer returns a voiceorder tracer bound to p rather than to the global
// provider.
func (p *Provider) Tracer() trace.Tracer {
	return p.tp.Tracer(tracerName)
}

// Resource describes the process, as attached to every span and series.
func (p *Provider) Resource() *resource.Resource {
	return p.res
}

// ForceFlush exports spans still buffered in the batcher.
func (p *Provider) ForceFlush(ctx context.Context) error {
	return p.tp.ForceFlush(ctx)
}

// Shutdown flushes and closes both providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	return errors.Join(p.tp.Shutdown(ctx), p.mp.Shutdown(ctx))
}
