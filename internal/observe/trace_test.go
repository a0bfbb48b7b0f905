package observe

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// useTestTracer installs a TracerProvider backed by an in-memory exporter as
// the global provider for the duration of the test.
func useTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return exp
}

// captureLogs redirects the default slog logger into a buffer.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestCorrelationID_EmptyWithoutSpan(t *testing.T) {
	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("CorrelationID(background) = %q, want empty", got)
	}
}

func TestStartSpan_ResolveThenPublishShareTrace(t *testing.T) {
	exp := useTestTracer(t)

	ctx, order := StartSpan(context.Background(), "POST /v1/orders/submit")
	cid := CorrelationID(ctx)
	if len(cid) != 32 {
		t.Fatalf("correlation id = %q, want 32 hex chars", cid)
	}
	_, resolve := StartSpan(ctx, "transcript.Resolve")
	resolve.End()
	_, publish := StartSpan(ctx, "submit.Publish")
	publish.End()
	order.End()

	spans := exp.GetSpans()
	if len(spans) != 3 {
		t.Fatalf("recorded %d spans, want 3", len(spans))
	}
	parent := spans[2]
	if parent.Name != "POST /v1/orders/submit" {
		t.Fatalf("last span = %q, want the request span", parent.Name)
	}
	for _, s := range spans[:2] {
		if got := s.SpanContext.TraceID().String(); got != cid {
			t.Errorf("%s trace id = %s, want %s", s.Name, got, cid)
		}
		if s.Parent.SpanID() != parent.SpanContext.SpanID() {
			t.Errorf("%s is not a child of the request span", s.Name)
		}
	}
}

func TestStartSpan_RecordsSpeaker(t *testing.T) {
	exp := useTestTracer(t)

	tests := []struct {
		name    string
		speaker string
	}{
		{name: "dictated by waiter", speaker: "waiter-7"},
		{name: "anonymous tablet", speaker: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp.Reset()
			ctx := context.Background()
			if tt.speaker != "" {
				ctx = ContextWithSpeaker(ctx, tt.speaker)
			}
			_, span := StartSpan(ctx, "transcript.Resolve")
			span.End()

			spans := exp.GetSpans()
			if len(spans) != 1 {
				t.Fatalf("recorded %d spans, want 1", len(spans))
			}
			var got string
			for _, a := range spans[0].Attributes {
				if a.Key == SpeakerKey {
					got = a.Value.AsString()
				}
			}
			if got != tt.speaker {
				t.Errorf("%s = %q, want %q", SpeakerKey, got, tt.speaker)
			}
		})
	}
}

func TestCorrelationID_UniquePerOrder(t *testing.T) {
	useTestTracer(t)

	ids := make(map[string]struct{}, 50)
	for range 50 {
		ctx, span := StartSpan(context.Background(), "transcript.Resolve")
		cid := CorrelationID(ctx)
		span.End()
		if _, dup := ids[cid]; dup {
			t.Fatalf("duplicate correlation id: %s", cid)
		}
		ids[cid] = struct{}{}
	}
}

func TestLogger_CarriesPublishSpanAndSpeaker(t *testing.T) {
	useTestTracer(t)
	buf := captureLogs(t)

	ctx := ContextWithSpeaker(context.Background(), "waiter-7")
	ctx, span := StartSpan(ctx, "submit.Publish")
	defer span.End()

	Logger(ctx).Info("order published", "table", 4)

	logged := buf.String()
	for _, want := range []string{
		"trace_id=" + span.SpanContext().TraceID().String(),
		"span_id=" + span.SpanContext().SpanID().String(),
		"speaker=waiter-7",
		"table=4",
	} {
		if !strings.Contains(logged, want) {
			t.Errorf("log output missing %q, got: %s", want, logged)
		}
	}
}

func TestLogger_WithoutSpanOrSpeaker(t *testing.T) {
	buf := captureLogs(t)

	Logger(context.Background()).Info("catalog refreshed")

	logged := buf.String()
	for _, unwanted := range []string{"trace_id", "span_id", "speaker"} {
		if strings.Contains(logged, unwanted) {
			t.Errorf("log output should not contain %s, got: %s", unwanted, logged)
		}
	}
	if SpeakerFromContext(context.Background()) != "" {
		t.Error("SpeakerFromContext on empty context should be empty")
	}
}
