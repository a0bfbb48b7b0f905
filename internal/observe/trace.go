package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope name for the voiceorder tracer.
const tracerName = "github.com/MrWong99/voiceorder"

// Tracer returns the package-level [trace.Tracer] for voiceorder. It uses the
// globally registered [trace.TracerProvider].
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// SpeakerKey is the span attribute carrying the id of the waiter who
// dictated an order.
const SpeakerKey = attribute.Key("voiceorder.speaker")

// StartSpan starts a new span and returns the updated context and span. A
// speaker set with [ContextWithSpeaker] is recorded as [SpeakerKey]. The
// caller must call span.End() when done.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if id := SpeakerFromContext(ctx); id != "" {
		opts = append(opts, trace.WithAttributes(SpeakerKey.String(id)))
	}
	return Tracer().Start(ctx, name, opts...)
}

// CorrelationID extracts the trace ID from the OTel span context in ctx.
// Returns the empty string when no active span with a valid trace ID exists.
// Waiter-facing error responses echo it so a failed order can be found in
// the logs.
func CorrelationID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

type speakerKey struct{}

// ContextWithSpeaker returns a copy of ctx carrying the id of the waiter who
// dictated the current order.
func ContextWithSpeaker(ctx context.Context, speakerID string) context.Context {
	return context.WithValue(ctx, speakerKey{}, speakerID)
}

// SpeakerFromContext returns the speaker id stored by [ContextWithSpeaker],
// or the empty string.
func SpeakerFromContext(ctx context.Context) string {
	id, _ := ctx.Value(speakerKey{}).(string)
	return id
}

// Logger returns an [slog.Logger] enriched with trace_id and span_id from
// the OTel span context in ctx, and with the speaker id when one is set.
// When neither is present, the returned logger is the default slog logger
// without extra attributes.
func Logger(ctx context.Context) *slog.Logger {
	l := slog.Default()
	if id := SpeakerFromContext(ctx); id != "" {
		l = l.With(slog.String("speaker", id))
	}
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		l = l.With(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return l
}
