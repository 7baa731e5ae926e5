package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// otelTracer delegates span creation to the global OTEL TracerProvider.
// Configure the provider (OTLP exporter, sampler, ...) via
// otel.SetTracerProvider before constructing one.
type otelTracer struct {
	tracer trace.Tracer
}

// otelSpan wraps an OTEL trace.Span to satisfy the Span interface, mapping
// the engine's untyped attribute map to OTEL's typed attribute.KeyValue.
type otelSpan struct {
	span trace.Span
}

// NewOTelTracer constructs a Tracer backed by the global OTEL tracer named
// scope.
func NewOTelTracer(scope string) Tracer {
	return &otelTracer{tracer: otel.Tracer(scope)}
}

// Start begins a new span named name as a child of ctx's current span.
func (t *otelTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name, opts...)
	return ctx, &otelSpan{span: span}
}

// SetAttributes converts each entry to an attribute.KeyValue using a type
// switch over the common JSON-ish value shapes (string, bool, numeric
// kinds); nil becomes "", and anything else is rendered by stringify (its
// JSON encoding, or its %v form when it cannot be marshaled).
func (s *otelSpan) SetAttributes(attrs map[string]any) {
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		kvs = append(kvs, toKeyValue(k, v))
	}
	s.span.SetAttributes(kvs...)
}

func toKeyValue(k string, v any) attribute.KeyValue {
	switch val := v.(type) {
	case string:
		return attribute.String(k, val)
	case bool:
		return attribute.Bool(k, val)
	case int:
		return attribute.Int(k, val)
	case int64:
		return attribute.Int64(k, val)
	case float64:
		return attribute.Float64(k, val)
	case nil:
		return attribute.String(k, "")
	default:
		return attribute.String(k, stringify(val))
	}
}

func (s *otelSpan) AddEvent(name string, attrs ...any) {
	s.span.AddEvent(name)
}

func (s *otelSpan) SetStatus(code codes.Code, description string) {
	s.span.SetStatus(code, description)
}

func (s *otelSpan) RecordError(err error, opts ...trace.EventOption) {
	s.span.RecordError(err, opts...)
}

func (s *otelSpan) End(opts ...trace.SpanEndOption) {
	s.span.End(opts...)
}

