// Package telemetry abstracts the logging, tracing, and metrics surface the
// rest of the engine depends on, so the core never imports a concrete
// observability backend directly (spec.md §1, §9: "Tracer is process-wide;
// span creation is safe under concurrency"). Production code wires the OTEL
// adapter in otel.go and the Prometheus call counter in metrics.go; tests
// wire the Noop adapter in noop.go.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Logger captures structured logging used throughout the engine.
type Logger interface {
	Debug(ctx context.Context, msg string, keyvals ...any)
	Info(ctx context.Context, msg string, keyvals ...any)
	Warn(ctx context.Context, msg string, keyvals ...any)
	Error(ctx context.Context, msg string, keyvals ...any)
}

// Metrics exposes counter/timer/gauge helpers for engine instrumentation.
type Metrics interface {
	IncCounter(name string, value float64, tags ...string)
	RecordTimer(name string, duration time.Duration, tags ...string)
	RecordGauge(name string, value float64, tags ...string)
}

// Tracer abstracts span creation. Every component invocation opens a span
// through this interface in component.Base.Run, which covers MCP calls made
// through an mcptool.Tool. The ReAct loop opens no span of its own per LLM
// round; it only adds trace events to its component's span.
type Tracer interface {
	Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span)
}

// Span is an in-flight tracing span.
type Span interface {
	SetAttributes(attrs map[string]any)
	AddEvent(name string, attrs ...any)
	SetStatus(code codes.Code, description string)
	RecordError(err error, opts ...trace.EventOption)
	End(opts ...trace.SpanEndOption)
}
