package component

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/codes"

	"github.com/draftnrun/agentgraph/nodedata"
	"github.com/draftnrun/agentgraph/schema"
	"github.com/draftnrun/agentgraph/telemetry"
)

// CoreFunc is a component's own execution logic, the Go analogue of the
// Python Component's abstract `_run_without_io_trace`: it receives already
// input-validated data and the raw ctx map, and returns the component's
// typed output as a map (which Base then output-validates).
type CoreFunc func(ctx context.Context, cc *CallContext, inputs map[string]any, runCtx map[string]any) (map[string]any, error)

// ValidationError reports that a component's returned data does not match
// its declared OutputsSchema.
type ValidationError struct {
	Component string
	Field     *schema.FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("component %q returned invalid output: %s", e.Component, e.Field.Error())
}

func (e *ValidationError) Unwrap() error { return e.Field }

// Base implements the Component Contract Wrapper (spec.md §4.2) around a
// CoreFunc: it opens a trace span, validates inputs against Inputs,
// invokes Core, validates the result against Outputs, flushes
// CallContext side-channel data to the span, and records a Prometheus-style
// call count via Metrics.
type Base struct {
	Attributes nodedata.ComponentAttributes
	Tool       nodedata.ToolDescription
	Inputs     schema.StructuredType
	Outputs    schema.StructuredType
	Canonical  CanonicalPorts
	Tracer     telemetry.Tracer
	Metrics    telemetry.Metrics
	Core       CoreFunc
	// ExtraTools, when non-nil, overrides GetToolDescriptions to return a
	// set larger than {Tool} — used by multi-tool components (MCP).
	ExtraTools []nodedata.ToolDescription
}

// Name returns the traced instance name.
func (b *Base) Name() string { return b.Attributes.InstanceName }

// InputsSchema implements Component.
func (b *Base) InputsSchema() schema.StructuredType { return b.Inputs }

// OutputsSchema implements Component.
func (b *Base) OutputsSchema() schema.StructuredType { return b.Outputs }

// CanonicalPorts implements Component.
func (b *Base) CanonicalPorts() CanonicalPorts { return b.Canonical }

// GetToolDescriptions implements ToolDescriber.
func (b *Base) GetToolDescriptions() []nodedata.ToolDescription {
	if b.ExtraTools != nil {
		return b.ExtraTools
	}
	return []nodedata.ToolDescription{b.Tool}
}

// Run dispatches to Core under tracing and schema validation, per spec.md
// §4.2.
func (b *Base) Run(ctx context.Context, in nodedata.NodeData) (nodedata.NodeData, error) {
	tracer := b.Tracer
	if tracer == nil {
		tracer = telemetry.NewNoopTracer()
	}
	metrics := b.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}

	ctx, span := tracer.Start(ctx, b.Attributes.InstanceName)
	defer span.End()

	attrs := map[string]any{
		"span_kind":            "AGENT",
		"component_instance_id": b.Attributes.InstanceID,
		"input_value":          serializeTraced(in.Data),
	}
	if b.Tool.IsTool() {
		attrs["tool_name"] = b.Tool.Name
		attrs["tool_description"] = b.Tool.Description
		attrs["tool_parameters"] = serializeTraced(in.Data)
	}
	span.SetAttributes(attrs)

	out, err := b.run(ctx, span, in)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		metrics.IncCounter("component_calls_total", 1, "error")
		return nodedata.NodeData{}, err
	}
	span.SetStatus(codes.Ok, "")
	metrics.IncCounter("component_calls_total", 1, "ok")
	return out, nil
}

func (b *Base) run(ctx context.Context, span telemetry.Span, in nodedata.NodeData) (nodedata.NodeData, error) {
	validatedIn, err := b.Inputs.Validate(in.Data)
	if err != nil {
		fe, _ := err.(*schema.FieldError)
		return nodedata.NodeData{}, &ValidationError{Component: b.Attributes.InstanceName, Field: fe}
	}

	cc := &CallContext{}
	result, err := b.Core(ctx, cc, validatedIn, in.Ctx)
	if err != nil {
		b.flush(span, cc)
		return nodedata.NodeData{}, err
	}

	validatedOut, err := b.Outputs.Validate(result)
	if err != nil {
		fe, _ := err.(*schema.FieldError)
		b.flush(span, cc)
		return nodedata.NodeData{}, &ValidationError{Component: b.Attributes.InstanceName, Field: fe}
	}

	out := nodedata.NodeData{Data: validatedOut, Ctx: in.Ctx}
	span.SetAttributes(map[string]any{"output_value": serializeTraced(out.Data)})
	b.flush(span, cc)
	return out, nil
}

func (b *Base) flush(span telemetry.Span, cc *CallContext) {
	if len(cc.attrs) > 0 {
		span.SetAttributes(cc.attrs)
	}
	for _, e := range cc.events {
		span.AddEvent(e)
	}
}
