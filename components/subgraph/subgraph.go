// Package subgraph implements GraphRunnerBlock: a Component whose body is
// itself a nested graph.Runner, invoked opaquely by the outer scheduler
// (spec.md "Sub-graphs"), grounded on
// original_source/engine/components/graph_runner_block.py.
package subgraph

import (
	"context"

	"github.com/draftnrun/agentgraph/component"
	"github.com/draftnrun/agentgraph/graph"
	"github.com/draftnrun/agentgraph/nodedata"
	"github.com/draftnrun/agentgraph/schema"
	"github.com/draftnrun/agentgraph/telemetry"
)

// Config configures a GraphRunnerBlock instance.
type Config struct {
	Runner     *graph.Runner
	Attributes nodedata.ComponentAttributes
	Tracer     telemetry.Tracer
	Metrics    telemetry.Metrics
}

// New builds the Component wrapping runner: the block's whole validated
// input data map (undeclared keys included) and ctx become the inner run's
// NodeData, and its single canonical output "output" carries the Data of
// the inner graph's terminal result. The block returns its own input ctx;
// the inner terminal result's Ctx is not propagated.
func New(cfg Config) component.Component {
	base := &component.Base{
		Attributes: cfg.Attributes,
		Inputs:     schema.StructuredType{Fields: []schema.Port{{Name: "input", Type: schema.TypeAny}}},
		Outputs:    schema.StructuredType{Fields: []schema.Port{{Name: "output", Type: schema.TypeAny}}},
		Canonical:  component.CanonicalPorts{Input: "input", Output: "output"},
		Tracer:     cfg.Tracer,
		Metrics:    cfg.Metrics,
	}
	base.Core = func(ctx context.Context, cc *component.CallContext, inputs map[string]any, runCtx map[string]any) (map[string]any, error) {
		in := nodedata.NodeData{Data: inputs, Ctx: runCtx}

		result, err := cfg.Runner.Run(ctx, in)
		if err != nil {
			return nil, err
		}

		cc.LogTrace(map[string]any{"subgraph_terminal_nodes": len(result.ByNode)})
		return map[string]any{"output": result.Terminal.Data}, nil
	}
	return base
}
