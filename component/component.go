// Package component defines the polymorphic Component contract every graph
// node implements (spec.md §3) and the uniform Wrapper dispatcher around
// it (spec.md §4.2): tracing, input/output validation, and the
// log_trace/log_trace_event side channel.
package component

import (
	"context"

	"github.com/draftnrun/agentgraph/nodedata"
	"github.com/draftnrun/agentgraph/schema"
)

// CanonicalPorts names the default input/output port used when an edge is
// drawn without explicit port names. Either field may be empty, meaning "no
// canonical port" (e.g. a Router, which has none).
type CanonicalPorts struct {
	Input  string
	Output string
}

// Runnable is the minimal execution contract: anything the graph scheduler
// or the ReAct loop can invoke with a NodeData and await a NodeData back.
// Both Component and MCP tool adapters satisfy Runnable.
type Runnable interface {
	Run(ctx context.Context, in nodedata.NodeData) (nodedata.NodeData, error)
}

// ToolDescriber is implemented by anything that can report the LLM-visible
// tool descriptions it exposes — ordinarily one (single-tool components)
// but many for MCP components wrapping several remote tools (spec.md §3).
type ToolDescriber interface {
	GetToolDescriptions() []nodedata.ToolDescription
}

// ToolNameRequirer is an optional capability a multi-tool Component (a
// mcptool.Tool fronting every tool of one MCP server behind one Runnable) can
// implement: it tells the ReAct loop's dispatcher to inject the specific
// LLM-chosen tool name into the call arguments under the "tool_name" key,
// since Run alone can't otherwise tell which of the several tools it
// exposes is being invoked.
type ToolNameRequirer interface {
	RequiresToolName() bool
}

// Component is the polymorphic entity every graph node implements.
type Component interface {
	Runnable
	ToolDescriber

	// Name identifies this node instance for tracing and error messages.
	Name() string
	InputsSchema() schema.StructuredType
	OutputsSchema() schema.StructuredType
	CanonicalPorts() CanonicalPorts
}

// CallContext is handed to a component's core logic so it can attach
// additional trace attributes/events without reaching into the Wrapper's
// internals; the Wrapper flushes these to the open span once the call
// returns (spec.md §4.2 "Side-channel").
type CallContext struct {
	attrs  map[string]any
	events []string
}

// LogTrace records additional attributes to be set on the current
// invocation's span.
func (c *CallContext) LogTrace(attrs map[string]any) {
	if len(attrs) == 0 {
		return
	}
	if c.attrs == nil {
		c.attrs = map[string]any{}
	}
	for k, v := range attrs {
		c.attrs[k] = v
	}
}

// LogTraceEvent records an event message to be added to the current
// invocation's span.
func (c *CallContext) LogTraceEvent(message string) {
	if message == "" {
		return
	}
	c.events = append(c.events, message)
}
