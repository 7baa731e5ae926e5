// Package identity implements the prefix-adding test component used by
// spec.md's end-to-end scenarios 1 and 2: it reads the last message of its
// "messages" input and re-emits the same conversation with a configured
// prefix prepended to that message's content.
package identity

import (
	"context"
	"fmt"

	"github.com/draftnrun/agentgraph/component"
	"github.com/draftnrun/agentgraph/nodedata"
	"github.com/draftnrun/agentgraph/schema"
	"github.com/draftnrun/agentgraph/telemetry"
)

// Config configures an identity/prefix-adder instance.
type Config struct {
	Prefix     string
	Attributes nodedata.ComponentAttributes
	Tracer     telemetry.Tracer
	Metrics    telemetry.Metrics
}

// New builds the Component: canonical input/output port "messages".
func New(cfg Config) component.Component {
	base := &component.Base{
		Attributes: cfg.Attributes,
		Inputs:     schema.StructuredType{Fields: []schema.Port{{Name: "messages", Type: schema.TypeMessages, Required: true}}},
		Outputs:    schema.StructuredType{Fields: []schema.Port{{Name: "messages", Type: schema.TypeMessages}}},
		Canonical:  component.CanonicalPorts{Input: "messages", Output: "messages"},
		Tracer:     cfg.Tracer,
		Metrics:    cfg.Metrics,
	}
	base.Core = func(ctx context.Context, cc *component.CallContext, inputs map[string]any, _ map[string]any) (map[string]any, error) {
		messages, ok := inputs["messages"].([]nodedata.ChatMessage)
		if !ok {
			return nil, fmt.Errorf("identity: messages input must be []nodedata.ChatMessage, got %T", inputs["messages"])
		}
		if len(messages) == 0 {
			return map[string]any{"messages": messages}, nil
		}

		out := make([]nodedata.ChatMessage, len(messages))
		copy(out, messages)
		last := out[len(out)-1]
		last.Content = cfg.Prefix + last.Content
		out[len(out)-1] = last

		return map[string]any{"messages": out}, nil
	}
	return base
}
