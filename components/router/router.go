// Package router implements the Router component (SPEC_FULL.md's
// supplemented-features section): a branching node that emits no data of
// its own but signals which of its output ports are active via an
// ExecutionDirective, grounded on
// original_source/engine/components/router.py.
package router

import (
	"context"
	"fmt"
	"reflect"

	"github.com/draftnrun/agentgraph/component"
	"github.com/draftnrun/agentgraph/nodedata"
	"github.com/draftnrun/agentgraph/schema"
	"github.com/draftnrun/agentgraph/telemetry"
)

// NoMatchingRouteError is raised when none of a Router's configured routes
// matched, mirroring the original's NoMatchingRouteError(num_routes).
type NoMatchingRouteError struct {
	NumRoutes int
}

func (e *NoMatchingRouteError) Error() string {
	return fmt.Sprintf("router: no route matched out of %d configured route(s)", e.NumRoutes)
}

// RouteCondition is one entry of the routes input: a route matches when
// ValueA equals ValueB (ValueB defaults to ValueA when nil, so an omitted
// ValueB always matches — the original's behavior).
type RouteCondition struct {
	ValueA   any
	Operator string
	ValueB   any
}

// PortName returns the canonical "route_N" output port name for index i.
func PortName(i int) string { return fmt.Sprintf("route_%d", i) }

// Config configures a Router instance.
type Config struct {
	Attributes nodedata.ComponentAttributes
	Tracer     telemetry.Tracer
	Metrics    telemetry.Metrics
}

// New builds the Router Component. It has no canonical input/output port
// pair (get_canonical_ports returns {None, None} in the original): routing
// is driven entirely by the "routes" input and the ExecutionDirective it
// emits, while the actual payload passthrough happens via bypass mappings
// resolved by the graph scheduler.
func New(cfg Config) component.Component {
	base := &component.Base{
		Attributes: cfg.Attributes,
		Inputs: schema.StructuredType{Fields: []schema.Port{
			{Name: "routes", Type: schema.TypeJSON, Required: true},
		}},
		Outputs: schema.StructuredType{},
		Canonical: component.CanonicalPorts{},
		Tracer:    cfg.Tracer,
		Metrics:   cfg.Metrics,
	}
	base.Core = func(ctx context.Context, cc *component.CallContext, inputs map[string]any, _ map[string]any) (map[string]any, error) {
		routes, err := decodeRoutes(inputs["routes"])
		if err != nil {
			return nil, err
		}

		var matched []string
		for i, route := range routes {
			valueB := route.ValueB
			if valueB == nil {
				valueB = route.ValueA
			}
			if equalValues(route.ValueA, valueB) {
				matched = append(matched, PortName(i))
			}
		}

		if len(matched) == 0 {
			return nil, &NoMatchingRouteError{NumRoutes: len(routes)}
		}

		cc.LogTrace(map[string]any{"matched_routes": matched})
		return map[string]any{
			nodedata.DirectiveKey: nodedata.ExecutionDirective{
				Strategy:      nodedata.StrategySelectivePorts,
				SelectedPorts: matched,
			},
		}, nil
	}
	return base
}

func decodeRoutes(raw any) ([]RouteCondition, error) {
	list, ok := raw.([]any)
	if !ok {
		if typed, ok := raw.([]RouteCondition); ok {
			return typed, nil
		}
		return nil, fmt.Errorf("router: routes input must be a list, got %T", raw)
	}
	out := make([]RouteCondition, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("router: each route must be an object, got %T", item)
		}
		operator, _ := m["operator"].(string)
		if operator == "" {
			operator = "equals"
		}
		out = append(out, RouteCondition{ValueA: m["value_a"], Operator: operator, ValueB: m["value_b"]})
	}
	return out, nil
}

// equalValues implements the single "equals" operator the original
// supports: exact equality for like-typed values, falling back to a
// string comparison across differing but JSON-decoded scalar types.
func equalValues(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
