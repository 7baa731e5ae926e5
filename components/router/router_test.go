package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/draftnrun/agentgraph/nodedata"
)

func TestRouterSelectsMatchingPort(t *testing.T) {
	r := New(Config{Attributes: nodedata.ComponentAttributes{InstanceName: "router"}})

	out, err := r.Run(context.Background(), nodedata.NodeData{
		Data: map[string]any{
			"routes": []any{
				map[string]any{"value_a": "a", "operator": "equals", "value_b": "b"},
				map[string]any{"value_a": "x", "operator": "equals", "value_b": "x"},
			},
		},
		Ctx: map[string]any{},
	})
	require.NoError(t, err)

	directive := nodedata.Directive(out)
	require.Equal(t, nodedata.StrategySelectivePorts, directive.Strategy)
	require.Equal(t, []string{PortName(1)}, directive.SelectedPorts)
}

func TestRouterNoMatchReturnsError(t *testing.T) {
	r := New(Config{Attributes: nodedata.ComponentAttributes{InstanceName: "router"}})

	_, err := r.Run(context.Background(), nodedata.NodeData{
		Data: map[string]any{
			"routes": []any{
				map[string]any{"value_a": "a", "operator": "equals", "value_b": "b"},
			},
		},
		Ctx: map[string]any{},
	})
	require.Error(t, err)
	var routeErr *NoMatchingRouteError
	require.True(t, errors.As(err, &routeErr))
	require.Equal(t, 1, routeErr.NumRoutes)
}

func TestRouterDefaultsValueBToValueA(t *testing.T) {
	r := New(Config{Attributes: nodedata.ComponentAttributes{InstanceName: "router"}})

	out, err := r.Run(context.Background(), nodedata.NodeData{
		Data: map[string]any{
			"routes": []any{
				map[string]any{"value_a": "only"},
			},
		},
		Ctx: map[string]any{},
	})
	require.NoError(t, err)
	require.Equal(t, []string{PortName(0)}, nodedata.Directive(out).SelectedPorts)
}
