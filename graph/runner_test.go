package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftnrun/agentgraph/component"
	"github.com/draftnrun/agentgraph/nodedata"
	"github.com/draftnrun/agentgraph/schema"
)

// fakeNode is a minimal component.Component for graph-package tests: it
// applies fn to its validated input and reports fixed schemas/canonical
// ports, without going through the full tracing Wrapper.
type fakeNode struct {
	name      string
	in, out   schema.StructuredType
	canonical component.CanonicalPorts
	fn        func(nodedata.NodeData) (nodedata.NodeData, error)
}

func (f *fakeNode) Name() string                               { return f.name }
func (f *fakeNode) InputsSchema() schema.StructuredType         { return f.in }
func (f *fakeNode) OutputsSchema() schema.StructuredType        { return f.out }
func (f *fakeNode) CanonicalPorts() component.CanonicalPorts    { return f.canonical }
func (f *fakeNode) GetToolDescriptions() []nodedata.ToolDescription { return nil }
func (f *fakeNode) Run(ctx context.Context, in nodedata.NodeData) (nodedata.NodeData, error) {
	return f.fn(in)
}

func passthrough(name string, portType schema.PortType) *fakeNode {
	return &fakeNode{
		name:      name,
		in:        schema.StructuredType{Fields: []schema.Port{{Name: "in", Type: portType, Required: true}}},
		out:       schema.StructuredType{Fields: []schema.Port{{Name: "out", Type: portType}}},
		canonical: component.CanonicalPorts{Input: "in", Output: "out"},
		fn: func(in nodedata.NodeData) (nodedata.NodeData, error) {
			return nodedata.NodeData{Data: map[string]any{"out": in.Data["in"]}}, nil
		},
	}
}

func TestBuildRejectsCycle(t *testing.T) {
	a := passthrough("a", schema.TypeString)
	b := passthrough("b", schema.TypeString)
	def := Def{
		Nodes:     []NodeID{"a", "b"},
		Edges:     []Edge{{From: "a", To: "b"}, {From: "b", To: "a"}},
		Runnables: map[NodeID]component.Component{"a": a, "b": b},
	}
	_, err := Build(def)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCycle)
}

func TestBuildRequiresExplicitMappingForMultiplePredecessors(t *testing.T) {
	a := passthrough("a", schema.TypeString)
	b := passthrough("b", schema.TypeString)
	c := passthrough("c", schema.TypeString)
	def := Def{
		Nodes:      []NodeID{"a", "b", "c"},
		Edges:      []Edge{{From: "a", To: "c"}, {From: "b", To: "c"}},
		Runnables:  map[NodeID]component.Component{"a": a, "b": b, "c": c},
		StartNodes: []NodeID{"a", "b"},
	}
	_, err := Build(def)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingMapping)
}

func TestLinearChainSynthesizesCanonicalMapping(t *testing.T) {
	a := passthrough("a", schema.TypeString)
	b := passthrough("b", schema.TypeString)
	def := Def{
		Nodes:      []NodeID{"a", "b"},
		Edges:      []Edge{{From: "a", To: "b"}},
		Runnables:  map[NodeID]component.Component{"a": a, "b": b},
		StartNodes: []NodeID{"a"},
	}
	r, err := Build(def)
	require.NoError(t, err)

	res, err := r.Run(context.Background(), nodedata.NodeData{Data: map[string]any{"in": "hello"}})
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Terminal.Data["out"])
}

func TestDiamondMergeWithExplicitMappings(t *testing.T) {
	start := passthrough("start", schema.TypeString)
	left := passthrough("left", schema.TypeString)
	right := passthrough("right", schema.TypeString)
	merge := &fakeNode{
		name: "merge",
		in: schema.StructuredType{Fields: []schema.Port{
			{Name: "left_in", Type: schema.TypeString},
			{Name: "right_in", Type: schema.TypeString},
		}},
		out: schema.StructuredType{Fields: []schema.Port{{Name: "out", Type: schema.TypeString}}},
		fn: func(in nodedata.NodeData) (nodedata.NodeData, error) {
			return nodedata.NodeData{Data: map[string]any{
				"out": in.Data["left_in"].(string) + "+" + in.Data["right_in"].(string),
			}}, nil
		},
	}

	def := Def{
		Nodes: []NodeID{"start", "left", "right", "merge"},
		Edges: []Edge{
			{From: "start", To: "left"},
			{From: "start", To: "right"},
			{From: "left", To: "merge"},
			{From: "right", To: "merge"},
		},
		Runnables: map[NodeID]component.Component{
			"start": start, "left": left, "right": right, "merge": merge,
		},
		StartNodes: []NodeID{"start"},
		Mappings: []PortMapping{
			{SourceID: "left", SourcePort: "out", TargetID: "merge", TargetPort: "left_in", Strategy: StrategyDirect},
			{SourceID: "right", SourcePort: "out", TargetID: "merge", TargetPort: "right_in", Strategy: StrategyDirect},
		},
	}
	r, err := Build(def)
	require.NoError(t, err)

	res, err := r.Run(context.Background(), nodedata.NodeData{Data: map[string]any{"in": "x"}})
	require.NoError(t, err)
	assert.Equal(t, "x+x", res.Terminal.Data["out"])
}

func TestHaltAllStopsDownstreamWithoutError(t *testing.T) {
	start := &fakeNode{
		name: "start",
		in:   schema.StructuredType{Fields: []schema.Port{{Name: "in", Type: schema.TypeString}}},
		out:  schema.StructuredType{Fields: []schema.Port{{Name: "out", Type: schema.TypeString}}},
		fn: func(in nodedata.NodeData) (nodedata.NodeData, error) {
			out := nodedata.NodeData{Data: map[string]any{"out": "x"}}
			return nodedata.WithDirective(out, nodedata.ExecutionDirective{Strategy: nodedata.StrategyHaltAll}), nil
		},
	}
	downstream := passthrough("downstream", schema.TypeString)

	def := Def{
		Nodes:      []NodeID{"start", "downstream"},
		Edges:      []Edge{{From: "start", To: "downstream"}},
		Runnables:  map[NodeID]component.Component{"start": start, "downstream": downstream},
		StartNodes: []NodeID{"start"},
	}
	r, err := Build(def)
	require.NoError(t, err)

	res, err := r.Run(context.Background(), nodedata.NodeData{Data: map[string]any{"in": "x"}})
	require.NoError(t, err)
	assert.Empty(t, res.ByNode)
}
