// Package graph implements the graph definition, the port-mapping resolver,
// and the scheduler that executes a DAG of Components (spec.md §3, §4.3,
// §4.4).
package graph

import (
	"github.com/draftnrun/agentgraph/component"
)

// NodeID identifies a node within a graph definition.
type NodeID string

// Edge is a directed edge of the DAG G.
type Edge struct {
	From NodeID
	To   NodeID
}

// MappingStrategy selects how a PortMapping's value is produced at runtime
// (spec.md §3, §4.4).
type MappingStrategy string

const (
	// StrategyDirect coerces the source port's own output value into the
	// target port.
	StrategyDirect MappingStrategy = "direct"
	// StrategyFunctionCall marks a mapping realized through LLM
	// function-calling argument binding rather than graph propagation
	// (reserved for ReAct tool wiring; the scheduler treats it like direct).
	StrategyFunctionCall MappingStrategy = "function_call"
	// StrategyBypass substitutes the source node's own upstream input for
	// its output, letting a branching node forward its predecessor's
	// payload without re-emitting it (spec.md §4.3 step 6).
	StrategyBypass MappingStrategy = "bypass"
)

// PortMapping is a user-supplied or synthesized edge→(source port, target
// port) record (spec.md §3).
type PortMapping struct {
	SourceID   NodeID
	SourcePort string
	TargetID   NodeID
	TargetPort string
	Strategy   MappingStrategy
}

// Def is the graph definition triple (G, R, S, M) of spec.md §3: a DAG on
// node ids, the Runnables map, the set of nodes that receive the initial
// input directly, and the user-supplied port mappings (before resolution).
type Def struct {
	Nodes      []NodeID
	Edges      []Edge
	Runnables  map[NodeID]component.Component
	StartNodes []NodeID
	Mappings   []PortMapping
}
