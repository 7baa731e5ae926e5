package graph

import "errors"

// Sentinel construction-time errors (spec.md §7), wrapped with context via
// fmt.Errorf("%w: ...", ErrX) at the call site so errors.Is keeps working.
var (
	// ErrCycle is returned when the graph's edges do not form a DAG.
	ErrCycle = errors.New("graph contains a cycle")
	// ErrUnknownNode is returned when an edge or mapping references a node
	// id absent from Def.Nodes/Runnables.
	ErrUnknownNode = errors.New("unknown node")
	// ErrUnknownPort is returned when a mapping names a port absent from the
	// referenced node's declared schema.
	ErrUnknownPort = errors.New("unknown port")
	// ErrMissingMapping is returned when a node with two or more predecessors
	// has no explicit PortMapping covering one of its incoming edges.
	ErrMissingMapping = errors.New("node has multiple incoming connections and no explicit mapping")
	// ErrAmbiguousCanonicalPort is returned when a single-predecessor node
	// has no explicit mapping and no canonical port pair to synthesize one
	// from.
	ErrAmbiguousCanonicalPort = errors.New("cannot synthesize a default mapping: no canonical port")
	// ErrCannotCoerce is returned at build time when a direct mapping's
	// declared types have no entry in the coercion matrix.
	ErrCannotCoerce = errors.New("cannot coerce")
)
