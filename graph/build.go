package graph

import (
	"fmt"

	"github.com/draftnrun/agentgraph/coercion"
)

// resolvedMapping is one fully-resolved incoming connection for a node's
// target port, after canonical-port synthesis and build-time coercion
// checking (spec.md §4.3).
type resolvedMapping struct {
	SourceID   NodeID
	SourcePort string
	TargetPort string
	Strategy   MappingStrategy
}

// Build validates a Def and compiles it into a Runner ready to execute
// (spec.md §4.3). It performs, in order: node/edge referential integrity,
// cycle detection, mapping-coverage enforcement for multi-predecessor nodes,
// canonical-port synthesis for single-predecessor nodes, and build-time
// coercion checking of every direct mapping.
func Build(def Def) (*Runner, error) {
	if err := validateNodes(def); err != nil {
		return nil, err
	}
	preds := predecessors(def)
	if err := checkAcyclic(def); err != nil {
		return nil, err
	}

	byTarget := map[NodeID][]PortMapping{}
	for _, m := range def.Mappings {
		byTarget[m.TargetID] = append(byTarget[m.TargetID], m)
	}

	resolved := map[NodeID]map[string][]resolvedMapping{}
	bypass := map[NodeID][]resolvedMapping{}

	for _, node := range def.Nodes {
		ps := preds[node]
		explicit := byTarget[node]

		var nodeMappings []PortMapping
		switch {
		case len(explicit) > 0:
			if err := checkMappingCoverage(node, ps, explicit); err != nil {
				return nil, err
			}
			nodeMappings = explicit
		case len(ps) == 1:
			m, err := synthesizeMapping(def, node, ps[0])
			if err != nil {
				return nil, err
			}
			nodeMappings = []PortMapping{m}
		case len(ps) > 1:
			return nil, fmt.Errorf("%w: node %q", ErrMissingMapping, node)
		default:
			// len(ps) == 0: a start node or a free-standing source; nothing
			// to resolve.
		}

		for _, m := range nodeMappings {
			if err := checkPorts(def, m); err != nil {
				return nil, err
			}
			if m.Strategy == StrategyDirect {
				if err := checkCoercible(def, m); err != nil {
					return nil, err
				}
			}
			rm := resolvedMapping{SourceID: m.SourceID, SourcePort: m.SourcePort, TargetPort: m.TargetPort, Strategy: m.Strategy}
			if resolved[node] == nil {
				resolved[node] = map[string][]resolvedMapping{}
			}
			resolved[node][m.TargetPort] = append(resolved[node][m.TargetPort], rm)
			if m.Strategy == StrategyBypass {
				bypass[m.SourceID] = append(bypass[m.SourceID], rm)
			}
		}
	}

	successors := map[NodeID][]NodeID{}
	for _, e := range def.Edges {
		successors[e.From] = append(successors[e.From], e.To)
	}

	starts := map[NodeID]bool{}
	for _, s := range def.StartNodes {
		starts[s] = true
	}

	return &Runner{
		def:          def,
		predecessors: preds,
		successors:   successors,
		starts:       starts,
		resolved:     resolved,
		bypass:       bypass,
	}, nil
}

func validateNodes(def Def) error {
	known := map[NodeID]bool{}
	for _, n := range def.Nodes {
		known[n] = true
		if _, ok := def.Runnables[n]; !ok {
			return fmt.Errorf("%w: node %q has no Runnable", ErrUnknownNode, n)
		}
	}
	for _, e := range def.Edges {
		if !known[e.From] {
			return fmt.Errorf("%w: edge references %q", ErrUnknownNode, e.From)
		}
		if !known[e.To] {
			return fmt.Errorf("%w: edge references %q", ErrUnknownNode, e.To)
		}
	}
	for _, s := range def.StartNodes {
		if !known[s] {
			return fmt.Errorf("%w: start node %q", ErrUnknownNode, s)
		}
	}
	for _, m := range def.Mappings {
		if !known[m.SourceID] {
			return fmt.Errorf("%w: mapping source %q", ErrUnknownNode, m.SourceID)
		}
		if !known[m.TargetID] {
			return fmt.Errorf("%w: mapping target %q", ErrUnknownNode, m.TargetID)
		}
	}
	return nil
}

func predecessors(def Def) map[NodeID][]NodeID {
	out := map[NodeID][]NodeID{}
	for _, n := range def.Nodes {
		out[n] = nil
	}
	for _, e := range def.Edges {
		out[e.To] = append(out[e.To], e.From)
	}
	return out
}

func checkAcyclic(def Def) error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[NodeID]int{}
	adj := map[NodeID][]NodeID{}
	for _, e := range def.Edges {
		adj[e.From] = append(adj[e.From], e.To)
	}

	var visit func(n NodeID) error
	visit = func(n NodeID) error {
		color[n] = gray
		for _, next := range adj[n] {
			switch color[next] {
			case gray:
				return fmt.Errorf("%w: back edge %q -> %q", ErrCycle, n, next)
			case white:
				if err := visit(next); err != nil {
					return err
				}
			}
		}
		color[n] = black
		return nil
	}

	for _, n := range def.Nodes {
		if color[n] == white {
			if err := visit(n); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkMappingCoverage verifies every predecessor of node has at least one
// explicit mapping entry (spec.md §4.3 step 3: "a node with two or more
// incoming edges must have an explicit PortMapping for each").
func checkMappingCoverage(node NodeID, preds []NodeID, mappings []PortMapping) error {
	covered := map[NodeID]bool{}
	for _, m := range mappings {
		covered[m.SourceID] = true
	}
	for _, p := range preds {
		if !covered[p] {
			return fmt.Errorf("%w: node %q, predecessor %q", ErrMissingMapping, node, p)
		}
	}
	return nil
}

// synthesizeMapping builds the implicit mapping for a node with exactly one
// predecessor and no explicit mapping, using each side's canonical port
// (spec.md §4.3 step 4). If either side declares no canonical port but has
// exactly one declared port, that sole port is used instead.
func synthesizeMapping(def Def, node, pred NodeID) (PortMapping, error) {
	srcComp := def.Runnables[pred]
	tgtComp := def.Runnables[node]

	sourcePort := srcComp.CanonicalPorts().Output
	if sourcePort == "" {
		if names := srcComp.OutputsSchema().Names(); len(names) == 1 {
			sourcePort = names[0]
		}
	}
	targetPort := tgtComp.CanonicalPorts().Input
	if targetPort == "" {
		if names := tgtComp.InputsSchema().Names(); len(names) == 1 {
			targetPort = names[0]
		}
	}
	if sourcePort == "" || targetPort == "" {
		return PortMapping{}, fmt.Errorf("%w: %q -> %q", ErrAmbiguousCanonicalPort, pred, node)
	}
	return PortMapping{SourceID: pred, SourcePort: sourcePort, TargetID: node, TargetPort: targetPort, Strategy: StrategyDirect}, nil
}

func checkPorts(def Def, m PortMapping) error {
	if m.Strategy == StrategyBypass {
		// Bypass mappings name a branching node's own output port (e.g. a
		// Router's route_N), which by design carries no declared schema
		// entry, so only the target's declared input port is checked.
		if _, ok := def.Runnables[m.TargetID].InputsSchema().Get(m.TargetPort); !ok {
			return fmt.Errorf("%w: target %q port %q", ErrUnknownPort, m.TargetID, m.TargetPort)
		}
		return nil
	}
	if _, ok := def.Runnables[m.SourceID].OutputsSchema().Get(m.SourcePort); !ok {
		return fmt.Errorf("%w: source %q port %q", ErrUnknownPort, m.SourceID, m.SourcePort)
	}
	if _, ok := def.Runnables[m.TargetID].InputsSchema().Get(m.TargetPort); !ok {
		return fmt.Errorf("%w: target %q port %q", ErrUnknownPort, m.TargetID, m.TargetPort)
	}
	return nil
}

// checkCoercible is the build-time, check-only application of the coercion
// matrix (spec.md §4.3 step 5): it rejects an impossible direct mapping
// before any node ever runs, without touching a runtime value.
func checkCoercible(def Def, m PortMapping) error {
	sp, _ := def.Runnables[m.SourceID].OutputsSchema().Get(m.SourcePort)
	tp, _ := def.Runnables[m.TargetID].InputsSchema().Get(m.TargetPort)
	if !coercion.Accepts(sp.Type, tp.Type) {
		return fmt.Errorf("%w %s -> %s: mapping %q.%q -> %q.%q", ErrCannotCoerce, sp.Type, tp.Type, m.SourceID, m.SourcePort, m.TargetID, m.TargetPort)
	}
	return nil
}
