package graph

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/draftnrun/agentgraph/coercion"
	"github.com/draftnrun/agentgraph/nodedata"
)

// Runner is a compiled, ready-to-execute Def (spec.md §4.4). Build a Runner
// from a Def by calling Build; a Runner is safe for concurrent use by
// multiple goroutines calling Run with independent inputs.
type Runner struct {
	def          Def
	predecessors map[NodeID][]NodeID
	successors   map[NodeID][]NodeID
	starts       map[NodeID]bool
	resolved     map[NodeID]map[string][]resolvedMapping
	bypass       map[NodeID][]resolvedMapping
}

// Result is the outcome of a Run: the map of every terminal node's output
// (a node with no outgoing edges that did not halt), plus Terminal, the
// single output to prefer when there is exactly one such node. When there
// are several terminals, Terminal holds the most-recently-completed one and
// callers that care about all of them should use ByNode (spec.md §4.4 Open
// Question: "what does the runner return for a multi-terminal graph").
type Result struct {
	Terminal nodedata.NodeData
	ByNode   map[NodeID]nodedata.NodeData
}

type nodeOutcome struct {
	halted bool
	output nodedata.NodeData
}

// Run executes the compiled graph from input, dispatching every node whose
// predecessors have all completed or halted as a concurrent batch (via
// errgroup), and stops at the first node error, canceling its siblings
// (spec.md §4.4 steps 1, 6-7).
func (r *Runner) Run(ctx context.Context, input nodedata.NodeData) (Result, error) {
	indegree := make(map[NodeID]int, len(r.def.Nodes))
	for _, n := range r.def.Nodes {
		indegree[n] = len(r.predecessors[n])
	}

	completed := map[NodeID]*nodeOutcome{}
	nodeInputs := map[NodeID]nodedata.NodeData{}
	var completionOrder []NodeID

	ready := r.initialReady(indegree)
	for len(ready) > 0 {
		batchInputs, err := r.resolveBatchInputs(ready, input, completed, nodeInputs)
		if err != nil {
			return Result{}, err
		}

		outcomes, err := r.runBatch(ctx, ready, batchInputs)
		if err != nil {
			return Result{}, err
		}
		for i, n := range ready {
			completed[n] = outcomes[i]
			nodeInputs[n] = batchInputs[n]
			completionOrder = append(completionOrder, n)
		}

		ready = r.nextReady(ready, indegree)
	}

	return r.collectResult(completed, completionOrder), nil
}

func (r *Runner) initialReady(indegree map[NodeID]int) []NodeID {
	var ready []NodeID
	for _, n := range r.def.Nodes {
		if indegree[n] == 0 {
			ready = append(ready, n)
		}
	}
	return ready
}

func (r *Runner) nextReady(batch []NodeID, indegree map[NodeID]int) []NodeID {
	var ready []NodeID
	seen := map[NodeID]bool{}
	for _, u := range batch {
		for _, v := range r.successors[u] {
			if seen[v] {
				continue
			}
			indegree[v]--
			if indegree[v] == 0 {
				ready = append(ready, v)
				seen[v] = true
			}
		}
	}
	return ready
}

// resolveBatchInputs computes each ready node's NodeData before it runs:
// start nodes receive the run's input directly; others gather their active
// incoming mappings' coerced values, with halted or directive-deactivated
// predecessors contributing nothing (spec.md §4.4 steps 2-3).
func (r *Runner) resolveBatchInputs(batch []NodeID, input nodedata.NodeData, completed map[NodeID]*nodeOutcome, nodeInputs map[NodeID]nodedata.NodeData) (map[NodeID]nodedata.NodeData, error) {
	out := make(map[NodeID]nodedata.NodeData, len(batch))
	for _, n := range batch {
		if r.starts[n] {
			out[n] = input.Clone()
			continue
		}
		ports := r.resolved[n]
		anyActive := false
		nd := nodedata.New()
		for targetPort, mappings := range ports {
			for _, m := range mappings {
				active, value, hasValue, err := r.resolveMapping(n, targetPort, m, completed, nodeInputs)
				if err != nil {
					return nil, err
				}
				if !active || !hasValue {
					continue
				}
				anyActive = true
				nd.Data[targetPort] = value
				nd.Ctx = nodedata.MergeCtx(nd.Ctx, completed[m.SourceID].output.Ctx)
			}
		}
		if len(ports) > 0 && !anyActive {
			out[n] = nodedata.NodeData{} // every predecessor halted: this node halts too
			continue
		}
		out[n] = nd
	}
	return out, nil
}

func (r *Runner) resolveMapping(target NodeID, targetPort string, m resolvedMapping, completed map[NodeID]*nodeOutcome, nodeInputs map[NodeID]nodedata.NodeData) (active bool, value any, hasValue bool, err error) {
	src, ok := completed[m.SourceID]
	if !ok || src.halted {
		return false, nil, false, nil
	}
	directive := nodedata.Directive(src.output)
	switch directive.Strategy {
	case nodedata.StrategyHaltAll:
		return false, nil, false, nil
	case nodedata.StrategySelectivePorts:
		if !containsStr(directive.SelectedPorts, m.SourcePort) {
			return false, nil, false, nil
		}
	}

	var raw any
	if m.Strategy == StrategyBypass {
		raw, hasValue = nodeInputs[m.SourceID].Data[m.SourcePort]
		if !hasValue {
			return true, nil, false, nil
		}
		return true, raw, true, nil
	}

	raw, hasValue = src.output.Data[m.SourcePort]
	if !hasValue {
		return true, nil, false, nil
	}

	sp, _ := r.def.Runnables[m.SourceID].OutputsSchema().Get(m.SourcePort)
	tp, _ := r.def.Runnables[target].InputsSchema().Get(targetPort)
	coerced, cerr := coercion.Coerce(sp.Type, tp.Type, raw)
	if cerr != nil {
		if ce, ok := cerr.(*coercion.Error); ok {
			ce.Component = string(target)
		}
		return false, nil, false, fmt.Errorf("node %q port %q: %w", target, targetPort, cerr)
	}
	return true, coerced, true, nil
}

func containsStr(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// runBatch executes every node of batch concurrently, canceling its
// siblings on the first error (spec.md §4.4 step 7).
func (r *Runner) runBatch(ctx context.Context, batch []NodeID, inputs map[NodeID]nodedata.NodeData) ([]*nodeOutcome, error) {
	outcomes := make([]*nodeOutcome, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	for i, n := range batch {
		i, n := i, n
		in := inputs[n]
		if !r.starts[n] && len(r.resolved[n]) > 0 {
			if in.Data == nil {
				outcomes[i] = &nodeOutcome{halted: true}
				continue
			}
		}
		g.Go(func() error {
			out, err := r.def.Runnables[n].Run(gctx, in)
			if err != nil {
				return fmt.Errorf("node %q: %w", n, err)
			}
			outcomes[i] = &nodeOutcome{output: out}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// collectResult builds the Result per spec.md §4.4's multi-terminal
// decision: every non-halted node with no outgoing edges is a terminal;
// Terminal prefers the unique terminal when there is one, else the last to
// complete.
func (r *Runner) collectResult(completed map[NodeID]*nodeOutcome, order []NodeID) Result {
	byNode := map[NodeID]nodedata.NodeData{}
	var lastTerminal nodedata.NodeData
	terminalCount := 0
	for _, n := range order {
		if len(r.successors[n]) > 0 {
			continue
		}
		outcome := completed[n]
		if outcome.halted {
			continue
		}
		byNode[n] = outcome.output
		lastTerminal = outcome.output
		terminalCount++
	}
	res := Result{ByNode: byNode}
	if terminalCount == 1 {
		for _, v := range byNode {
			res.Terminal = v
		}
	} else {
		res.Terminal = lastTerminal
	}
	return res
}
