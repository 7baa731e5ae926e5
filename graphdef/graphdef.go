// Package graphdef loads a graph.Def from a YAML document: nodes, edges,
// and port mappings declared data-first, with each node's concrete
// component instantiated through a caller-supplied Registry of factories
// keyed by node type. YAML as the wire format follows the pack's own use
// of gopkg.in/yaml.v3 for structured configuration (goa-ai's integration
// test framework parses its scenario files the same way).
package graphdef

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/draftnrun/agentgraph/component"
	"github.com/draftnrun/agentgraph/graph"
	"github.com/draftnrun/agentgraph/nodedata"
)

// Factory builds one node's Component from its declared attributes and
// the node-local YAML configuration block ("config" in the document).
// Registered per node "type" string.
type Factory func(attrs nodedata.ComponentAttributes, config yaml.Node) (component.Component, error)

// Registry maps a node's declared type string to the Factory that builds
// it. Callers populate this with every component type their deployment
// needs (react.New, router.New, mcptool.New, ...) before calling Load.
type Registry map[string]Factory

// document is the raw YAML shape: a list of nodes (id, type, instance
// name, and an opaque per-type config block), a list of edges, the
// subset of node ids that are start nodes, and explicit port mappings.
type document struct {
	Nodes []struct {
		ID     string    `yaml:"id"`
		Type   string    `yaml:"type"`
		Name   string    `yaml:"name"`
		Config yaml.Node `yaml:"config"`
	} `yaml:"nodes"`
	Edges []struct {
		From string `yaml:"from"`
		To   string `yaml:"to"`
	} `yaml:"edges"`
	StartNodes []string `yaml:"start_nodes"`
	Mappings   []struct {
		SourceID   string `yaml:"source_id"`
		SourcePort string `yaml:"source_port"`
		TargetID   string `yaml:"target_id"`
		TargetPort string `yaml:"target_port"`
		Strategy   string `yaml:"strategy"`
	} `yaml:"mappings"`
}

// UnknownNodeTypeError reports a node whose declared type has no
// registered Factory.
type UnknownNodeTypeError struct {
	NodeID string
	Type   string
}

func (e *UnknownNodeTypeError) Error() string {
	return fmt.Sprintf("graphdef: node %q has unregistered type %q", e.NodeID, e.Type)
}

// Load parses raw YAML bytes into a graph.Def, instantiating each node
// through reg. The returned Def is ready for graph.Build.
func Load(raw []byte, reg Registry) (graph.Def, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return graph.Def{}, fmt.Errorf("graphdef: parse: %w", err)
	}

	def := graph.Def{
		Runnables: map[graph.NodeID]component.Component{},
	}

	for _, n := range doc.Nodes {
		factory, ok := reg[n.Type]
		if !ok {
			return graph.Def{}, &UnknownNodeTypeError{NodeID: n.ID, Type: n.Type}
		}
		attrs := nodedata.ComponentAttributes{InstanceID: n.ID, InstanceName: n.Name}
		if attrs.InstanceName == "" {
			attrs.InstanceName = n.ID
		}
		comp, err := factory(attrs, n.Config)
		if err != nil {
			return graph.Def{}, fmt.Errorf("graphdef: build node %q: %w", n.ID, err)
		}
		id := graph.NodeID(n.ID)
		def.Nodes = append(def.Nodes, id)
		def.Runnables[id] = comp
	}

	for _, e := range doc.Edges {
		def.Edges = append(def.Edges, graph.Edge{From: graph.NodeID(e.From), To: graph.NodeID(e.To)})
	}

	for _, s := range doc.StartNodes {
		def.StartNodes = append(def.StartNodes, graph.NodeID(s))
	}

	for _, m := range doc.Mappings {
		strategy := graph.MappingStrategy(m.Strategy)
		if strategy == "" {
			strategy = graph.StrategyDirect
		}
		def.Mappings = append(def.Mappings, graph.PortMapping{
			SourceID:   graph.NodeID(m.SourceID),
			SourcePort: m.SourcePort,
			TargetID:   graph.NodeID(m.TargetID),
			TargetPort: m.TargetPort,
			Strategy:   strategy,
		})
	}

	return def, nil
}
