package graphdef

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/draftnrun/agentgraph/component"
	"github.com/draftnrun/agentgraph/components/identity"
	"github.com/draftnrun/agentgraph/graph"
	"github.com/draftnrun/agentgraph/nodedata"
)

func identityFactory(attrs nodedata.ComponentAttributes, config yaml.Node) (component.Component, error) {
	var cfg struct {
		Prefix string `yaml:"prefix"`
	}
	if err := config.Decode(&cfg); err != nil {
		return nil, err
	}
	return identity.New(identity.Config{Prefix: cfg.Prefix, Attributes: attrs}), nil
}

const doc = `
nodes:
  - id: a
    type: identity
    name: prefixer
    config:
      prefix: "[A] "
  - id: b
    type: identity
    config:
      prefix: "[B] "
edges:
  - from: a
    to: b
start_nodes: [a]
mappings:
  - source_id: a
    source_port: messages
    target_id: b
    target_port: messages
`

func TestLoadBuildsGraphDefFromYAML(t *testing.T) {
	reg := Registry{"identity": identityFactory}
	def, err := Load([]byte(doc), reg)
	require.NoError(t, err)

	require.Len(t, def.Nodes, 2)
	require.Contains(t, def.Runnables, graph.NodeID("a"))
	require.Contains(t, def.Runnables, graph.NodeID("b"))
	require.Equal(t, "prefixer", def.Runnables[graph.NodeID("a")].Name())
	require.Equal(t, "b", def.Runnables[graph.NodeID("b")].Name())

	require.Equal(t, []graph.Edge{{From: "a", To: "b"}}, def.Edges)
	require.Equal(t, []graph.NodeID{"a"}, def.StartNodes)

	require.Len(t, def.Mappings, 1)
	require.Equal(t, graph.StrategyDirect, def.Mappings[0].Strategy)
}

func TestLoadReturnsUnknownNodeTypeError(t *testing.T) {
	reg := Registry{}
	_, err := Load([]byte(doc), reg)
	require.Error(t, err)
	var unknown *UnknownNodeTypeError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, "a", unknown.NodeID)
	require.Equal(t, "identity", unknown.Type)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	reg := Registry{"identity": identityFactory}
	_, err := Load([]byte("not: [valid"), reg)
	require.Error(t, err)
}
