package subgraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/draftnrun/agentgraph/component"
	"github.com/draftnrun/agentgraph/components/identity"
	"github.com/draftnrun/agentgraph/graph"
	"github.com/draftnrun/agentgraph/nodedata"
)

func TestSubgraphOpacityMatchesInnerRunStandalone(t *testing.T) {
	inner := identity.New(identity.Config{Prefix: "[inner] ", Attributes: nodedata.ComponentAttributes{InstanceName: "inner"}})

	buildInnerDef := func() graph.Def {
		return graph.Def{
			Nodes:      []graph.NodeID{"inner"},
			Runnables:  map[graph.NodeID]component.Component{"inner": inner},
			StartNodes: []graph.NodeID{"inner"},
		}
	}

	input := nodedata.NodeData{
		Data: map[string]any{"messages": []nodedata.ChatMessage{{Role: nodedata.RoleUser, Content: "Hello"}}},
		Ctx:  map[string]any{},
	}

	standaloneRunner, err := graph.Build(buildInnerDef())
	require.NoError(t, err)
	standaloneResult, err := standaloneRunner.Run(context.Background(), input)
	require.NoError(t, err)

	blockRunner, err := graph.Build(buildInnerDef())
	require.NoError(t, err)
	block := New(Config{Runner: blockRunner, Attributes: nodedata.ComponentAttributes{InstanceName: "block"}})

	out, err := block.Run(context.Background(), input)
	require.NoError(t, err)

	require.Equal(t, standaloneResult.Terminal.Data["messages"], out.Data["output"].(map[string]any)["messages"])
}
