package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/draftnrun/agentgraph/nodedata"
)

func TestIdentityPrependsPrefixToLastMessage(t *testing.T) {
	c := New(Config{Prefix: "[A] ", Attributes: nodedata.ComponentAttributes{InstanceName: "a"}})

	out, err := c.Run(context.Background(), nodedata.NodeData{
		Data: map[string]any{
			"messages": []nodedata.ChatMessage{{Role: nodedata.RoleUser, Content: "Hello"}},
		},
		Ctx: map[string]any{},
	})
	require.NoError(t, err)

	messages := out.Data["messages"].([]nodedata.ChatMessage)
	require.Len(t, messages, 1)
	require.Equal(t, "[A] Hello", messages[0].Content)
}

func TestIdentityChainMatchesSpecScenario(t *testing.T) {
	a := New(Config{Prefix: "[A] ", Attributes: nodedata.ComponentAttributes{InstanceName: "a"}})
	b := New(Config{Prefix: "[B] ", Attributes: nodedata.ComponentAttributes{InstanceName: "b"}})
	cc := New(Config{Prefix: "[C] ", Attributes: nodedata.ComponentAttributes{InstanceName: "c"}})

	ctx := context.Background()
	in := nodedata.NodeData{
		Data: map[string]any{"messages": []nodedata.ChatMessage{{Role: nodedata.RoleUser, Content: "Hello"}}},
		Ctx:  map[string]any{},
	}

	outA, err := a.Run(ctx, in)
	require.NoError(t, err)
	outB, err := b.Run(ctx, outA)
	require.NoError(t, err)
	outC, err := cc.Run(ctx, outB)
	require.NoError(t, err)

	messages := outC.Data["messages"].([]nodedata.ChatMessage)
	require.Equal(t, "[C] [B] [A] Hello", messages[0].Content)
}
