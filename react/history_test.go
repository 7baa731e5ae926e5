package react

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/draftnrun/agentgraph/nodedata"
)

func msg(role nodedata.Role, content string) nodedata.ChatMessage {
	return nodedata.ChatMessage{Role: role, Content: content}
}

func TestHistoryHandlerReturnsUnchangedWhenWithinBudget(t *testing.T) {
	h := NewHistoryHandler(1, 2)
	messages := []nodedata.ChatMessage{
		msg(nodedata.RoleSystem, "sys"),
		msg(nodedata.RoleUser, "hi"),
	}
	require.Equal(t, messages, h.Truncate(messages))
}

func TestHistoryHandlerKeepsFirstAndLastWindow(t *testing.T) {
	h := NewHistoryHandler(1, 2)
	messages := []nodedata.ChatMessage{
		msg(nodedata.RoleSystem, "sys"),
		msg(nodedata.RoleUser, "q1"),
		msg(nodedata.RoleAssistant, "a1"),
		msg(nodedata.RoleUser, "q2"),
		msg(nodedata.RoleAssistant, "a2"),
	}
	out := h.Truncate(messages)
	require.Equal(t, []nodedata.ChatMessage{
		msg(nodedata.RoleSystem, "sys"),
		msg(nodedata.RoleUser, "q2"),
		msg(nodedata.RoleAssistant, "a2"),
	}, out)
}

func TestHistoryHandlerDropsOverlapOnSameRoleBoundary(t *testing.T) {
	h := NewHistoryHandler(2, 2)
	messages := []nodedata.ChatMessage{
		msg(nodedata.RoleSystem, "sys"),
		msg(nodedata.RoleUser, "q1"),
		msg(nodedata.RoleAssistant, "a1"),
		msg(nodedata.RoleUser, "q2"),
		msg(nodedata.RoleAssistant, "a2"),
	}
	out := h.Truncate(messages)
	require.Equal(t, []nodedata.ChatMessage{
		msg(nodedata.RoleSystem, "sys"),
		msg(nodedata.RoleUser, "q1"),
		msg(nodedata.RoleAssistant, "a2"),
	}, out)
}

func TestNewHistoryHandlerAppliesDefaults(t *testing.T) {
	h := NewHistoryHandler(0, 0)
	require.Equal(t, 1, h.FirstMessages)
	require.Equal(t, 50, h.LastMessages)
}
