package react

import "github.com/draftnrun/agentgraph/nodedata"

// HistoryHandler truncates a conversation to its leading system/context
// messages plus a trailing window, grounded on
// engine/agent/history_message_handling.py's HistoryMessageHandler.
type HistoryHandler struct {
	FirstMessages int
	LastMessages  int
}

// NewHistoryHandler applies the same defaults as the original: keep the
// first message (the system prompt) and the last 50.
func NewHistoryHandler(first, last int) HistoryHandler {
	if first <= 0 {
		first = 1
	}
	if last <= 0 {
		last = 50
	}
	return HistoryHandler{FirstMessages: first, LastMessages: last}
}

// Truncate returns messages unchanged if it already fits within
// FirstMessages+LastMessages; otherwise it keeps the first FirstMessages and
// the last LastMessages, dropping one from the tail's head when the two
// windows would otherwise repeat the same boundary message (same role on
// both sides of the cut).
func (h HistoryHandler) Truncate(messages []nodedata.ChatMessage) []nodedata.ChatMessage {
	total := len(messages)
	if total <= h.FirstMessages+h.LastMessages {
		return messages
	}

	first := messages[:h.FirstMessages]
	last := messages[total-h.LastMessages:]

	if first[len(first)-1].Role != last[0].Role {
		out := make([]nodedata.ChatMessage, 0, len(first)+len(last))
		out = append(out, first...)
		return append(out, last...)
	}
	out := make([]nodedata.ChatMessage, 0, len(first)+len(last)-1)
	out = append(out, first...)
	return append(out, last[1:]...)
}
