package anthropic

import (
	"context"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/require"

	"github.com/draftnrun/agentgraph/nodedata"
)

type fakeMessagesClient struct {
	resp *sdk.Message
	err  error
	last sdk.MessageNewParams
}

func (f *fakeMessagesClient) New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error) {
	f.last = body
	return f.resp, f.err
}

func textMessage(text string) *sdk.Message {
	return &sdk.Message{Content: []sdk.ContentBlockUnion{{Type: "text", Text: text}}}
}

func TestCompletionReturnsPlainText(t *testing.T) {
	fake := &fakeMessagesClient{resp: textMessage("hello there")}
	c, err := New(fake, "claude-3-5-sonnet-latest", 1024, 0)
	require.NoError(t, err)

	out, err := c.Completion(context.Background(), []nodedata.ChatMessage{
		{Role: nodedata.RoleUser, Content: "hi"},
	})
	require.NoError(t, err)
	require.Equal(t, "hello there", out)
}

func TestFunctionCallTranslatesToolUse(t *testing.T) {
	fake := &fakeMessagesClient{
		resp: &sdk.Message{Content: []sdk.ContentBlockUnion{
			{Type: "tool_use", ID: "call_1", Name: "echo", Input: map[string]any{"text": "hi"}},
		}},
	}
	c, err := New(fake, "claude-3-5-sonnet-latest", 1024, 0)
	require.NoError(t, err)

	resp, err := c.FunctionCall(context.Background(),
		[]nodedata.ChatMessage{{Role: nodedata.RoleUser, Content: "call echo"}},
		[]nodedata.ToolDescription{{Name: "echo", ToolProperties: map[string]map[string]any{
			"text": {"type": "string"},
		}}},
		"auto", nil,
	)
	require.NoError(t, err)
	require.Len(t, resp.Message.ToolCalls, 1)
	require.Equal(t, "echo", resp.Message.ToolCalls[0].Name)
	require.Equal(t, "call_1", resp.Message.ToolCalls[0].ID)
}

func TestNewRejectsEmptyModel(t *testing.T) {
	_, err := New(&fakeMessagesClient{}, "", 1024, 0)
	require.Error(t, err)
}

func TestEmbedIsNotSupported(t *testing.T) {
	c, err := New(&fakeMessagesClient{}, "claude-3-5-sonnet-latest", 1024, 0)
	require.NoError(t, err)
	_, err = c.Embed(context.Background(), "text")
	require.Error(t, err)
}
