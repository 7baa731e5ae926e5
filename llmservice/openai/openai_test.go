package openai

import (
	"context"
	"testing"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/require"

	"github.com/draftnrun/agentgraph/nodedata"
)

type fakeCompletionsClient struct {
	resp *oai.ChatCompletion
	err  error
	last oai.ChatCompletionNewParams
}

func (f *fakeCompletionsClient) New(ctx context.Context, body oai.ChatCompletionNewParams, opts ...option.RequestOption) (*oai.ChatCompletion, error) {
	f.last = body
	return f.resp, f.err
}

func chatResponse(content string) *oai.ChatCompletion {
	resp := &oai.ChatCompletion{}
	choice := oai.ChatCompletionChoice{}
	choice.Message.Content = content
	resp.Choices = []oai.ChatCompletionChoice{choice}
	return resp
}

func TestCompletionReturnsPlainText(t *testing.T) {
	fake := &fakeCompletionsClient{resp: chatResponse("hello")}
	c, err := New(fake, "gpt-4o-mini", 0)
	require.NoError(t, err)

	out, err := c.Completion(context.Background(), []nodedata.ChatMessage{
		{Role: nodedata.RoleUser, Content: "hi"},
	})
	require.NoError(t, err)
	require.Equal(t, "hello", out)
}

func TestFunctionCallTranslatesToolCall(t *testing.T) {
	resp := &oai.ChatCompletion{}
	choice := oai.ChatCompletionChoice{}
	choice.Message.ToolCalls = []oai.ChatCompletionMessageToolCall{{
		ID: "call_1",
		Function: oai.ChatCompletionMessageToolCallFunction{
			Name:      "echo",
			Arguments: `{"text":"hi"}`,
		},
	}}
	resp.Choices = []oai.ChatCompletionChoice{choice}

	fake := &fakeCompletionsClient{resp: resp}
	c, err := New(fake, "gpt-4o-mini", 0)
	require.NoError(t, err)

	out, err := c.FunctionCall(context.Background(),
		[]nodedata.ChatMessage{{Role: nodedata.RoleUser, Content: "call echo"}},
		[]nodedata.ToolDescription{{Name: "echo", ToolProperties: map[string]map[string]any{
			"text": {"type": "string"},
		}}},
		"auto", nil,
	)
	require.NoError(t, err)
	require.Len(t, out.Message.ToolCalls, 1)
	require.Equal(t, "echo", out.Message.ToolCalls[0].Name)
}

func TestNewRejectsEmptyModel(t *testing.T) {
	_, err := New(&fakeCompletionsClient{}, "", 0)
	require.Error(t, err)
}

func TestEmbedIsNotWired(t *testing.T) {
	c, err := New(&fakeCompletionsClient{}, "gpt-4o-mini", 0)
	require.NoError(t, err)
	_, err = c.Embed(context.Background(), "text")
	require.Error(t, err)
}
