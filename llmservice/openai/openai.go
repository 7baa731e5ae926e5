// Package openai implements llmservice.CompletionService over the OpenAI
// Chat Completions API via github.com/openai/openai-go, goa-ai's second
// declared model provider.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/draftnrun/agentgraph/llmservice"
	"github.com/draftnrun/agentgraph/nodedata"
)

// completionsClient captures the subset of the SDK client used here, so
// tests can substitute a fake.
type completionsClient interface {
	New(ctx context.Context, body oai.ChatCompletionNewParams, opts ...option.RequestOption) (*oai.ChatCompletion, error)
}

// Client implements llmservice.CompletionService on top of Chat Completions.
type Client struct {
	chat        completionsClient
	model       string
	temperature float64
}

// New builds a Client from an already-constructed Chat Completions client.
func New(chat completionsClient, model string, temperature float64) (*Client, error) {
	if chat == nil {
		return nil, errors.New("openai: chat completions client is required")
	}
	if model == "" {
		return nil, errors.New("openai: model identifier is required")
	}
	return &Client{chat: chat, model: model, temperature: temperature}, nil
}

// NewFromAPIKey constructs a Client using the SDK's default HTTP transport.
func NewFromAPIKey(apiKey, model string, temperature float64) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	c := oai.NewClient(option.WithAPIKey(apiKey))
	return New(&c.Chat.Completions, model, temperature)
}

// ModelName implements llmservice.CompletionService.
func (c *Client) ModelName() string { return c.model }

// Completion implements llmservice.CompletionService.
func (c *Client) Completion(ctx context.Context, messages []nodedata.ChatMessage) (string, error) {
	resp, err := c.FunctionCall(ctx, messages, nil, "none", nil)
	if err != nil {
		return "", err
	}
	return resp.Message.Content, nil
}

// StructuredCompletion implements llmservice.CompletionService by forcing
// the synthetic structured-output tool call.
func (c *Client) StructuredCompletion(ctx context.Context, messages []nodedata.ChatMessage, schema map[string]any) (map[string]any, error) {
	tool := &nodedata.ToolDescription{
		Name:           "structured_output",
		Description:    "Return the structured answer.",
		ToolProperties: toPropertyMap(schema),
	}
	resp, err := c.FunctionCall(ctx, messages, nil, "required", tool)
	if err != nil {
		return nil, err
	}
	if len(resp.Message.ToolCalls) == 0 {
		return nil, errors.New("openai: model did not return the requested structured output")
	}
	var out map[string]any
	if err := json.Unmarshal(resp.Message.ToolCalls[0].Arguments, &out); err != nil {
		return nil, fmt.Errorf("openai: malformed structured output: %w", err)
	}
	return out, nil
}

// FunctionCall implements llmservice.CompletionService.
func (c *Client) FunctionCall(
	ctx context.Context,
	messages []nodedata.ChatMessage,
	tools []nodedata.ToolDescription,
	toolChoice string,
	structuredOutputTool *nodedata.ToolDescription,
) (llmservice.FunctionCallResponse, error) {
	allTools := tools
	if structuredOutputTool != nil {
		allTools = append(append([]nodedata.ToolDescription{}, tools...), *structuredOutputTool)
	}

	params := oai.ChatCompletionNewParams{
		Model:    oai.ChatModel(c.model),
		Messages: encodeMessages(messages),
	}
	if c.temperature > 0 {
		params.Temperature = oai.Float(c.temperature)
	}
	if len(allTools) > 0 {
		params.Tools = encodeTools(allTools)
	}
	switch toolChoice {
	case "none", "required", "auto":
		params.ToolChoice = oai.ChatCompletionToolChoiceOptionUnionParam{
			OfChatCompletionToolChoiceString: oai.Opt(toolChoice),
		}
	}

	resp, err := c.chat.New(ctx, params)
	if err != nil {
		return llmservice.FunctionCallResponse{}, fmt.Errorf("openai: chat.completions.new: %w", err)
	}
	return translate(resp)
}

// Embed implements llmservice.CompletionService. Left unimplemented here:
// wiring a real embeddings call needs its own client subset and model id,
// which no current component in this module exercises.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	return nil, errors.New("openai: embeddings are not wired for this client")
}

func encodeMessages(messages []nodedata.ChatMessage) []oai.ChatCompletionMessageParamUnion {
	out := make([]oai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case nodedata.RoleSystem:
			out = append(out, oai.SystemMessage(m.Content))
		case nodedata.RoleUser:
			out = append(out, oai.UserMessage(m.Content))
		case nodedata.RoleAssistant:
			msg := oai.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				msg.Content.OfString = oai.String(m.Content)
			}
			for _, tc := range m.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, oai.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: oai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: string(tc.Arguments),
					},
				})
			}
			out = append(out, oai.ChatCompletionMessageParamUnion{OfAssistant: &msg})
		case nodedata.RoleTool:
			out = append(out, oai.ToolMessage(m.Content, m.ToolCallID))
		}
	}
	return out
}

func encodeTools(tools []nodedata.ToolDescription) []oai.ChatCompletionToolParam {
	out := make([]oai.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, oai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        t.Name,
				Description: oai.String(t.Description),
				Parameters:  shared.FunctionParameters(t.Parameters()),
			},
		})
	}
	return out
}

func translate(resp *oai.ChatCompletion) (llmservice.FunctionCallResponse, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return llmservice.FunctionCallResponse{}, errors.New("openai: empty response")
	}
	choice := resp.Choices[0].Message
	out := nodedata.ChatMessage{Role: nodedata.RoleAssistant, Content: choice.Content}
	for _, tc := range choice.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, nodedata.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	return llmservice.FunctionCallResponse{Message: out}, nil
}

func toPropertyMap(schema map[string]any) map[string]map[string]any {
	out := make(map[string]map[string]any, len(schema))
	for k, v := range schema {
		if m, ok := v.(map[string]any); ok {
			out[k] = m
		}
	}
	return out
}
