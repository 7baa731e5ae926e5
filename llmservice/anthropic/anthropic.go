// Package anthropic implements llmservice.CompletionService over the
// Anthropic Claude Messages API via github.com/anthropics/anthropic-sdk-go,
// the way goa-ai's own features/model/anthropic adapter does.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/draftnrun/agentgraph/llmservice"
	"github.com/draftnrun/agentgraph/nodedata"
)

// messagesClient captures the subset of the SDK client this adapter needs,
// so tests can substitute a fake without a live API key.
type messagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Client implements llmservice.CompletionService on top of Claude Messages.
type Client struct {
	msg         messagesClient
	model       string
	maxTokens   int64
	temperature float64
}

// New builds a Client from an already-constructed Messages client (or a
// test double satisfying messagesClient).
func New(msg messagesClient, model string, maxTokens int64, temperature float64) (*Client, error) {
	if msg == nil {
		return nil, errors.New("anthropic: messages client is required")
	}
	if model == "" {
		return nil, errors.New("anthropic: model identifier is required")
	}
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Client{msg: msg, model: model, maxTokens: maxTokens, temperature: temperature}, nil
}

// NewFromAPIKey constructs a Client using the SDK's default HTTP transport.
func NewFromAPIKey(apiKey, model string, maxTokens int64, temperature float64) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: api key is required")
	}
	c := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&c.Messages, model, maxTokens, temperature)
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
// (tool_choice "any") a single synthetic "structured_output" tool built
// from schema and decoding the arguments of its first call.
func (c *Client) StructuredCompletion(ctx context.Context, messages []nodedata.ChatMessage, schema map[string]any) (map[string]any, error) {
	tool := &nodedata.ToolDescription{
		Name:        "structured_output",
		Description: "Return the structured answer.",
		ToolProperties: toPropertyMap(schema),
	}
	resp, err := c.FunctionCall(ctx, messages, nil, "any", tool)
	if err != nil {
		return nil, err
	}
	if len(resp.Message.ToolCalls) == 0 {
		return nil, errors.New("anthropic: model did not return the requested structured output")
	}
	var out map[string]any
	if err := json.Unmarshal(resp.Message.ToolCalls[0].Arguments, &out); err != nil {
		return nil, fmt.Errorf("anthropic: malformed structured output: %w", err)
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

	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokens,
	}
	if c.temperature > 0 {
		params.Temperature = sdk.Float(c.temperature)
	}

	sdkMsgs, system, err := encodeMessages(messages)
	if err != nil {
		return llmservice.FunctionCallResponse{}, err
	}
	params.Messages = sdkMsgs
	if len(system) > 0 {
		params.System = system
	}
	if len(allTools) > 0 {
		toolParams, err := encodeTools(allTools)
		if err != nil {
			return llmservice.FunctionCallResponse{}, err
		}
		params.Tools = toolParams
	}
	switch toolChoice {
	case "none":
		none := sdk.NewToolChoiceNoneParam()
		params.ToolChoice = sdk.ToolChoiceUnionParam{OfNone: &none}
	case "any":
		params.ToolChoice = sdk.ToolChoiceUnionParam{OfAny: &sdk.ToolChoiceAnyParam{}}
	}

	msg, err := c.msg.New(ctx, params)
	if err != nil {
		return llmservice.FunctionCallResponse{}, fmt.Errorf("anthropic: messages.new: %w", err)
	}
	return translate(msg)
}

func encodeMessages(messages []nodedata.ChatMessage) ([]sdk.MessageParam, []sdk.TextBlockParam, error) {
	var out []sdk.MessageParam
	var system []sdk.TextBlockParam
	for _, m := range messages {
		switch m.Role {
		case nodedata.RoleSystem:
			if m.Content != "" {
				system = append(system, sdk.TextBlockParam{Text: m.Content})
			}
		case nodedata.RoleUser:
			out = append(out, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		case nodedata.RoleAssistant:
			blocks := []sdk.ContentBlockParamUnion{}
			if m.Content != "" {
				blocks = append(blocks, sdk.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				var input any
				if len(tc.Arguments) > 0 {
					_ = json.Unmarshal(tc.Arguments, &input)
				}
				blocks = append(blocks, sdk.NewToolUseBlock(tc.ID, input, tc.Name))
			}
			if len(blocks) > 0 {
				out = append(out, sdk.NewAssistantMessage(blocks...))
			}
		case nodedata.RoleTool:
			out = append(out, sdk.NewUserMessage(sdk.NewToolResultBlock(m.ToolCallID, m.Content, false)))
		}
	}
	if len(out) == 0 {
		return nil, nil, errors.New("anthropic: at least one user/assistant message is required")
	}
	return out, system, nil
}

func encodeTools(tools []nodedata.ToolDescription) ([]sdk.ToolUnionParam, error) {
	out := make([]sdk.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		schemaBytes, err := json.Marshal(t.Parameters())
		if err != nil {
			return nil, err
		}
		var props map[string]any
		if err := json.Unmarshal(schemaBytes, &props); err != nil {
			return nil, err
		}
		u := sdk.ToolUnionParamOfTool(sdk.ToolInputSchemaParam{ExtraFields: props}, t.Name)
		if u.OfTool != nil {
			u.OfTool.Description = sdk.String(t.Description)
		}
		out = append(out, u)
	}
	return out, nil
}

func translate(msg *sdk.Message) (llmservice.FunctionCallResponse, error) {
	if msg == nil {
		return llmservice.FunctionCallResponse{}, errors.New("anthropic: nil response")
	}
	out := nodedata.ChatMessage{Role: nodedata.RoleAssistant}
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			out.Content += block.Text
		case "tool_use":
			args, _ := json.Marshal(block.Input)
			out.ToolCalls = append(out.ToolCalls, nodedata.ToolCall{ID: block.ID, Name: block.Name, Arguments: args})
		}
	}
	return llmservice.FunctionCallResponse{Message: out}, nil
}

// Embed is not implemented by Claude Messages and always returns an error.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	return nil, errors.New("anthropic: embeddings are not available through the Messages API")
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
