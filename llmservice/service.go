// Package llmservice defines the provider-agnostic completion contract the
// ReAct loop and other LLM-backed components depend on, plus concrete
// adapters over the Anthropic and OpenAI Go SDKs.
package llmservice

import (
	"context"

	"github.com/draftnrun/agentgraph/nodedata"
)

// FunctionCallResponse is the result of one function-calling round: the
// assistant's message (which may itself carry tool calls), mirroring the
// single-choice shape the ReAct loop consumes.
type FunctionCallResponse struct {
	Message nodedata.ChatMessage
}

// CompletionService is the polymorphic LLM-provider contract (spec.md's
// agentic-loop subsystem depends on FunctionCall; the remaining methods
// round out the surface other graph components use).
type CompletionService interface {
	// ModelName identifies the backing model for tracing attributes.
	ModelName() string

	// Completion produces a plain-text continuation of messages.
	Completion(ctx context.Context, messages []nodedata.ChatMessage) (string, error)

	// StructuredCompletion produces a completion whose content is
	// constrained to satisfy the given JSON-schema properties.
	StructuredCompletion(ctx context.Context, messages []nodedata.ChatMessage, schema map[string]any) (map[string]any, error)

	// FunctionCall drives one turn of the agentic loop: the model may
	// respond with plain content or with one or more tool calls drawn from
	// tools. The ReAct loop passes toolChoice "auto" or "none"; the
	// adapters' own StructuredCompletion also passes "any" (Anthropic) or
	// "required" (OpenAI). structuredOutputTool, when
	// non-nil, is appended to tools as the forced shape for a final answer.
	FunctionCall(
		ctx context.Context,
		messages []nodedata.ChatMessage,
		tools []nodedata.ToolDescription,
		toolChoice string,
		structuredOutputTool *nodedata.ToolDescription,
	) (FunctionCallResponse, error)

	// Embed returns the embedding vector for text.
	Embed(ctx context.Context, text string) ([]float64, error)
}
