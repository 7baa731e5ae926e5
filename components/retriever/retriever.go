// Package retriever implements the citation contract a RAG-style tool must
// satisfy for the ReAct loop's source renumbering to apply: the tool
// description and prompt instruction an agent wires in, around a caller's
// own search implementation. Full retrieval/reranking internals are out of
// scope (spec.md §1); this package only owns the contract, grounded on
// original_source/engine/components/rag/retriever.py's
// RETRIEVER_TOOL_DESCRIPTION/RETRIEVER_CITATION_INSTRUCTION constants.
package retriever

import (
	"context"
	"fmt"

	"github.com/draftnrun/agentgraph/component"
	"github.com/draftnrun/agentgraph/nodedata"
	"github.com/draftnrun/agentgraph/schema"
	"github.com/draftnrun/agentgraph/telemetry"
)

// ToolName is the fixed name the ReAct loop recognizes to append
// CitationInstruction to the system prompt.
const ToolName = "retriever"

// CitationInstruction is appended to the agent's system prompt whenever a
// retriever tool is wired in, instructing the LLM to cite sources by
// index and to call the tool at most once.
const CitationInstruction = "When using information from retrieved sources, cite them using [1], [2], etc. " +
	"Use the retriever tool ONCE, then answer based on the retrieved information. " +
	"If the retrieved information is not relevant, say so clearly rather than retrieving again."

// Description is the LLM-facing tool description every retriever
// component exposes.
var Description = nodedata.ToolDescription{
	Name:        ToolName,
	Description: "Retrieve relevant document chunks from a knowledge base using semantic search.",
	ToolProperties: map[string]map[string]any{
		"query": {
			"type":        "string",
			"description": "The search query to retrieve relevant chunks from the knowledge base.",
		},
	},
	RequiredProperties: []string{"query"},
}

// Search is the minimal interface a caller supplies a real knowledge-base
// lookup through; this package owns only the component/tool plumbing
// around it.
type Search interface {
	Search(ctx context.Context, query string) ([]nodedata.SourceChunk, error)
}

// Config configures a retriever Component.
type Config struct {
	Search     Search
	Attributes nodedata.ComponentAttributes
	Tracer     telemetry.Tracer
	Metrics    telemetry.Metrics
}

// New builds the Component: input "query", outputs "output" (a rendered
// context block from the returned chunks) and "artifacts" (carrying the
// raw SourceChunk list under "sources" for the ReAct loop's citation
// renumbering).
func New(cfg Config) component.Component {
	base := &component.Base{
		Attributes: cfg.Attributes,
		Tool:       Description,
		Inputs:     schema.StructuredType{Fields: []schema.Port{{Name: "query", Type: schema.TypeString, Required: true, IsToolInput: true}}},
		Outputs: schema.StructuredType{Fields: []schema.Port{
			{Name: "output", Type: schema.TypeString},
			{Name: "artifacts", Type: schema.TypeMapping, HasDefault: true, Default: map[string]any{}},
		}},
		Canonical: component.CanonicalPorts{Input: "query", Output: "output"},
		Tracer:    cfg.Tracer,
		Metrics:   cfg.Metrics,
	}
	base.Core = func(ctx context.Context, cc *component.CallContext, inputs map[string]any, _ map[string]any) (map[string]any, error) {
		query, _ := inputs["query"].(string)
		if query == "" {
			return nil, fmt.Errorf("retriever: query input is required")
		}

		chunks, err := cfg.Search.Search(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("retriever: search failed: %w", err)
		}

		cc.LogTrace(map[string]any{"retrieved_chunks": len(chunks)})
		return map[string]any{
			"output":    renderContext(chunks),
			"artifacts": map[string]any{"sources": chunks},
		}, nil
	}
	return base
}

// renderContext renders the retrieved chunks as a numbered context block
// an LLM can cite back with "[n]" indices matching chunk order.
func renderContext(chunks []nodedata.SourceChunk) string {
	out := ""
	for i, c := range chunks {
		if i > 0 {
			out += "\n\n"
		}
		out += fmt.Sprintf("[%d] %s", i+1, c.Content)
	}
	return out
}
