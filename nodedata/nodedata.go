// Package nodedata defines the universal data packet ("NodeData") that
// flows along every edge of a graph, and the message/tool types carried
// inside it. These types are deliberately provider-agnostic: no package in
// this module imports a concrete LLM SDK from nodedata.
package nodedata

import (
	"encoding/json"
	"strings"
)

// NodeData is the packet exchanged between nodes. Data is validated against
// a component's declared port schema; Ctx is propagated verbatim and merged
// across nested sub-graphs (target overrides on key collision).
//
// A NodeData value must not be mutated once it has been emitted by a node's
// Run: downstream consumers that need to change it must copy first (see
// Clone).
type NodeData struct {
	Data map[string]any `json:"data"`
	Ctx  map[string]any `json:"ctx"`
}

// New returns an empty NodeData with initialized maps.
func New() NodeData {
	return NodeData{Data: map[string]any{}, Ctx: map[string]any{}}
}

// Clone returns a shallow copy of n whose top-level maps are distinct from
// n's, so callers can add or overwrite keys without mutating the original.
func (n NodeData) Clone() NodeData {
	out := New()
	for k, v := range n.Data {
		out.Data[k] = v
	}
	for k, v := range n.Ctx {
		out.Ctx[k] = v
	}
	return out
}

// MergeCtx returns a copy of base merged with other, with other's keys
// taking precedence — the merge rule the scheduler uses when propagating a
// source node's ctx into a target node's ctx.
func MergeCtx(base, other map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(other))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Role identifies the speaker of a ChatMessage.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ContentPartType discriminates the kind of a ContentPart.
type ContentPartType string

const (
	ContentText     ContentPartType = "text"
	ContentImageURL ContentPartType = "image_url"
	ContentFile     ContentPartType = "file"
)

// ContentPart is one discriminated block of a multi-part ChatMessage
// content. Exactly the fields relevant to Type are expected to be set.
type ContentPart struct {
	Type ContentPartType `json:"type"`
	Text string          `json:"text,omitempty"`
	// URL carries the image/file location for ContentImageURL and ContentFile.
	URL string `json:"url,omitempty"`
	// Filename names a ContentFile part for prompt-visible file manifests.
	Filename string `json:"filename,omitempty"`
}

// ToolCall is a function call emitted by an assistant message.
type ToolCall struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Arguments is the raw JSON-encoded argument object the LLM produced.
	Arguments json.RawMessage `json:"arguments"`
}

// ChatMessage is the tuple carried by a conversation history: a role, a
// string-or-parts content, and optional tool-call linkage.
type ChatMessage struct {
	Role       Role          `json:"role"`
	Content    string        `json:"content,omitempty"`
	Parts      []ContentPart `json:"parts,omitempty"`
	ToolCalls  []ToolCall    `json:"tool_calls,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
}

// ToString lowers a ChatMessage's content to a single string for prompt
// templating: the plain Content field when set, otherwise the
// whitespace-joined text of its Parts.
func (m ChatMessage) ToString() string {
	if m.Content != "" {
		return m.Content
	}
	if len(m.Parts) == 0 {
		return ""
	}
	texts := make([]string, 0, len(m.Parts))
	for _, p := range m.Parts {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, " ")
}

// ToolDescription describes one callable tool: its name, a natural-language
// description, a JSON-schema fragment per parameter, and the list of
// required parameter names. A component may expose one (single-tool
// components) or many (MCP components wrapping several remote tools) via
// GetToolDescriptions.
type ToolDescription struct {
	Name                string                    `json:"name"`
	Description         string                    `json:"description"`
	ToolProperties      map[string]map[string]any `json:"tool_properties"`
	RequiredProperties  []string                  `json:"required"`
}

// IsTool reports whether this description actually declares parameters —
// components with no tool_properties are not exposed to LLM function
// calling (mirrors the Python `ToolDescription.is_tool` property).
func (t ToolDescription) IsTool() bool {
	return len(t.ToolProperties) > 0
}

// Parameters renders the JSON-schema object expected by function-calling
// APIs: {"type":"object","properties":{...},"required":[...]}.
func (t ToolDescription) Parameters() map[string]any {
	props := t.ToolProperties
	if props == nil {
		props = map[string]map[string]any{}
	}
	required := t.RequiredProperties
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// ComponentAttributes identifies a specific node instance for tracing and
// error messages.
type ComponentAttributes struct {
	InstanceName string
	InstanceID   string
}

// ExecutionStrategy is the routing directive a component's output may
// carry, interpreted by the graph scheduler (spec.md §4.4).
type ExecutionStrategy string

const (
	// StrategyNormal propagates to every downstream reader, the default.
	StrategyNormal ExecutionStrategy = "normal"
	// StrategySelectivePorts activates only the named output ports; every
	// other downstream reader (and its descendants, transitively) halts.
	StrategySelectivePorts ExecutionStrategy = "selective_ports"
	// StrategyHaltAll halts every descendant of the node.
	StrategyHaltAll ExecutionStrategy = "halt_all"
)

// ExecutionDirective rides as a hidden field on a component's output to
// steer the scheduler. The zero value is StrategyNormal.
type ExecutionDirective struct {
	Strategy      ExecutionStrategy `json:"strategy,omitempty"`
	SelectedPorts []string          `json:"selected_ports,omitempty"`
}

// DirectiveKey is the reserved Data key a component output uses to carry an
// ExecutionDirective. It never appears in a declared port schema.
const DirectiveKey = "_directive"

// Directive extracts the ExecutionDirective from a NodeData's Data, if any.
// Absence of the key is equivalent to StrategyNormal.
func Directive(d NodeData) ExecutionDirective {
	raw, ok := d.Data[DirectiveKey]
	if !ok {
		return ExecutionDirective{Strategy: StrategyNormal}
	}
	switch v := raw.(type) {
	case ExecutionDirective:
		if v.Strategy == "" {
			v.Strategy = StrategyNormal
		}
		return v
	default:
		return ExecutionDirective{Strategy: StrategyNormal}
	}
}

// WithDirective returns a copy of d with its ExecutionDirective set.
func WithDirective(d NodeData, directive ExecutionDirective) NodeData {
	out := d.Clone()
	out.Data[DirectiveKey] = directive
	return out
}

// SourceChunk is a single retrieved/cited document fragment, used by
// retriever-style tools and renumbered by the ReAct loop's citation
// formatter.
type SourceChunk struct {
	Name         string         `json:"name"`
	DocumentName string         `json:"document_name,omitempty"`
	Content      string         `json:"content"`
	URL          string         `json:"url,omitempty"`
	ToolName     string         `json:"tool_name,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// SourcedResponse pairs a generated response with the SourceChunks that
// informed it, before citation renumbering.
type SourcedResponse struct {
	Response string        `json:"response"`
	Sources  []SourceChunk `json:"sources"`
}
