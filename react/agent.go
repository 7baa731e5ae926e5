// Package react implements the agentic loop (spec.md's "Agentic Loop
// (ReAct Node)" subsystem): an LLM, driven in a bounded iterate/call-tools
// cycle, grounded on engine/components/ai_agent.py's AIAgent.
package react

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/draftnrun/agentgraph/citation"
	"github.com/draftnrun/agentgraph/component"
	"github.com/draftnrun/agentgraph/components/retriever"
	"github.com/draftnrun/agentgraph/llmservice"
	"github.com/draftnrun/agentgraph/nodedata"
	"github.com/draftnrun/agentgraph/schema"
	"github.com/draftnrun/agentgraph/telemetry"
	"github.com/draftnrun/agentgraph/toolerrors"
)

const (
	// OutputToolName is the synthetic tool offered to the model when
	// output_format is set; a call to it ends the loop, its arguments
	// becoming the structured final answer.
	OutputToolName        = "chat_formatting_output_tool"
	outputToolDescription = "Default tool to be used by the agent to answer in a structured format if no other tool is called"

	defaultInitialPrompt = "Don't make assumptions about what values to plug into functions. " +
		"Ask for clarification if a user request is ambiguous. "
	defaultSystemPrompt = "Act as a helpful assistant. " +
		"You can use tools to answer questions, but you can also answer directly if you have enough information."
	defaultFallbackAnswer = "I couldn't find a solution to your problem."
)

// Config configures an Agent construction, mirroring AIAgent.__init__'s
// keyword arguments.
type Config struct {
	Completion           llmservice.CompletionService
	Tracer                telemetry.Tracer
	Metrics               telemetry.Metrics
	Logger                telemetry.Logger
	Attributes            nodedata.ComponentAttributes
	ToolDescription       nodedata.ToolDescription
	Tools                 []component.Component
	RunToolsInParallel    bool
	MaxIterations         int
	MaxToolsPerIteration  int
	FirstHistoryMessages  int
	LastHistoryMessages   int
	AllowToolShortcuts    bool
	DateInSystemPrompt    bool
}

type toolEntry struct {
	tool component.Component
	desc nodedata.ToolDescription
}

// Agent is the ReAct loop's own state, held by the Core closure captured in
// the component.Base wrapper returned by New. Everything mutated during a
// single run (iteration count, accumulated messages/artifacts) lives on the
// stack of a single Run call, not on this struct, so one Agent is safe to
// invoke concurrently from multiple graph runs.
type Agent struct {
	completion     llmservice.CompletionService
	logger         telemetry.Logger
	name           string
	registry       map[string]toolEntry
	toolOrder      []string
	hasRetriever   bool
	runParallel    bool
	maxIterations  int
	maxToolsPerRun int
	history        HistoryHandler
	allowShortcuts bool
	dateInPrompt   bool
}

// New builds the ReAct agent Component (spec.md's agentic-loop subsystem).
func New(cfg Config) (component.Component, error) {
	if cfg.Completion == nil {
		return nil, fmt.Errorf("react: a CompletionService is required")
	}
	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = 3
	}
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}

	a := &Agent{
		completion:     cfg.Completion,
		logger:         logger,
		name:           cfg.Attributes.InstanceName,
		runParallel:    cfg.RunToolsInParallel,
		maxIterations:  maxIter,
		maxToolsPerRun: cfg.MaxToolsPerIteration,
		history:        NewHistoryHandler(cfg.FirstHistoryMessages, cfg.LastHistoryMessages),
		allowShortcuts: cfg.AllowToolShortcuts,
		dateInPrompt:   cfg.DateInSystemPrompt,
	}
	a.buildToolRegistry(cfg.Tools)

	return &component.Base{
		Attributes: cfg.Attributes,
		Tool:       cfg.ToolDescription,
		Inputs:     inputsSchema(),
		Outputs:    outputsSchema(),
		Canonical:  component.CanonicalPorts{Input: "messages", Output: "output"},
		Tracer:     cfg.Tracer,
		Metrics:    cfg.Metrics,
		Core:       a.run,
	}, nil
}

func inputsSchema() schema.StructuredType {
	return schema.StructuredType{Fields: []schema.Port{
		{Name: "messages", Type: schema.TypeMessages, Required: true},
		{Name: "initial_prompt", Type: schema.TypeString, HasDefault: true, Default: defaultSystemPrompt},
		{Name: "output_format", Type: schema.TypeJSON, Nullable: true, DisabledAsInput: true},
	}}
}

func outputsSchema() schema.StructuredType {
	return schema.StructuredType{Fields: []schema.Port{
		{Name: "output", Type: schema.TypeString},
		{Name: "full_message", Type: schema.TypeAny},
		{Name: "is_final", Type: schema.TypeBool, HasDefault: true, Default: false},
		{Name: "artifacts", Type: schema.TypeMapping, HasDefault: true, Default: map[string]any{}},
	}}
}

func (a *Agent) buildToolRegistry(tools []component.Component) {
	a.registry = map[string]toolEntry{}
	for _, tool := range tools {
		for _, desc := range tool.GetToolDescriptions() {
			if _, exists := a.registry[desc.Name]; exists {
				a.logger.Warn(context.Background(), "duplicate tool name, overriding previous mapping", "tool", desc.Name)
			} else {
				a.toolOrder = append(a.toolOrder, desc.Name)
			}
			a.registry[desc.Name] = toolEntry{tool: tool, desc: desc}
		}
	}
	_, a.hasRetriever = a.registry[retriever.ToolName]
}

func (a *Agent) toolDescriptionsForLLM() []nodedata.ToolDescription {
	out := make([]nodedata.ToolDescription, 0, len(a.toolOrder))
	for _, name := range a.toolOrder {
		out = append(out, a.registry[name].desc)
	}
	return out
}

// run is the component.CoreFunc driving the bounded iterate/call-tools
// cycle (spec.md's agentic-loop subsystem).
func (a *Agent) run(ctx context.Context, cc *component.CallContext, inputs map[string]any, runCtx map[string]any) (map[string]any, error) {
	messages, _ := inputs["messages"].([]nodedata.ChatMessage)
	messages = append([]nodedata.ChatMessage(nil), messages...)

	initialPrompt, _ := inputs["initial_prompt"].(string)
	if initialPrompt == "" {
		initialPrompt = defaultInitialPrompt
	}

	structuredOutputTool, err := a.parseOutputFormat(inputs["output_format"])
	if err != nil {
		return nil, err
	}

	systemContent := a.buildSystemPrompt(initialPrompt, runCtx)

	templateInputs := map[string]any{}
	for k, v := range inputs {
		if k == "messages" || k == "output_format" {
			continue
		}
		templateInputs[k] = v
	}
	filled, err := FillPromptTemplate(systemContent, a.name, templateInputs, runCtx)
	if err != nil {
		return nil, err
	}

	if len(messages) == 0 || messages[0].Role != nodedata.RoleSystem {
		messages = append([]nodedata.ChatMessage{{Role: nodedata.RoleSystem, Content: filled}}, messages...)
	} else {
		messages[0] = nodedata.ChatMessage{Role: nodedata.RoleSystem, Content: filled}
	}

	artifacts := map[string]any{}

	for iteration := 0; ; iteration++ {
		truncated := a.history.Truncate(messages)
		toolChoice := "auto"
		if iteration+1 >= a.maxIterations {
			toolChoice = "none"
		}

		resp, err := a.completion.FunctionCall(ctx, truncated, a.toolDescriptionsForLLM(), toolChoice, structuredOutputTool)
		if err != nil {
			return nil, fmt.Errorf("react: function call: %w", err)
		}

		if len(resp.Message.ToolCalls) == 0 {
			cc.LogTraceEvent("no tool calls found in the response, returning the chat response")
			return a.finalize(resp.Message, artifacts), nil
		}

		for _, tc := range resp.Message.ToolCalls {
			if structuredOutputTool == nil || tc.Name != OutputToolName {
				continue
			}
			var fields map[string]any
			if err := json.Unmarshal(tc.Arguments, &fields); err != nil {
				return nil, fmt.Errorf("react: malformed %s arguments: %w", OutputToolName, err)
			}
			encoded, _ := json.Marshal(fields)
			out := a.finalize(nodedata.ChatMessage{Role: nodedata.RoleAssistant, Content: string(encoded)}, artifacts)
			for k, v := range fields {
				if _, reserved := out[k]; !reserved {
					out[k] = v
				}
			}
			return out, nil
		}

		toolCalls := resp.Message.ToolCalls
		maxTools := len(toolCalls)
		if a.maxToolsPerRun > 0 && maxTools > a.maxToolsPerRun {
			a.logger.Warn(ctx, "limiting tool calls for this iteration", "requested", len(toolCalls), "limit", a.maxToolsPerRun)
			maxTools = a.maxToolsPerRun
		}
		processed := toolCalls[:maxTools]

		results := a.dispatchTools(ctx, processed, runCtx)

		messages = append(messages, nodedata.ChatMessage{Role: nodedata.RoleAssistant, ToolCalls: processed})
		var finalResults []dispatchResult
		for _, r := range results {
			messages = append(messages, nodedata.ChatMessage{Role: nodedata.RoleTool, Content: r.content, ToolCallID: r.id})
			mergeArtifacts(artifacts, r.artifacts)
			if r.isFinal {
				finalResults = append(finalResults, r)
			}
		}

		if len(finalResults) == 1 && a.allowShortcuts {
			cc.LogTraceEvent(fmt.Sprintf(
				"found a unique successful output after %d iterations, returning the final output", iteration+1,
			))
			fr := finalResults[0]
			return map[string]any{
				"output":       fr.content,
				"full_message": nodedata.ChatMessage{Role: nodedata.RoleAssistant, Content: fr.content},
				"is_final":     true,
				"artifacts":    artifacts,
			}, nil
		}

		if iteration+1 >= a.maxIterations {
			a.logger.Error(ctx, "reached the maximum number of iterations and still asks for tools", "max_iterations", a.maxIterations)
			return map[string]any{
				"output":       defaultFallbackAnswer,
				"full_message": nodedata.ChatMessage{Role: nodedata.RoleAssistant, Content: defaultFallbackAnswer},
				"is_final":     false,
				"artifacts":    artifacts,
			}, nil
		}
	}
}

func (a *Agent) buildSystemPrompt(initialPrompt string, runCtx map[string]any) string {
	content := initialPrompt
	if a.hasRetriever {
		content = content + "\n" + retriever.CitationInstruction
	}
	if a.dateInPrompt {
		content = fmt.Sprintf("Current date and time: %s\n\n%s", time.Now().Format("2006-01-02 15:04:05"), content)
	}
	if files := extractFileManifest(runCtx); len(files) > 0 {
		manifest := "\n\nAvailable input files:\n"
		for _, f := range files {
			manifest += "- " + f + "\n"
		}
		content += manifest
	}
	return content
}

func extractFileManifest(ctx map[string]any) []string {
	var names []string
	for _, v := range ctx {
		m, ok := v.(map[string]any)
		if !ok || m["type"] != "file" {
			continue
		}
		if name, ok := m["filename"].(string); ok && name != "" {
			names = append(names, name)
		}
	}
	return names
}

func (a *Agent) finalize(msg nodedata.ChatMessage, artifacts map[string]any) map[string]any {
	content := msg.Content
	if sources, ok := artifacts["sources"].([]nodedata.SourceChunk); ok && len(sources) > 0 {
		renumbered := renumberSources(content, sources)
		content = renumbered.Response
		artifacts["sources"] = renumbered.Sources
	}
	return map[string]any{
		"output":       content,
		"full_message": msg,
		"is_final":     true,
		"artifacts":    artifacts,
	}
}

func (a *Agent) parseOutputFormat(raw any) (*nodedata.ToolDescription, error) {
	if raw == nil {
		return nil, nil
	}
	var props map[string]map[string]any
	switch v := raw.(type) {
	case string:
		if v == "" {
			return nil, nil
		}
		var decoded map[string]map[string]any
		if err := json.Unmarshal([]byte(v), &decoded); err != nil {
			return nil, fmt.Errorf("react: invalid output_format: %w", err)
		}
		props = decoded
	case map[string]any:
		props = map[string]map[string]any{}
		for k, vv := range v {
			if m, ok := vv.(map[string]any); ok {
				props[k] = m
			}
		}
	default:
		return nil, fmt.Errorf("react: unsupported output_format value %T", raw)
	}
	if len(props) == 0 {
		return nil, nil
	}
	required := make([]string, 0, len(props))
	for k := range props {
		required = append(required, k)
	}
	return &nodedata.ToolDescription{
		Name:               OutputToolName,
		Description:        outputToolDescription,
		ToolProperties:      props,
		RequiredProperties: required,
	}, nil
}

type dispatchResult struct {
	id       string
	content  string
	artifacts map[string]any
	isFinal  bool
}

func (a *Agent) dispatchTools(ctx context.Context, calls []nodedata.ToolCall, runCtx map[string]any) []dispatchResult {
	results := make([]dispatchResult, len(calls))
	run := func(i int) {
		results[i] = a.runOneTool(ctx, calls[i], runCtx)
	}
	if !a.runParallel {
		for i := range calls {
			run(i)
		}
		return results
	}
	g, _ := errgroup.WithContext(ctx)
	for i := range calls {
		i := i
		g.Go(func() error {
			run(i)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (a *Agent) runOneTool(ctx context.Context, call nodedata.ToolCall, runCtx map[string]any) dispatchResult {
	entry, ok := a.registry[call.Name]
	if !ok {
		return dispatchResult{id: call.ID, content: fmt.Sprintf("tool %q not found in agent_tools", call.Name)}
	}
	var args map[string]any
	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			return dispatchResult{id: call.ID, content: fmt.Sprintf("malformed tool arguments: %v", err)}
		}
	}
	if args == nil {
		args = map[string]any{}
	}
	if req, ok := entry.tool.(component.ToolNameRequirer); ok && req.RequiresToolName() {
		args["tool_name"] = call.Name
	}
	out, err := entry.tool.Run(ctx, nodedata.NodeData{Data: args, Ctx: runCtx})
	if err != nil {
		return dispatchResult{id: call.ID, content: toolerrors.FromError(err).Error()}
	}

	content, _ := out.Data["output"].(string)
	if content == "" {
		if b, err := json.Marshal(out.Data); err == nil {
			content = string(b)
		}
	}
	isFinal, _ := out.Data["is_final"].(bool)
	artifacts, _ := out.Data["artifacts"].(map[string]any)
	return dispatchResult{id: call.ID, content: content, artifacts: artifacts, isFinal: isFinal}
}

func mergeArtifacts(into, from map[string]any) {
	if len(from) == 0 {
		return
	}
	var sources []nodedata.SourceChunk
	if existing, ok := into["sources"].([]nodedata.SourceChunk); ok {
		sources = existing
	}
	for k, v := range from {
		if k == "sources" {
			if s, ok := v.([]nodedata.SourceChunk); ok {
				sources = append(sources, s...)
			}
			continue
		}
		into[k] = v
	}
	if len(sources) > 0 {
		into["sources"] = sources
	}
}

func renumberSources(response string, sources []nodedata.SourceChunk) nodedata.SourcedResponse {
	return citation.Renumber(nodedata.SourcedResponse{Response: response, Sources: sources})
}
