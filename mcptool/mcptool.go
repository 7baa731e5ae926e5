// Package mcptool implements the MCP (Model Context Protocol) tool
// substrate (spec.md's subsystem 6): a Component that fronts every tool a
// remote or local MCP server exposes, over
// github.com/mark3labs/mcp-go's client transports — SSE/streamable-HTTP for
// a remote server, stdio subprocess for a local one — grounded on
// pchaganti-gx-mcp-host's internal/tools/mcp.go and styled on goa-ai's
// runtime/mcp Caller/CallRequest/CallResponse shape. The two transports
// have different session lifecycles: a local stdio server gets one
// persistent session for the Tool's lifetime, while a remote SSE server
// gets a fresh session per tool call, opened and closed around that one
// call (spec.md §4.6).
package mcptool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/draftnrun/agentgraph/component"
	"github.com/draftnrun/agentgraph/nodedata"
	"github.com/draftnrun/agentgraph/schema"
	"github.com/draftnrun/agentgraph/telemetry"
)

// Transport selects how a Tool reaches its MCP server.
type Transport string

const (
	// TransportRemoteSSE dials a remote MCP server over SSE/streamable-HTTP,
	// opening a fresh session for every tool call and closing it afterward.
	TransportRemoteSSE Transport = "remote_sse"
	// TransportLocalStdio spawns a local MCP server subprocess over stdio,
	// keeping one session open for the Tool's entire lifetime.
	TransportLocalStdio Transport = "local_stdio"
)

// ConnectionError wraps a transport-level failure to reach an MCP server
// (dial, initialize, list-tools, or call-timeout failure), distinguishing
// it from a normal tool-execution error.
type ConnectionError struct {
	Server string
	Cause  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("mcp: failed to connect to server %q: %v", e.Server, e.Cause)
}

func (e *ConnectionError) Unwrap() error { return e.Cause }

// Config configures one MCP server connection.
type Config struct {
	Name       string
	Transport  Transport
	URL        string // required for TransportRemoteSSE
	Command    string // required for TransportLocalStdio
	Args       []string
	Env        []string
	Timeout    time.Duration
	Attributes nodedata.ComponentAttributes
	Tracer     telemetry.Tracer
	Metrics    telemetry.Metrics
}

// Tool is the multi-tool Component fronting one MCP server: GetToolDescriptions
// reports every tool the server advertised at construction time, and Run
// dispatches a single call to whichever one the "tool_name" argument names
// (RequiresToolName reports true so the ReAct dispatcher injects it).
type Tool struct {
	cfg     Config
	timeout time.Duration

	// mu guards client/started, which only apply to the persistent
	// TransportLocalStdio session; TransportRemoteSSE never sets either,
	// since it opens and closes a fresh session around each call.
	mu      sync.Mutex
	client  mcpclient.MCPClient
	started bool

	descs []nodedata.ToolDescription

	base *component.Base
}

// New connects to the configured MCP server long enough to list its tools,
// and returns the ready-to-use Component. For TransportLocalStdio that
// session is kept open for reuse by every subsequent Run; for
// TransportRemoteSSE it is closed immediately after listing, since that
// transport never keeps a session alive between calls.
func New(ctx context.Context, cfg Config) (*Tool, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("mcptool: Name is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	t := &Tool{cfg: cfg, timeout: timeout}

	switch cfg.Transport {
	case TransportLocalStdio:
		if err := t.ensureSession(ctx); err != nil {
			return nil, err
		}
	case TransportRemoteSSE:
		descs, err := t.discoverRemote(ctx)
		if err != nil {
			return nil, err
		}
		t.descs = descs
	default:
		return nil, fmt.Errorf("mcptool: unknown transport %q", cfg.Transport)
	}

	t.base = &component.Base{
		Attributes: cfg.Attributes,
		Inputs:     schema.StructuredType{Fields: []schema.Port{{Name: "tool_name", Type: schema.TypeString, Required: true}}},
		Outputs: schema.StructuredType{Fields: []schema.Port{
			{Name: "output", Type: schema.TypeString},
			{Name: "is_final", Type: schema.TypeBool, HasDefault: true, Default: false},
		}},
		Tracer:     cfg.Tracer,
		Metrics:    cfg.Metrics,
		ExtraTools: t.descs,
		Core:       t.run,
	}
	return t, nil
}

// dialAndInitialize dials the configured transport and performs the MCP
// initialize handshake, returning a live, ready client. The caller owns the
// returned client's lifecycle (close it when done with it).
func (t *Tool) dialAndInitialize(ctx context.Context) (mcpclient.MCPClient, error) {
	cctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var cli mcpclient.MCPClient
	var err error
	switch t.cfg.Transport {
	case TransportLocalStdio:
		if t.cfg.Command == "" {
			return nil, fmt.Errorf("mcptool: Command is required for local stdio transport")
		}
		cli, err = mcpclient.NewStdioMCPClient(t.cfg.Command, t.cfg.Env, t.cfg.Args...)
	case TransportRemoteSSE:
		if t.cfg.URL == "" {
			return nil, fmt.Errorf("mcptool: URL is required for remote transport")
		}
		var sse *mcpclient.SSEMCPClient
		sse, err = mcpclient.NewSSEMCPClient(t.cfg.URL)
		if err == nil {
			if startErr := sse.Start(cctx); startErr != nil {
				return nil, &ConnectionError{Server: t.cfg.Name, Cause: startErr}
			}
		}
		cli = sse
	default:
		return nil, fmt.Errorf("mcptool: unknown transport %q", t.cfg.Transport)
	}
	if err != nil {
		return nil, &ConnectionError{Server: t.cfg.Name, Cause: err}
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "agentgraph", Version: "0.1.0"}
	if _, err := cli.Initialize(cctx, initReq); err != nil {
		return nil, &ConnectionError{Server: t.cfg.Name, Cause: fmt.Errorf("initialize: %w", err)}
	}
	return cli, nil
}

// ensureSession lazily (and idempotently) establishes the persistent local
// stdio session and caches the server's tool list. Safe to call more than
// once; only the first call does any work. Never used for
// TransportRemoteSSE, which has no persistent session to establish.
func (t *Tool) ensureSession(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return nil
	}

	cli, err := t.dialAndInitialize(ctx)
	if err != nil {
		return err
	}

	descs, err := listTools(ctx, t.timeout, t.cfg.Name, cli)
	if err != nil {
		return err
	}

	t.client = cli
	t.descs = descs
	t.started = true
	return nil
}

// discoverRemote opens a one-off session purely to list the server's
// tools at construction time, then closes it — the session a
// TransportRemoteSSE call makes later is a separate, fresh one per spec.md
// §4.6.
func (t *Tool) discoverRemote(ctx context.Context) ([]nodedata.ToolDescription, error) {
	cli, err := t.dialAndInitialize(ctx)
	if err != nil {
		return nil, err
	}
	defer cli.Close()

	return listTools(ctx, t.timeout, t.cfg.Name, cli)
}

func listTools(ctx context.Context, timeout time.Duration, server string, cli mcpclient.MCPClient) ([]nodedata.ToolDescription, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	listed, err := cli.ListTools(cctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, &ConnectionError{Server: server, Cause: fmt.Errorf("list tools: %w", err)}
	}

	descs := make([]nodedata.ToolDescription, 0, len(listed.Tools))
	for _, mt := range listed.Tools {
		descs = append(descs, toolDescriptionFromMCP(mt))
	}
	return descs, nil
}

func toolDescriptionFromMCP(mt mcp.Tool) nodedata.ToolDescription {
	props := map[string]map[string]any{}
	var required []string
	if mt.InputSchema.Properties != nil {
		for name, raw := range mt.InputSchema.Properties {
			if m, ok := raw.(map[string]any); ok {
				props[name] = m
			}
		}
	}
	required = append(required, mt.InputSchema.Required...)
	return nodedata.ToolDescription{
		Name:               mt.Name,
		Description:        mt.Description,
		ToolProperties:     props,
		RequiredProperties: required,
	}
}

// Name implements component.Component.
func (t *Tool) Name() string { return t.cfg.Name }

// InputsSchema implements component.Component.
func (t *Tool) InputsSchema() schema.StructuredType { return t.base.InputsSchema() }

// OutputsSchema implements component.Component.
func (t *Tool) OutputsSchema() schema.StructuredType { return t.base.OutputsSchema() }

// CanonicalPorts implements component.Component.
func (t *Tool) CanonicalPorts() component.CanonicalPorts { return t.base.CanonicalPorts() }

// GetToolDescriptions implements component.Component: every tool the
// server advertised at construction time.
func (t *Tool) GetToolDescriptions() []nodedata.ToolDescription { return t.descs }

// RequiresToolName implements component.ToolNameRequirer.
func (t *Tool) RequiresToolName() bool { return true }

// Run implements component.Component via the Base wrapper.
func (t *Tool) Run(ctx context.Context, in nodedata.NodeData) (nodedata.NodeData, error) {
	return t.base.Run(ctx, in)
}

func (t *Tool) run(ctx context.Context, cc *component.CallContext, inputs map[string]any, _ map[string]any) (map[string]any, error) {
	toolName, _ := inputs["tool_name"].(string)
	if toolName == "" {
		return nil, fmt.Errorf("mcptool: missing tool_name")
	}
	args := make(map[string]any, len(inputs))
	for k, v := range inputs {
		if k == "tool_name" {
			continue
		}
		args[k] = v
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = toolName
	req.Params.Arguments = args

	cc.LogTrace(map[string]any{"mcp_server": t.cfg.Name, "mcp_tool": toolName})

	var result *mcp.CallToolResult
	var err error
	switch t.cfg.Transport {
	case TransportLocalStdio:
		result, err = t.callLocal(ctx, req)
	case TransportRemoteSSE:
		result, err = t.callRemote(ctx, req)
	default:
		return nil, fmt.Errorf("mcptool: unknown transport %q", t.cfg.Transport)
	}
	if err != nil {
		return nil, err
	}

	text, isError := normalizeContent(result)
	return map[string]any{"output": text, "is_final": false, "_mcp_is_error": isError}, nil
}

// callLocal reuses the persistent stdio session established by ensureSession.
func (t *Tool) callLocal(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := t.ensureSession(ctx); err != nil {
		return nil, err
	}
	cctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	result, err := t.client.CallTool(cctx, req)
	if err != nil {
		return nil, t.classifyCallError(cctx, req.Params.Name, err)
	}
	return result, nil
}

// callRemote opens a fresh SSE session, makes the one call, and closes the
// session before returning — the per-invocation lifecycle spec.md §4.6
// requires of the remote transport.
func (t *Tool) callRemote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cli, err := t.dialAndInitialize(ctx)
	if err != nil {
		return nil, err
	}
	defer cli.Close()

	cctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	result, err := cli.CallTool(cctx, req)
	if err != nil {
		return nil, t.classifyCallError(cctx, req.Params.Name, err)
	}
	return result, nil
}

// classifyCallError reports a call that failed because its deadline expired
// as a ConnectionError carrying spec.md §4.6/§7's "tool call timed out"
// message, distinguishing it from an ordinary tool-execution error.
func (t *Tool) classifyCallError(cctx context.Context, toolName string, err error) error {
	if cctx.Err() == context.DeadlineExceeded || errors.Is(err, context.DeadlineExceeded) {
		return &ConnectionError{
			Server: t.cfg.Name,
			Cause:  fmt.Errorf("tool call timed out after %s: %w", t.timeout, err),
		}
	}
	return fmt.Errorf("mcp: call tool %q on server %q: %w", toolName, t.cfg.Name, err)
}

// normalizeContent renders an MCP CallToolResult's content blocks to a
// single string for the tool-role message the ReAct loop appends, and
// reports whether the server flagged the call as a tool-level error.
func normalizeContent(result *mcp.CallToolResult) (string, bool) {
	if result == nil {
		return "", false
	}
	var text string
	for _, block := range result.Content {
		if tc, ok := block.(mcp.TextContent); ok {
			if text != "" {
				text += "\n"
			}
			text += tc.Text
		}
	}
	if text == "" {
		if b, err := json.Marshal(result.Content); err == nil {
			text = string(b)
		}
	}
	return text, result.IsError
}

// Close releases the underlying persistent transport, if any. TransportRemoteSSE
// never holds one open between calls, so this is a no-op for that transport.
func (t *Tool) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return nil
	}
	return t.client.Close()
}
