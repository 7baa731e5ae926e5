package mcptool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"
)

func TestNormalizeContentJoinsTextBlocks(t *testing.T) {
	result := &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: "line one"},
			mcp.TextContent{Type: "text", Text: "line two"},
		},
	}
	text, isError := normalizeContent(result)
	require.Equal(t, "line one\nline two", text)
	require.False(t, isError)
}

func TestNormalizeContentReportsServerError(t *testing.T) {
	result := &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "boom"}},
	}
	text, isError := normalizeContent(result)
	require.Equal(t, "boom", text)
	require.True(t, isError)
}

func TestNormalizeContentNilResultIsEmpty(t *testing.T) {
	text, isError := normalizeContent(nil)
	require.Equal(t, "", text)
	require.False(t, isError)
}

func TestToolDescriptionFromMCPCopiesSchema(t *testing.T) {
	mt := mcp.Tool{
		Name:        "search",
		Description: "search things",
	}
	mt.InputSchema.Properties = map[string]any{
		"query": map[string]any{"type": "string", "description": "the query"},
	}
	mt.InputSchema.Required = []string{"query"}

	desc := toolDescriptionFromMCP(mt)
	require.Equal(t, "search", desc.Name)
	require.Equal(t, "search things", desc.Description)
	require.Equal(t, []string{"query"}, desc.RequiredProperties)
	require.Equal(t, "string", desc.ToolProperties["query"]["type"])
}

func TestNewRejectsEmptyName(t *testing.T) {
	_, err := New(context.Background(), Config{})
	require.Error(t, err)
}

func TestClassifyCallErrorReportsConnectionErrorOnDeadline(t *testing.T) {
	tool := &Tool{cfg: Config{Name: "srv"}, timeout: 5 * time.Second}

	cctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	<-cctx.Done()

	err := tool.classifyCallError(cctx, "search", context.DeadlineExceeded)
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	require.Equal(t, "srv", connErr.Server)
}

func TestClassifyCallErrorPassesThroughOrdinaryError(t *testing.T) {
	tool := &Tool{cfg: Config{Name: "srv"}, timeout: 5 * time.Second}

	err := tool.classifyCallError(context.Background(), "search", errors.New("boom"))
	var connErr *ConnectionError
	require.False(t, errors.As(err, &connErr))
	require.ErrorContains(t, err, "search")
}
