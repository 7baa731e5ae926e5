package react

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFillPromptTemplateInputsTakePriorityOverCtx(t *testing.T) {
	out, err := FillPromptTemplate(
		"Hello {name}, today is {day}.",
		"greeter",
		map[string]any{"name": "Ada"},
		map[string]any{"name": "ctx-name", "day": "Monday"},
	)
	require.NoError(t, err)
	require.Equal(t, "Hello Ada, today is Monday.", out)
}

func TestFillPromptTemplateMissingKeyErrors(t *testing.T) {
	_, err := FillPromptTemplate("Hello {name}", "greeter", map[string]any{}, map[string]any{})
	require.Error(t, err)
	var missing *ErrMissingPromptKey
	require.True(t, errors.As(err, &missing))
	require.Equal(t, "name", missing.Key)
}

func TestFillPromptTemplateNoPlaceholdersReturnsUnchanged(t *testing.T) {
	out, err := FillPromptTemplate("No placeholders here.", "greeter", nil, nil)
	require.NoError(t, err)
	require.Equal(t, "No placeholders here.", out)
}

func TestFillPromptTemplateSkipsDoubleBraceEscape(t *testing.T) {
	out, err := FillPromptTemplate("literal {{brace}} and {name}", "greeter", map[string]any{"name": "Bob"}, nil)
	require.NoError(t, err)
	require.Equal(t, "literal {{brace}} and Bob", out)
}
