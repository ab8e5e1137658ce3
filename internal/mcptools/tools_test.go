package mcptools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"subchapter-tutor-be/internal/pkg/logger"
	"subchapter-tutor-be/pkg/catalog"
	"subchapter-tutor-be/pkg/contentstore"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTools(t *testing.T) *Tools {
	t.Helper()
	dir := t.TempDir()
	for name, content := range map[string]string{
		"8_Economics_8.3 Inflation.txt":   "Die Inflation ... [seite: 221]",
		"9_Staat_9.1 Gewaltenteilung.txt": "Gewaltenteilung [seite: 300]",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	store := contentstore.NewFSStore(dir)
	return NewTools(catalog.NewBuilder(store, logger.NewNopLogger(), time.Second), store)
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestListSubchapters(t *testing.T) {
	tools := newTestTools(t)

	res, err := tools.HandleListSubchapters(context.Background(), callRequest(nil))
	require.NoError(t, err)
	require.False(t, res.IsError)

	text := resultText(t, res)
	assert.Contains(t, text, `"label": "8.3 Inflation"`)
	assert.Contains(t, text, `"topic": "Staat"`)
	assert.Less(t, strings.Index(text, "8.3 Inflation"), strings.Index(text, "9.1 Gewaltenteilung"))
}

func TestReadSubchapter(t *testing.T) {
	tools := newTestTools(t)

	res, err := tools.HandleReadSubchapter(context.Background(), callRequest(map[string]any{"label": "8.3 Inflation"}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Equal(t, "# 8.3 Inflation\n\nDie Inflation ... [seite: 221]", resultText(t, res))
}

func TestComposePromptEmbedsText(t *testing.T) {
	tools := newTestTools(t)

	res, err := tools.HandleComposePrompt(context.Background(), callRequest(map[string]any{"label": "9.1 Gewaltenteilung"}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	text := resultText(t, res)
	assert.Contains(t, text, "Gewaltenteilung [seite: 300]")
	assert.NotContains(t, text, "{{SUBCHAPTER}}")
	assert.NotContains(t, text, "{{CONTENT}}")
}

func TestToolErrors(t *testing.T) {
	tools := newTestTools(t)

	res, err := tools.HandleReadSubchapter(context.Background(), callRequest(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "label is required")

	res, err = tools.HandleComposePrompt(context.Background(), callRequest(map[string]any{"label": "0.0 Nichts"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "Unknown subchapter")
}
