// Package mcptools exposes the subchapter catalog to MCP clients.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"

	"subchapter-tutor-be/pkg/catalog"
	"subchapter-tutor-be/pkg/contentstore"
	"subchapter-tutor-be/pkg/prompt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// CatalogSource yields the current catalog snapshot.
type CatalogSource interface {
	Catalog(ctx context.Context) (*catalog.Catalog, error)
}

type Tools struct {
	catalogs CatalogSource
	content  contentstore.Store
}

type subchapterSummary struct {
	Label       string `json:"label"`
	MainChapter string `json:"main_chapter"`
	Topic       string `json:"topic"`
}

func NewTools(catalogs CatalogSource, content contentstore.Store) *Tools {
	return &Tools{catalogs: catalogs, content: content}
}

// NewServer registers every tool on a fresh MCP server.
func NewServer(t *Tools, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"Subchapter Tutor",
		version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(
		mcp.NewTool("list_subchapters",
			mcp.WithDescription("List every subchapter label in the textbook catalog, sorted, with its main chapter and topic."),
		),
		t.HandleListSubchapters,
	)

	s.AddTool(
		mcp.NewTool("read_subchapter",
			mcp.WithDescription("Read the full text of one subchapter."),
			mcp.WithString("label",
				mcp.Required(),
				mcp.Description("The subchapter label (e.g., '8.3 Inflation')"),
			),
		),
		t.HandleReadSubchapter,
	)

	s.AddTool(
		mcp.NewTool("compose_prompt",
			mcp.WithDescription("Return the tutoring system instruction for one subchapter, with its text embedded."),
			mcp.WithString("label",
				mcp.Required(),
				mcp.Description("The subchapter label (e.g., '8.3 Inflation')"),
			),
		),
		t.HandleComposePrompt,
	)

	return s
}

func (t *Tools) HandleListSubchapters(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cat, err := t.catalogs.Catalog(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error listing subchapters: %v", err)), nil
	}

	summaries := make([]subchapterSummary, 0, cat.Len())
	for _, label := range cat.Labels() {
		entry, _ := cat.Lookup(label)
		summaries = append(summaries, subchapterSummary{
			Label:       label,
			MainChapter: entry.Name.MainChapter,
			Topic:       entry.Name.Topic,
		})
	}

	result, _ := json.MarshalIndent(summaries, "", "  ")
	return mcp.NewToolResultText(string(result)), nil
}

func (t *Tools) HandleReadSubchapter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	label := req.GetString("label", "")
	text, errResult := t.load(ctx, label)
	if errResult != nil {
		return errResult, nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("# %s\n\n%s", label, text)), nil
}

func (t *Tools) HandleComposePrompt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	label := req.GetString("label", "")
	text, errResult := t.load(ctx, label)
	if errResult != nil {
		return errResult, nil
	}
	return mcp.NewToolResultText(prompt.Compose(label, text)), nil
}

func (t *Tools) load(ctx context.Context, label string) (string, *mcp.CallToolResult) {
	if label == "" {
		return "", mcp.NewToolResultError("label is required")
	}

	cat, err := t.catalogs.Catalog(ctx)
	if err != nil {
		return "", mcp.NewToolResultError(fmt.Sprintf("Error listing subchapters: %v", err))
	}
	entry, ok := cat.Lookup(label)
	if !ok {
		return "", mcp.NewToolResultError(fmt.Sprintf("Unknown subchapter: %q", label))
	}

	text, err := t.content.FetchText(ctx, entry.Unit)
	if err != nil {
		return "", mcp.NewToolResultError(fmt.Sprintf("Error reading subchapter: %v", err))
	}
	return text, nil
}
