// Package mcpserver registers MCP tools that expose the device
// library. It adapts the channel and tree packages to the MCP SDK's
// tool handler interface.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterTools adds all library tools to the given MCP server.
func RegisterTools(server *mcp.Server, lib *Library) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "library_tree",
		Description: "List the device library as flat path entries (path, kind, object id), optionally scoped to a folder. Use this as the first call to get a complete map of the library.",
	}, treeHandler(lib))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "library_stat",
		Description: "Fetch one object's metadata by path: object id, kind, parent id, pinned flag, version, and last-modified time.",
	}, statHandler(lib))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "document_pull",
		Description: "Download a document's payload (pdf or epub) into a local directory. Folder paths are downloaded recursively. Device-native notebooks have no payload and are skipped.",
	}, pullHandler(lib))
}

// --- Input types ---
// The MCP SDK infers JSON schema from these struct types via jsonschema tags.

// TreeInput holds parameters for library_tree.
type TreeInput struct {
	Path string `json:"path,omitempty" jsonschema:"folder path in the library, defaults to the whole library"`
}

// StatInput holds parameters for library_stat.
type StatInput struct {
	Path string `json:"path" jsonschema:"required,object path in the library"`
}

// PullInput holds parameters for document_pull.
type PullInput struct {
	Path      string `json:"path" jsonschema:"required,document or folder path in the library"`
	Dest      string `json:"dest,omitempty" jsonschema:"local destination directory, defaults to the working directory"`
	Overwrite bool   `json:"overwrite,omitempty" jsonschema:"replace local files that already exist"`
}

// --- Handlers ---

func treeHandler(lib *Library) mcp.ToolHandlerFor[TreeInput, *TreeResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input TreeInput) (*mcp.CallToolResult, *TreeResult, error) {
		result, err := lib.Tree(ctx, input.Path)
		if err != nil {
			return nil, nil, err
		}
		return textResult(result), result, nil
	}
}

func statHandler(lib *Library) mcp.ToolHandlerFor[StatInput, *StatResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input StatInput) (*mcp.CallToolResult, *StatResult, error) {
		result, err := lib.Stat(ctx, input.Path)
		if err != nil {
			return nil, nil, err
		}
		return textResult(result), result, nil
	}
}

func pullHandler(lib *Library) mcp.ToolHandlerFor[PullInput, *PullResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input PullInput) (*mcp.CallToolResult, *PullResult, error) {
		result, err := lib.Pull(ctx, input.Path, input.Dest, input.Overwrite)
		if err != nil {
			return nil, nil, err
		}
		return textResult(result), result, nil
	}
}

// textResult builds a CallToolResult with JSON text content from any value.
// This provides the unstructured content alongside the structured output
// that the SDK populates automatically.
func textResult(v interface{}) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("error marshaling result: %v", err)}},
			IsError: true,
		}
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}
