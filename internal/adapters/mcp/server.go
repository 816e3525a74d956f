// Package mcp exposes a workspace's tree and edit commands as MCP tools.
package mcp

import (
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"arbor/internal/app"
)

// Tool name constants.
const (
	ToolTree       = "tree"
	ToolNode       = "node"
	ToolPrivileges = "privileges"
	ToolInsert     = "insert"
	ToolCreate     = "create"
	ToolEdit       = "edit"
	ToolSetType    = "set_type"
	ToolDelete     = "delete"
	ToolMove       = "move"
	ToolReorder    = "reorder"
	ToolSplit      = "split"
	ToolShare      = "share"
)

// handlers serializes tool calls onto one workspace. Workspace state is
// single-threaded while the MCP server dispatches concurrently.
type handlers struct {
	mu  sync.Mutex
	app *app.App
}

func newHandlers(a *app.App) *handlers {
	return &handlers{app: a}
}

// locked runs fn with the workspace lock held.
func (h *handlers) locked(fn func() (*mcp.CallToolResult, error)) (*mcp.CallToolResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn()
}

// NewServer creates an MCP server with every read and write tool.
func NewServer(a *app.App, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"arbor-mcp",
		version,
		server.WithToolCapabilities(true),
	)
	h := newHandlers(a)
	RegisterReadTools(s, h)
	RegisterWriteTools(s, h)
	return s
}
