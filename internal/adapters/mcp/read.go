package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"arbor/internal/application/commands"
	"arbor/internal/domain"
)

// RegisterReadTools adds the read-only tree tools to the MCP server.
func RegisterReadTools(s *server.MCPServer, h *handlers) {
	s.AddTool(treeTool(), h.tree)
	s.AddTool(nodeTool(), h.node)
	s.AddTool(privilegesTool(), h.privileges)
}

// --- tree ---

func treeTool() mcp.Tool {
	return mcp.NewTool(ToolTree,
		mcp.WithDescription("Show a node and its children with their IDs. Without an ID shows the current view (initially your home node)."),
		mcp.WithString("node_id",
			mcp.Description("Node to show as the view root. Use ~home for your home node."),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func (h *handlers) tree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.locked(func() (*mcp.CallToolResult, error) {
		if id := req.GetString("node_id", ""); id != "" {
			if err := h.app.Enter(ctx, id); err != nil {
				return toolError(err)
			}
		}
		view := h.app.Workspace.View
		root := view.Root()
		if root == nil {
			return toolError(fmt.Errorf("no node is being viewed"))
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "%s\n", formatNode(root))
		for _, child := range view.Children() {
			fmt.Fprintf(&sb, "  %s\n", formatNode(child))
		}
		return mcp.NewToolResultText(sb.String()), nil
	})
}

// --- node ---

func nodeTool() mcp.Tool {
	return mcp.NewTool(ToolNode,
		mcp.WithDescription("Read one node: name, type, owner, properties and content. Encrypted content is decrypted when your key allows it."),
		mcp.WithString("id",
			mcp.Description("Node ID"),
			mcp.Required(),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func (h *handlers) node(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return toolError(fmt.Errorf("id is required"))
	}
	return h.locked(func() (*mcp.CallToolResult, error) {
		if err := h.app.Focus(ctx, id); err != nil {
			return toolError(err)
		}
		n, ok := h.app.Workspace.Cache.Get(id)
		if !ok {
			return toolError(fmt.Errorf("node %s is not visible", id))
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "id: %s\n", n.ID)
		fmt.Fprintf(&sb, "name: %s\n", n.Name)
		fmt.Fprintf(&sb, "type: %s\n", n.Type)
		fmt.Fprintf(&sb, "owner: %s\n", n.EffectiveOwner())
		if n.ParentID != "" {
			fmt.Fprintf(&sb, "parent: %s\n", n.ParentID)
		}
		for _, p := range n.Properties {
			fmt.Fprintf(&sb, "property %s: %s\n", p.Name, p.Value)
		}
		sb.WriteString("\n")
		sb.WriteString(h.plainContent(n))
		return mcp.NewToolResultText(sb.String()), nil
	})
}

// plainContent returns the readable content of n.
func (h *handlers) plainContent(n *domain.Node) string {
	if !n.IsEncrypted() {
		return n.Content
	}
	key := n.ContentKey()
	if key == "" {
		return "[encrypted]"
	}
	plain, err := h.app.Box.DecryptWithCipherKey(key, n.CipherText())
	if err != nil {
		h.app.Logger.Warn("cannot decrypt node content", "node", n.ID, "error", err)
		return "[encrypted]"
	}
	return plain
}

// --- privileges ---

func privilegesTool() mcp.Tool {
	return mcp.NewTool(ToolPrivileges,
		mcp.WithDescription("List who a node is shared with."),
		mcp.WithString("id",
			mcp.Description("Node ID"),
			mcp.Required(),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func (h *handlers) privileges(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return toolError(fmt.Errorf("id is required"))
	}
	return h.locked(func() (*mcp.CallToolResult, error) {
		if err := h.app.Focus(ctx, id); err != nil {
			return toolError(err)
		}
		res, err := commands.NewShareCommand(h.app.Workspace, id).Privileges(ctx)
		if err != nil {
			return toolError(err)
		}
		return formatPrivileges(res)
	})
}

// --- helpers ---

func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}

func formatNode(n *domain.Node) string {
	var marks []string
	if n.HasChildren {
		marks = append(marks, "+")
	}
	if n.IsEncrypted() {
		marks = append(marks, "encrypted")
	}
	if n.Public {
		marks = append(marks, "public")
	}
	if n.Deleted {
		marks = append(marks, "deleted")
	}
	line := fmt.Sprintf("%s  [%s]  %s", n.ID, n.Type, summary(n))
	if len(marks) > 0 {
		line += "  (" + strings.Join(marks, ", ") + ")"
	}
	return line
}

// summary is the name of a node, or the first line of its content.
func summary(n *domain.Node) string {
	if n.Name != "" {
		return n.Name
	}
	if n.IsEncrypted() {
		return "[encrypted]"
	}
	first, _, _ := strings.Cut(strings.TrimSpace(n.Content), "\n")
	if len(first) > 60 {
		first = first[:60] + "..."
	}
	return first
}

func formatPrivileges(res *commands.PrivilegesResult) (*mcp.CallToolResult, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "owners: %s\n", strings.Join(res.Owners, ", "))
	if len(res.Entries) == 0 {
		sb.WriteString("not shared\n")
	}
	for _, e := range res.Entries {
		privs := make([]string, len(e.Privileges))
		for i, p := range e.Privileges {
			privs[i] = string(p)
		}
		fmt.Fprintf(&sb, "%s  %s  %s\n", e.PrincipalNodeID, e.PrincipalName, strings.Join(privs, ","))
	}
	return mcp.NewToolResultText(sb.String()), nil
}
