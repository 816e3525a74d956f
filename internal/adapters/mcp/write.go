package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"arbor/internal/application"
	"arbor/internal/application/commands"
	"arbor/internal/application/session"
	"arbor/internal/ports"
)

// RegisterWriteTools adds the tree editing tools to the MCP server.
func RegisterWriteTools(s *server.MCPServer, h *handlers) {
	s.AddTool(insertTool(), h.insert)
	s.AddTool(createTool(), h.create)
	s.AddTool(editTool(), h.edit)
	s.AddTool(setTypeTool(), h.setType)
	s.AddTool(deleteTool(), h.delete)
	s.AddTool(moveTool(), h.move)
	s.AddTool(reorderTool(), h.reorder)
	s.AddTool(splitTool(), h.split)
	s.AddTool(shareTool(), h.share)
}

func withNodeFields() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("name", mcp.Description("Node name")),
		mcp.WithString("content", mcp.Description("Node content")),
		mcp.WithString("type", mcp.Description("Node type (default u)")),
	}
}

// --- insert ---

func insertTool() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Insert a new node next to an existing one, among its siblings."),
		mcp.WithString("target_id",
			mcp.Description("Sibling to insert next to"),
			mcp.Required(),
		),
		mcp.WithBoolean("below",
			mcp.Description("Insert below the target instead of above"),
		),
	}
	return mcp.NewTool(ToolInsert, append(opts, withNodeFields()...)...)
}

func (h *handlers) insert(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	targetID := req.GetString("target_id", "")
	if targetID == "" {
		return toolError(fmt.Errorf("target_id is required"))
	}
	offset := 0
	if boolArg(req.GetArguments(), "below") {
		offset = 1
	}
	return h.locked(func() (*mcp.CallToolResult, error) {
		if err := h.app.Focus(ctx, targetID); err != nil {
			return toolError(err)
		}
		cmd := commands.NewInsertNodeCommand(h.app.Workspace, h.app.Sessions, targetID, req.GetString("type", ""), offset)
		res, err := cmd.Execute(ctx)
		return h.fillNew(ctx, req, res, err)
	})
}

// --- create ---

func createTool() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Create a new child node under a parent."),
		mcp.WithString("parent_id",
			mcp.Description("Parent node ID (use ~home for your home node)"),
			mcp.Required(),
		),
		mcp.WithBoolean("top",
			mcp.Description("Create as the first child instead of the last"),
		),
	}
	return mcp.NewTool(ToolCreate, append(opts, withNodeFields()...)...)
}

func (h *handlers) create(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	parentID := req.GetString("parent_id", "")
	if parentID == "" {
		return toolError(fmt.Errorf("parent_id is required"))
	}
	return h.locked(func() (*mcp.CallToolResult, error) {
		if err := h.app.Enter(ctx, parentID); err != nil {
			return toolError(err)
		}
		cmd := commands.NewCreateSubNodeCommand(h.app.Workspace, h.app.Sessions, h.app.Workspace.View.RootID(),
			req.GetString("type", ""), boolArg(req.GetArguments(), "top"))
		res, err := cmd.Execute(ctx)
		return h.fillNew(ctx, req, res, err)
	})
}

// fillNew writes the requested name and content into the session opened
// on a new node and saves it.
func (h *handlers) fillNew(ctx context.Context, req mcp.CallToolRequest, res *commands.NewNodeResult, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		if res != nil && res.Session != nil {
			_ = res.Session.Cancel()
		}
		return toolError(err)
	}
	if res.Session == nil {
		return mcp.NewToolResultText(res.Message), nil
	}
	args := req.GetArguments()
	saved, err := fillAndSave(ctx, res.Session, stringArg(args, "name"), stringArg(args, "content"), nil)
	if err != nil {
		return toolError(fmt.Errorf("node %s created but not saved: %w", res.Node.ID, err))
	}
	return mcp.NewToolResultText(fmt.Sprintf("Created %s (%s)", saved.Node.ID, saved.Node.DisplayName())), nil
}

// --- edit ---

func editTool() mcp.Tool {
	return mcp.NewTool(ToolEdit,
		mcp.WithDescription("Edit a node you own. Omitted fields are left unchanged."),
		mcp.WithString("id",
			mcp.Description("Node ID"),
			mcp.Required(),
		),
		mcp.WithString("name", mcp.Description("New name")),
		mcp.WithString("content", mcp.Description("New content")),
		mcp.WithBoolean("encrypt",
			mcp.Description("Encrypt (true) or decrypt (false) the content on save"),
		),
	)
}

func (h *handlers) edit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return toolError(fmt.Errorf("id is required"))
	}
	args := req.GetArguments()
	var encrypt *bool
	if v, ok := args["encrypt"].(bool); ok {
		encrypt = &v
	}
	return h.locked(func() (*mcp.CallToolResult, error) {
		if err := h.app.Focus(ctx, id); err != nil {
			return toolError(err)
		}
		sess, err := commands.NewOpenEditCommand(h.app.Workspace, h.app.Sessions, id).Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		saved, err := fillAndSave(ctx, sess, stringArg(args, "name"), stringArg(args, "content"), encrypt)
		if err != nil {
			return saveError(saved, err)
		}
		return mcp.NewToolResultText(saved.Message), nil
	})
}

// fillAndSave applies the optional fields to an open session and saves
// it. The session is cancelled when a field is refused.
func fillAndSave(ctx context.Context, sess *session.Session, name, content *string, encrypt *bool) (*session.SaveResult, error) {
	apply := func() error {
		if name != nil {
			if err := sess.SetName(*name); err != nil {
				return err
			}
		}
		if content != nil {
			if err := sess.SetContent(*content); err != nil {
				return err
			}
		}
		if encrypt != nil {
			if err := sess.SetEncryption(*encrypt); err != nil {
				return err
			}
		}
		return nil
	}
	if err := apply(); err != nil {
		_ = sess.Cancel()
		return nil, err
	}
	res, err := sess.Save(ctx)
	if err != nil && sess.State() == session.Editing {
		_ = sess.Cancel()
	}
	return res, err
}

// saveError reports a failed save. A save whose key delivery was only
// partial still went through.
func saveError(saved *session.SaveResult, err error) (*mcp.CallToolResult, error) {
	var partial *application.PartialDistributionError
	if saved != nil && errors.As(err, &partial) {
		return mcp.NewToolResultText(fmt.Sprintf("%s, but %d key(s) are queued for retry: %v", saved.Message, len(partial.Pending), err)), nil
	}
	return toolError(err)
}

// --- set_type ---

func setTypeTool() mcp.Tool {
	return mcp.NewTool(ToolSetType,
		mcp.WithDescription("Change the type of a node you own."),
		mcp.WithString("id",
			mcp.Description("Node ID"),
			mcp.Required(),
		),
		mcp.WithString("type",
			mcp.Description("New node type"),
			mcp.Required(),
		),
	)
}

func (h *handlers) setType(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	typeName := req.GetString("type", "")
	if id == "" || typeName == "" {
		return toolError(fmt.Errorf("id and type are required"))
	}
	return h.locked(func() (*mcp.CallToolResult, error) {
		if err := h.app.Focus(ctx, id); err != nil {
			return toolError(err)
		}
		sess, err := commands.NewOpenEditCommand(h.app.Workspace, h.app.Sessions, id).Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		defer sess.Cancel()
		if err := sess.ChangeType(ctx, typeName); err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(fmt.Sprintf("Type of %s set to %s", id, typeName)), nil
	})
}

// --- delete ---

func deleteTool() mcp.Tool {
	return mcp.NewTool(ToolDelete,
		mcp.WithDescription("Delete nodes. Nodes go to the trash unless hard is set or they are already in the trash. All IDs must be siblings."),
		mcp.WithArray("ids",
			mcp.Description("IDs of the nodes to delete"),
			mcp.Required(),
			mcp.WithStringItems(),
		),
		mcp.WithBoolean("hard",
			mcp.Description("Delete permanently"),
		),
		mcp.WithDestructiveHintAnnotation(true),
	)
}

func (h *handlers) delete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	ids := stringsArg(args, "ids")
	if len(ids) == 0 {
		return toolError(fmt.Errorf("ids is required"))
	}
	return h.locked(func() (*mcp.CallToolResult, error) {
		if err := h.selectSiblings(ctx, ids); err != nil {
			return toolError(err)
		}
		cmd := commands.NewDeleteCommand(h.app.Workspace, "", boolArg(args, "hard"))
		plan, err := cmd.Prepare()
		if err != nil {
			h.app.Workspace.Selection.Clear()
			return toolError(err)
		}
		res, err := cmd.Execute(ctx, plan)
		if err != nil {
			h.app.Workspace.Selection.Clear()
			return toolError(err)
		}
		return mcp.NewToolResultText(res.Message), nil
	})
}

// selectSiblings loads the parent of ids[0] and selects every id.
func (h *handlers) selectSiblings(ctx context.Context, ids []string) error {
	if err := h.app.Focus(ctx, ids[0]); err != nil {
		return err
	}
	sel := h.app.Workspace.Selection
	sel.Clear()
	for _, id := range ids {
		if !sel.Toggle(id, true) {
			sel.Clear()
			return &application.UnresolvableReferenceError{NodeID: id, Op: "select"}
		}
	}
	return nil
}

// --- move ---

func moveTool() mcp.Tool {
	return mcp.NewTool(ToolMove,
		mcp.WithDescription("Move nodes relative to a target node."),
		mcp.WithArray("ids",
			mcp.Description("IDs of the nodes to move"),
			mcp.Required(),
			mcp.WithStringItems(),
		),
		mcp.WithString("target_id",
			mcp.Description("Target node ID"),
			mcp.Required(),
		),
		mcp.WithString("location",
			mcp.Description("inside (as first children), inline (below the target) or inline-above"),
			mcp.Enum(ports.LocationInside, ports.LocationInline, ports.LocationInlineAbove),
		),
	)
}

func (h *handlers) move(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids := stringsArg(req.GetArguments(), "ids")
	targetID := req.GetString("target_id", "")
	if len(ids) == 0 || targetID == "" {
		return toolError(fmt.Errorf("ids and target_id are required"))
	}
	location := req.GetString("location", ports.LocationInside)
	return h.locked(func() (*mcp.CallToolResult, error) {
		if err := h.app.Focus(ctx, targetID); err != nil {
			return toolError(err)
		}
		res, err := commands.NewPasteCommand(h.app.Workspace, targetID, location, ids).Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(res.Message), nil
	})
}

// --- reorder ---

func reorderTool() mcp.Tool {
	return mcp.NewTool(ToolReorder,
		mcp.WithDescription("Move a node among its siblings."),
		mcp.WithString("id",
			mcp.Description("Node ID"),
			mcp.Required(),
		),
		mcp.WithString("direction",
			mcp.Description("up, down, top or bottom"),
			mcp.Required(),
			mcp.Enum(ports.PositionUp, ports.PositionDown, ports.PositionTop, ports.PositionBottom),
		),
	)
}

func (h *handlers) reorder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return toolError(fmt.Errorf("id is required"))
	}
	direction := req.GetString("direction", "")
	return h.locked(func() (*mcp.CallToolResult, error) {
		if err := h.app.Focus(ctx, id); err != nil {
			return toolError(err)
		}
		res, err := commands.NewReorderCommand(h.app.Workspace, id, direction).Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(res.Message), nil
	})
}

// --- split ---

func splitTool() mcp.Tool {
	return mcp.NewTool(ToolSplit,
		mcp.WithDescription("Split a node's content at a delimiter into several nodes."),
		mcp.WithString("id",
			mcp.Description("Node ID"),
			mcp.Required(),
		),
		mcp.WithString("split_type",
			mcp.Description("inline (new siblings) or children (new children)"),
			mcp.Enum(ports.SplitInline, ports.SplitChildren),
		),
		mcp.WithString("delimiter",
			mcp.Description("Delimiter (default: two blank lines)"),
		),
	)
}

func (h *handlers) split(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return toolError(fmt.Errorf("id is required"))
	}
	splitType := req.GetString("split_type", ports.SplitInline)
	delimiter := req.GetString("delimiter", "")
	return h.locked(func() (*mcp.CallToolResult, error) {
		if err := h.app.Focus(ctx, id); err != nil {
			return toolError(err)
		}
		res, err := commands.NewSplitCommand(h.app.Workspace, splitType, delimiter).Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(res.Message), nil
	})
}

// --- share ---

func shareTool() mcp.Tool {
	return mcp.NewTool(ToolShare,
		mcp.WithDescription("Share a node read-only with a user, or with everyone by passing public."),
		mcp.WithString("id",
			mcp.Description("Node ID"),
			mcp.Required(),
		),
		mcp.WithString("with",
			mcp.Description("User name, or public"),
			mcp.Required(),
		),
	)
}

func (h *handlers) share(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	with := strings.TrimSpace(req.GetString("with", ""))
	if id == "" || with == "" {
		return toolError(fmt.Errorf("id and with are required"))
	}
	return h.locked(func() (*mcp.CallToolResult, error) {
		if err := h.app.Focus(ctx, id); err != nil {
			return toolError(err)
		}
		cmd := commands.NewShareCommand(h.app.Workspace, id)
		var (
			res *commands.PrivilegesResult
			err error
		)
		if with == "public" {
			res, err = cmd.ShareToPublic(ctx)
		} else {
			res, err = cmd.ShareWithUser(ctx, with)
		}
		if err != nil {
			return toolError(err)
		}
		return formatPrivileges(res)
	})
}

// --- argument helpers ---

func boolArg(args map[string]any, key string) bool {
	v, _ := args[key].(bool)
	return v
}

// stringArg returns nil when key is absent, so that an empty string can
// still clear a field.
func stringArg(args map[string]any, key string) *string {
	v, ok := args[key].(string)
	if !ok {
		return nil
	}
	return &v
}

// stringsArg reads a JSON array of strings.
func stringsArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
