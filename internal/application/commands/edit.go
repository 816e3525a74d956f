package commands

import (
	"context"

	"arbor/internal/application"
	"arbor/internal/application/session"
)

// OpenEditCommand opens an edit session on a loaded node
type OpenEditCommand struct {
	ws       *application.Workspace
	sessions *session.Controller
	NodeID   string
}

// NewOpenEditCommand creates a new OpenEditCommand. An empty nodeID means
// the highlighted node.
func NewOpenEditCommand(ws *application.Workspace, sessions *session.Controller, nodeID string) *OpenEditCommand {
	return &OpenEditCommand{ws: ws, sessions: sessions, NodeID: nodeID}
}

// Execute runs the open edit command
func (c *OpenEditCommand) Execute(ctx context.Context) (*session.Session, error) {
	node, ok := c.ws.Resolve(c.NodeID)
	if !ok {
		if c.NodeID == "" {
			return nil, &application.UserInputError{Reason: application.ErrNoHighlight, Message: "No node is selected."}
		}
		return nil, &application.UnresolvableReferenceError{NodeID: c.NodeID, Op: "edit"}
	}
	return c.sessions.OpenForEdit(ctx, node.ID)
}
