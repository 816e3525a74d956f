package commands

import (
	"context"

	"arbor/internal/application"
	"arbor/internal/application/session"
)

// InsertNodeCommand inserts a new sibling of a node of the view, at the
// target's ordinal plus OrdinalOffset (0 above, 1 below).
type InsertNodeCommand struct {
	ws            *application.Workspace
	sessions      *session.Controller
	TargetID      string
	TypeName      string
	OrdinalOffset int
}

// NewInsertNodeCommand creates a new InsertNodeCommand. An empty targetID
// means the highlighted node.
func NewInsertNodeCommand(ws *application.Workspace, sessions *session.Controller, targetID, typeName string, ordinalOffset int) *InsertNodeCommand {
	return &InsertNodeCommand{
		ws:            ws,
		sessions:      sessions,
		TargetID:      targetID,
		TypeName:      typeName,
		OrdinalOffset: ordinalOffset,
	}
}

// Validate checks if the insert operation is valid
func (c *InsertNodeCommand) Validate() error {
	if c.OrdinalOffset < 0 {
		return &application.ValidationError{Field: "ordinalOffset", Message: "ordinal offset cannot be negative"}
	}
	return nil
}

// Execute runs the insert node command
func (c *InsertNodeCommand) Execute(ctx context.Context) (*NewNodeResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	parent := c.ws.View.Root()
	if parent == nil {
		return nil, &application.UserInputError{Reason: application.ErrNoHighlight, Message: "There is no node being viewed."}
	}
	target, ok := c.ws.Resolve(c.TargetID)
	if !ok {
		return nil, &application.UserInputError{Reason: application.ErrNoHighlight, Message: "You must first click on a node."}
	}
	if target.ID == parent.ID {
		return nil, &application.UserInputError{Reason: application.ErrInvalidOperation, Message: "Cannot insert next to the node being viewed."}
	}

	req := &newNodeRequest{
		ws:       c.ws,
		sessions: c.sessions,
		parent:   parent,
		target:   target,
		offset:   c.OrdinalOffset,
		typeName: c.TypeName,
	}
	return req.run(ctx)
}
