package commands

import (
	"context"

	"arbor/internal/application"
	"arbor/internal/application/session"
	"arbor/internal/domain"
)

// CreateSubNodeCommand creates a new child node and opens it for edit
type CreateSubNodeCommand struct {
	ws          *application.Workspace
	sessions    *session.Controller
	ParentID    string
	TypeName    string
	CreateAtTop bool
}

// NewCreateSubNodeCommand creates a new CreateSubNodeCommand. An empty
// parentID means the highlighted node, or the view root when nothing is
// highlighted.
func NewCreateSubNodeCommand(ws *application.Workspace, sessions *session.Controller, parentID, typeName string, createAtTop bool) *CreateSubNodeCommand {
	return &CreateSubNodeCommand{
		ws:          ws,
		sessions:    sessions,
		ParentID:    parentID,
		TypeName:    typeName,
		CreateAtTop: createAtTop,
	}
}

func (c *CreateSubNodeCommand) parent() (*domain.Node, error) {
	if c.ParentID != "" {
		n, ok := c.ws.Cache.Get(c.ParentID)
		if !ok {
			return nil, &application.UnresolvableReferenceError{NodeID: c.ParentID, Op: "create node under"}
		}
		return n, nil
	}
	if n := c.ws.View.Highlighted(); n != nil {
		return n, nil
	}
	if n := c.ws.View.Root(); n != nil {
		return n, nil
	}
	return nil, &application.UserInputError{Reason: application.ErrNoHighlight, Message: "There is no node to create under."}
}

// Execute runs the create sub node command
func (c *CreateSubNodeCommand) Execute(ctx context.Context) (*NewNodeResult, error) {
	parent, err := c.parent()
	if err != nil {
		return nil, err
	}
	if !c.ws.Identity.CanInsert(parent) {
		return nil, &application.AuthorizationError{Op: "createSubNode", Message: "You cannot create nodes here."}
	}

	req := &newNodeRequest{
		ws:          c.ws,
		sessions:    c.sessions,
		parent:      parent,
		typeName:    c.TypeName,
		createAtTop: c.CreateAtTop,
	}
	return req.run(ctx)
}
