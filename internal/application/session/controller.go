package session

import (
	"context"

	"arbor/internal/application"
	"arbor/internal/domain"
)

// Controller owns the single active edit session of a workspace.
type Controller struct {
	ws     *application.Workspace
	keys   KeyDistributor
	active *Session
}

// NewController creates a controller; keys may be nil when encrypted
// nodes are never shared.
func NewController(ws *application.Workspace, keys KeyDistributor) *Controller {
	return &Controller{ws: ws, keys: keys}
}

// Active returns the open session, or nil.
func (c *Controller) Active() *Session {
	if c.active == nil || c.active.State() == Closed {
		return nil
	}
	return c.active
}

// OpenForEdit opens a session on an existing node.
func (c *Controller) OpenForEdit(ctx context.Context, nodeID string) (*Session, error) {
	return c.open(ctx, nodeID, nil)
}

// OpenForCreate opens a session on a node that was just created.
func (c *Controller) OpenForCreate(ctx context.Context, node *domain.Node, insert InsertContext) (*Session, error) {
	return c.open(ctx, node.ID, &insert)
}

func (c *Controller) open(ctx context.Context, nodeID string, insert *InsertContext) (*Session, error) {
	if c.Active() != nil {
		return nil, &application.UserInputError{
			Reason:  application.ErrSessionActive,
			Message: "Another node is already being edited.",
		}
	}
	s := newSession(c.ws, c.keys)
	if err := s.open(ctx, nodeID, insert); err != nil {
		return nil, err
	}
	c.active = s
	return s, nil
}
