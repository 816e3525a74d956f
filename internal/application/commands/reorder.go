package commands

import (
	"context"
	"fmt"

	"arbor/internal/application"
	"arbor/internal/ports"
)

// ReorderResult contains the result of a reorder
type ReorderResult struct {
	NodeID  string
	Moved   bool
	Message string
}

// ReorderCommand moves a node among its siblings
type ReorderCommand struct {
	ws        *application.Workspace
	NodeID    string
	Direction string
}

// NewReorderCommand creates a new ReorderCommand. An empty nodeID means
// the highlighted node.
func NewReorderCommand(ws *application.Workspace, nodeID, direction string) *ReorderCommand {
	return &ReorderCommand{ws: ws, NodeID: nodeID, Direction: direction}
}

// Validate checks if the reorder operation is valid
func (c *ReorderCommand) Validate() error {
	return application.ValidateDirection(c.Direction)
}

// Execute runs the reorder command. An id that is not loaded is only
// logged; nothing happens.
func (c *ReorderCommand) Execute(ctx context.Context) (*ReorderResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	node, ok := c.ws.Resolve(c.NodeID)
	if !ok {
		c.ws.Logger.Info("reorder skipped, node not loaded", "node", c.NodeID, "direction", c.Direction)
		return &ReorderResult{NodeID: c.NodeID}, nil
	}

	res, err := c.ws.Authority.SetNodePosition(ctx, ports.SetNodePositionRequest{
		NodeID:     node.ID,
		TargetName: c.Direction,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to move node %s %s: %w", node.ID, c.Direction, err)
	}
	if err := application.CheckSuccess("setNodePosition", res.ResponseBase); err != nil {
		return nil, err
	}

	result := &ReorderResult{
		NodeID:  node.ID,
		Moved:   true,
		Message: fmt.Sprintf("Moved %s %s", node.DisplayName(), c.Direction),
	}
	if err := c.ws.Refresh(ctx, node.ID); err != nil {
		return result, fmt.Errorf("node moved but the view could not be refreshed: %w", err)
	}
	return result, nil
}
