package commands

import (
	"context"
	"fmt"

	"arbor/internal/application"
	"arbor/internal/ports"
)

// SelectAllResult contains the result of a select all
type SelectAllResult struct {
	Selected int
	Skipped  int
	Message  string
}

// SelectAllCommand selects every node the authority lists under the view
// root
type SelectAllCommand struct {
	ws *application.Workspace
}

// NewSelectAllCommand creates a new SelectAllCommand
func NewSelectAllCommand(ws *application.Workspace) *SelectAllCommand {
	return &SelectAllCommand{ws: ws}
}

// Execute runs the select all command. Returned ids that are not loaded
// cannot be selected and are counted as skipped.
func (c *SelectAllCommand) Execute(ctx context.Context) (*SelectAllResult, error) {
	node := c.ws.View.Root()
	if node == nil {
		return nil, &application.UserInputError{Reason: application.ErrNoHighlight, Message: "There is no node being viewed."}
	}

	res, err := c.ws.Authority.SelectAllNodes(ctx, ports.SelectAllNodesRequest{ParentNodeID: node.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to select nodes under %s: %w", node.ID, err)
	}
	if err := application.CheckSuccess("selectAllNodes", res.ResponseBase); err != nil {
		return nil, err
	}

	result := &SelectAllResult{}
	for _, id := range res.NodeIDs {
		if c.ws.Selection.Toggle(id, true) {
			result.Selected++
		} else {
			result.Skipped++
		}
	}
	c.ws.Logger.Debug("select all", "parent", node.ID, "selected", result.Selected, "skipped", result.Skipped)
	result.Message = fmt.Sprintf("Selected %d node(s)", result.Selected)
	return result, nil
}
