package commands

import (
	"context"
	"fmt"

	"arbor/internal/application"
	"arbor/internal/ports"
)

// EmptyTrashPrompt is the confirmation shown before emptying the trash.
const EmptyTrashPrompt = "Permanently delete your entire Trash Bin"

// EmptyTrashResult contains the result of emptying the trash
type EmptyTrashResult struct {
	Message string
}

// EmptyTrashCommand permanently deletes every soft-deleted node of the user
type EmptyTrashCommand struct {
	ws *application.Workspace
}

// NewEmptyTrashCommand creates a new EmptyTrashCommand
func NewEmptyTrashCommand(ws *application.Workspace) *EmptyTrashCommand {
	return &EmptyTrashCommand{ws: ws}
}

// Execute runs the confirmed empty trash command and returns the view to
// the home node, since the current one may have been in the trash.
func (c *EmptyTrashCommand) Execute(ctx context.Context) (*EmptyTrashResult, error) {
	c.ws.Selection.Clear()

	res, err := c.ws.Authority.DeleteNodes(ctx, ports.DeleteNodesRequest{
		NodeIDs:    []string{ports.TrashNodeID},
		HardDelete: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to empty trash: %w", err)
	}
	if err := application.CheckSuccess("deleteNodes", res.ResponseBase); err != nil {
		return nil, err
	}

	c.ws.Clipboard.Clear()
	result := &EmptyTrashResult{Message: "Trash emptied"}
	if err := c.ws.View.Navigate(ctx, c.ws.HomeNodeID); err != nil {
		return result, fmt.Errorf("trash emptied but the home node could not be opened: %w", err)
	}
	return result, nil
}
