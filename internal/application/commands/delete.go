package commands

import (
	"context"
	"fmt"
	"slices"

	"arbor/internal/application"
	"arbor/internal/domain"
	"arbor/internal/ports"
)

// DeletePlan is a confirmed-pending delete: the operands, how to word the
// confirmation and where focus goes afterwards.
type DeletePlan struct {
	NodeIDs []string
	Hard    bool
	// Danger asks for the severe confirmation style.
	Danger  bool
	Title   string
	Prompt  string
	FocusID string
}

// DeleteResult contains the result of a delete operation
type DeleteResult struct {
	Deleted int
	FocusID string
	Message string
}

// DeleteCommand deletes the selected nodes
type DeleteCommand struct {
	ws         *application.Workspace
	TriggerID  string
	HardDelete bool
}

// NewDeleteCommand creates a new DeleteCommand. A non-empty triggerID is
// added to the selection first.
func NewDeleteCommand(ws *application.Workspace, triggerID string, hardDelete bool) *DeleteCommand {
	return &DeleteCommand{
		ws:         ws,
		TriggerID:  triggerID,
		HardDelete: hardDelete,
	}
}

// Prepare resolves the operands and builds the confirmation. Nothing is
// sent to the authority.
func (c *DeleteCommand) Prepare() (*DeletePlan, error) {
	if c.TriggerID != "" && !c.ws.Selection.Toggle(c.TriggerID, true) {
		return nil, &application.UnresolvableReferenceError{NodeID: c.TriggerID, Op: "delete"}
	}

	ids := c.ws.Selection.IDs()
	if len(ids) == 0 {
		return nil, &application.UserInputError{
			Reason:  application.ErrNoSelection,
			Message: "You have not selected any nodes to delete.",
		}
	}
	if slices.Contains(ids, c.ws.HomeNodeID) {
		return nil, &application.UserInputError{
			Reason:  application.ErrProtectedRoot,
			Message: "Oops. You don't delete your account root node!",
		}
	}

	first, ok := c.ws.Cache.Get(ids[0])
	if !ok {
		return nil, &application.UnresolvableReferenceError{NodeID: ids[0], Op: "delete"}
	}
	hard := c.HardDelete || first.Deleted

	plan := &DeletePlan{
		NodeIDs: ids,
		Hard:    hard,
		Danger:  hard,
		Title:   fmt.Sprintf("Confirm Delete %d", len(ids)),
	}
	if hard {
		plan.Prompt = fmt.Sprintf("Permanently Delete %d node(s) ?", len(ids))
	} else {
		plan.Prompt = fmt.Sprintf("Move %d node(s) to the trash bin ?", len(ids))
	}
	return plan, nil
}

// Execute sends the confirmed delete. The post-delete focus is taken from
// the view as it is now, before the nodes disappear.
func (c *DeleteCommand) Execute(ctx context.Context, plan *DeletePlan) (*DeleteResult, error) {
	if plan == nil || len(plan.NodeIDs) == 0 {
		return nil, &application.UserInputError{Reason: application.ErrNoSelection, Message: "You have not selected any nodes to delete."}
	}
	if slices.Contains(plan.NodeIDs, c.ws.HomeNodeID) {
		return nil, &application.UserInputError{Reason: application.ErrProtectedRoot, Message: "Oops. You don't delete your account root node!"}
	}

	doomed := make(map[string]struct{}, len(plan.NodeIDs))
	for _, id := range plan.NodeIDs {
		doomed[id] = struct{}{}
	}
	if focus := domain.BestPostDeleteFocus(c.ws.View.Children(), doomed); focus != nil {
		plan.FocusID = focus.ID
	}

	res, err := c.ws.Authority.DeleteNodes(ctx, ports.DeleteNodesRequest{
		NodeIDs:    plan.NodeIDs,
		HardDelete: c.HardDelete,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete nodes: %w", err)
	}
	if err := application.CheckSuccess("deleteNodes", res.ResponseBase); err != nil {
		return nil, err
	}

	c.ws.Selection.Clear()
	c.ws.Clipboard.Drop(plan.NodeIDs)

	result := &DeleteResult{
		Deleted: len(plan.NodeIDs),
		FocusID: plan.FocusID,
		Message: fmt.Sprintf("Deleted %d node(s)", len(plan.NodeIDs)),
	}
	if err := c.ws.Refresh(ctx, plan.FocusID); err != nil {
		return result, fmt.Errorf("nodes deleted but the view could not be refreshed: %w", err)
	}
	return result, nil
}
