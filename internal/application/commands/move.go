package commands

import (
	"context"
	"fmt"
	"slices"

	"arbor/internal/application"
	"arbor/internal/ports"
)

// CutPlan is a pending cut awaiting confirmation
type CutPlan struct {
	NodeIDs []string
	Prompt  string
}

// CutResult contains the result of a cut
type CutResult struct {
	NodeIDs []string
	Message string
}

// CutCommand stages the selected nodes for a move
type CutCommand struct {
	ws     *application.Workspace
	NodeID string
}

// NewCutCommand creates a new CutCommand. A non-empty nodeID is added to
// the selection first.
func NewCutCommand(ws *application.Workspace, nodeID string) *CutCommand {
	return &CutCommand{ws: ws, NodeID: nodeID}
}

// Prepare resolves the operands and builds the confirmation.
func (c *CutCommand) Prepare() (*CutPlan, error) {
	if c.NodeID != "" && !c.ws.Selection.Toggle(c.NodeID, true) {
		return nil, &application.UnresolvableReferenceError{NodeID: c.NodeID, Op: "cut"}
	}
	ids := c.ws.Selection.IDs()
	if len(ids) == 0 {
		return nil, &application.UserInputError{
			Reason:  application.ErrNoSelection,
			Message: "You have not selected any nodes to cut.",
		}
	}
	return &CutPlan{
		NodeIDs: ids,
		Prompt:  fmt.Sprintf("Cut %d node(s), to paste/move to new location ?", len(ids)),
	}, nil
}

// Execute stages the confirmed cut, replacing any earlier one, and clears
// the selection. No request is sent until paste.
func (c *CutCommand) Execute(plan *CutPlan) *CutResult {
	c.ws.Clipboard.Stage(plan.NodeIDs)
	c.ws.Selection.Clear()
	return &CutResult{
		NodeIDs: plan.NodeIDs,
		Message: fmt.Sprintf("Cut %d node(s). Choose where to paste them.", len(plan.NodeIDs)),
	}
}

// PasteResult contains the result of a paste
type PasteResult struct {
	Moved    int
	TargetID string
	Message  string
}

// PasteCommand moves the cut nodes relative to a target node
type PasteCommand struct {
	ws       *application.Workspace
	TargetID string
	Location string
	NodeIDs  []string
}

// NewPasteCommand creates a new PasteCommand. An empty targetID means the
// highlighted node; nil nodeIDs means the clipboard contents.
func NewPasteCommand(ws *application.Workspace, targetID, location string, nodeIDs []string) *PasteCommand {
	return &PasteCommand{
		ws:       ws,
		TargetID: targetID,
		Location: location,
		NodeIDs:  nodeIDs,
	}
}

// Validate checks if the paste operation is valid
func (c *PasteCommand) Validate() error {
	return application.ValidateLocation(c.Location)
}

// Execute runs the paste command
func (c *PasteCommand) Execute(ctx context.Context) (*PasteResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	ids := c.NodeIDs
	if ids == nil {
		ids = c.ws.Clipboard.IDs()
	}
	if len(ids) == 0 {
		return nil, &application.UserInputError{Reason: application.ErrNoSelection, Message: "There are no cut nodes to paste."}
	}

	target, ok := c.ws.Resolve(c.TargetID)
	if !ok {
		if c.TargetID != "" {
			return nil, &application.UnresolvableReferenceError{NodeID: c.TargetID, Op: "paste"}
		}
		return nil, &application.UserInputError{Reason: application.ErrNoHighlight, Message: "You must first click on a node to paste to."}
	}
	if slices.Contains(ids, target.ID) {
		return nil, &application.UserInputError{Reason: application.ErrInvalidOperation, Message: "Cannot paste a node relative to itself."}
	}

	res, err := c.ws.Authority.MoveNodes(ctx, ports.MoveNodesRequest{
		TargetNodeID: target.ID,
		NodeIDs:      ids,
		Location:     c.Location,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to move nodes: %w", err)
	}
	if err := application.CheckSuccess("moveNodes", res.ResponseBase); err != nil {
		return nil, err
	}

	c.ws.Clipboard.Clear()
	result := &PasteResult{
		Moved:    len(ids),
		TargetID: target.ID,
		Message:  fmt.Sprintf("Moved %d node(s)", len(ids)),
	}

	focus := target.ID
	if c.Location != ports.LocationInside {
		focus = ids[0]
	}
	if err := c.ws.Refresh(ctx, focus); err != nil {
		return result, fmt.Errorf("nodes moved but the view could not be refreshed: %w", err)
	}
	return result, nil
}

// UndoCutCommand discards a pending cut
type UndoCutCommand struct {
	ws *application.Workspace
}

// NewUndoCutCommand creates a new UndoCutCommand
func NewUndoCutCommand(ws *application.Workspace) *UndoCutCommand {
	return &UndoCutCommand{ws: ws}
}

// Execute clears the clipboard. It never contacts the authority.
func (c *UndoCutCommand) Execute() *CutResult {
	ids := c.ws.Clipboard.IDs()
	c.ws.Clipboard.Clear()
	if len(ids) == 0 {
		return &CutResult{Message: "Nothing was cut."}
	}
	return &CutResult{NodeIDs: ids, Message: fmt.Sprintf("Cut of %d node(s) undone", len(ids))}
}
