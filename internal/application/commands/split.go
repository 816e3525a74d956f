package commands

import (
	"context"
	"fmt"

	"arbor/internal/application"
	"arbor/internal/ports"
)

// SplitResult contains the result of a split
type SplitResult struct {
	NodeID  string
	Message string
}

// SplitCommand splits the highlighted node's content at a delimiter
type SplitCommand struct {
	ws        *application.Workspace
	SplitType string
	Delimiter string
}

// NewSplitCommand creates a new SplitCommand. An empty delimiter lets the
// authority use its default.
func NewSplitCommand(ws *application.Workspace, splitType, delimiter string) *SplitCommand {
	return &SplitCommand{ws: ws, SplitType: splitType, Delimiter: delimiter}
}

// Validate checks if the split operation is valid
func (c *SplitCommand) Validate() error {
	return application.ValidateOneOf("splitType", c.SplitType, ports.SplitInline, ports.SplitChildren)
}

// Execute runs the split command
func (c *SplitCommand) Execute(ctx context.Context) (*SplitResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	node := c.ws.View.Highlighted()
	if node == nil {
		return nil, &application.UserInputError{
			Reason:  application.ErrNoHighlight,
			Message: "You didn't select a node to split.",
		}
	}

	res, err := c.ws.Authority.SplitNode(ctx, ports.SplitNodeRequest{
		NodeID:    node.ID,
		SplitType: c.SplitType,
		Delimiter: c.Delimiter,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to split node %s: %w", node.ID, err)
	}
	if err := application.CheckSuccess("splitNode", res.ResponseBase); err != nil {
		return nil, err
	}

	result := &SplitResult{NodeID: node.ID, Message: fmt.Sprintf("Split %s", node.DisplayName())}
	if err := c.ws.Refresh(ctx, node.ID); err != nil {
		return result, fmt.Errorf("node split but the view could not be refreshed: %w", err)
	}
	return result, nil
}
