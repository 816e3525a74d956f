package commands

import (
	"context"
	"fmt"
	"strings"

	"arbor/internal/application"
	"arbor/internal/domain"
	"arbor/internal/ports"
)

// SaveClipboardResult contains the result of saving the clipboard
type SaveClipboardResult struct {
	Node    *domain.Node
	Content string
	Message string
}

// SaveClipboardCommand saves the system clipboard text as a new node at
// the top of the user's notes
type SaveClipboardCommand struct {
	ws        *application.Workspace
	clipboard ports.ClipboardReader
}

// NewSaveClipboardCommand creates a new SaveClipboardCommand
func NewSaveClipboardCommand(ws *application.Workspace, clipboard ports.ClipboardReader) *SaveClipboardCommand {
	return &SaveClipboardCommand{ws: ws, clipboard: clipboard}
}

// Execute runs the save clipboard command
func (c *SaveClipboardCommand) Execute(ctx context.Context) (*SaveClipboardResult, error) {
	text, err := c.clipboard.ReadText()
	if err != nil {
		return nil, fmt.Errorf("failed to read clipboard: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &application.UserInputError{
			Reason:  application.ErrInvalidOperation,
			Message: "Nothing saved, clipboard is empty!",
		}
	}

	res, err := c.ws.Authority.CreateSubNode(ctx, ports.CreateSubNodeRequest{
		NodeID:      ports.NotesNodeID,
		TypeName:    domain.DefaultNodeType,
		CreateAtTop: true,
		Content:     text,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save clipboard: %w", err)
	}
	if err := application.CheckSuccess("createSubNode", res.ResponseBase); err != nil {
		return nil, err
	}

	return &SaveClipboardResult{
		Node:    res.NewNode,
		Content: text,
		Message: "Clipboard content saved under your Notes node...\n\n" + text,
	}, nil
}
