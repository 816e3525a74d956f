package commands

import (
	"context"
	"fmt"

	"arbor/internal/application"
	"arbor/internal/domain"
	"arbor/internal/ports"
)

// InsertBookResult contains the result of a book insert
type InsertBookResult struct {
	Node    *domain.Node
	Message string
}

// InsertBookCommand inserts a sample book under the highlighted node
type InsertBookCommand struct {
	ws       *application.Workspace
	BookName string
}

// NewInsertBookCommand creates a new InsertBookCommand
func NewInsertBookCommand(ws *application.Workspace, bookName string) *InsertBookCommand {
	return &InsertBookCommand{ws: ws, BookName: bookName}
}

// Prompt returns the confirmation shown before inserting.
func (c *InsertBookCommand) Prompt() string {
	return fmt.Sprintf("Insert book %s? You should have an empty node selected to serve as the root node of the book.", c.BookName)
}

// Validate checks if the insert book operation is valid
func (c *InsertBookCommand) Validate() error {
	return application.ValidateRequired("bookName", c.BookName)
}

// Execute runs the confirmed insert. Test accounts get a truncated book.
func (c *InsertBookCommand) Execute(ctx context.Context) (*InsertBookResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	node := c.ws.View.Highlighted()
	if node == nil {
		return nil, &application.UserInputError{Reason: application.ErrNoHighlight, Message: "No node is selected."}
	}

	res, err := c.ws.Authority.InsertBook(ctx, ports.InsertBookRequest{
		NodeID:    node.ID,
		BookName:  c.BookName,
		Truncated: c.ws.Identity.IsTestAccount,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert book: %w", err)
	}
	if err := application.CheckSuccess("insertBook", res.ResponseBase); err != nil {
		return nil, err
	}

	result := &InsertBookResult{Node: res.NewNode, Message: fmt.Sprintf("Inserted %s", c.BookName)}
	if err := c.ws.Refresh(ctx, node.ID); err != nil {
		return result, fmt.Errorf("book inserted but the view could not be refreshed: %w", err)
	}
	return result, nil
}
