package clipboard

import (
	"fmt"

	"github.com/atotto/clipboard"

	"arbor/internal/ports"
)

// System implements ports.ClipboardReader on the system clipboard
type System struct{}

// Ensure System implements ClipboardReader
var _ ports.ClipboardReader = (*System)(nil)

// NewSystem creates a system clipboard reader
func NewSystem() *System {
	return &System{}
}

// ReadText returns the clipboard text
func (s *System) ReadText() (string, error) {
	if clipboard.Unsupported {
		return "", fmt.Errorf("no clipboard utility available on this system")
	}
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to read clipboard: %w", err)
	}
	return text, nil
}

// WriteText replaces the clipboard text
func (s *System) WriteText(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	return nil
}
