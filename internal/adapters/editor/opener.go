package editor

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"arbor/internal/ports"
)

// Opener implements ports.EditorOpener
type Opener struct {
	// Getenv and LookPath are replaced in tests.
	Getenv   func(string) string
	LookPath func(string) (string, error)
}

var _ ports.EditorOpener = (*Opener)(nil)

// fallbacks are tried in order when no editor variable is set.
var fallbacks = []string{"nvim", "vim", "vi", "nano"}

// NewOpener creates a new editor opener
func NewOpener() *Opener {
	return &Opener{Getenv: os.Getenv, LookPath: exec.LookPath}
}

// OpenFile opens path in the editor and waits for it to exit
func (o *Opener) OpenFile(path string) error {
	cmd, err := o.Command(path)
	if err != nil {
		return err
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("editor exited with error: %w", err)
	}
	return nil
}

// Command returns an exec.Cmd for editing path. Editor variables may carry
// arguments, as in EDITOR="code --wait".
func (o *Opener) Command(path string) (*exec.Cmd, error) {
	argv := o.editorArgs()
	if len(argv) == 0 {
		return nil, fmt.Errorf("no editor found: set $ARBOR_EDITOR or $EDITOR")
	}

	cmd := exec.Command(argv[0], append(argv[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd, nil
}

// editorArgs resolves $ARBOR_EDITOR, $EDITOR then $VISUAL, falling back
// to the first editor found on PATH.
func (o *Opener) editorArgs() []string {
	for _, name := range []string{"ARBOR_EDITOR", "EDITOR", "VISUAL"} {
		if fields := strings.Fields(o.Getenv(name)); len(fields) > 0 {
			return fields
		}
	}
	for _, editor := range fallbacks {
		if path, err := o.LookPath(editor); err == nil {
			return []string{path}
		}
	}
	return nil
}
