package ports

import "os/exec"

// EditorOpener opens content buffers in the user's external editor
type EditorOpener interface {
	// OpenFile blocks until the editor exits. It uses $EDITOR, then
	// $VISUAL, falling back to common editors
	OpenFile(path string) error

	// Command returns an exec.Cmd for editing path, for use with
	// bubbletea's ExecProcess
	Command(path string) (*exec.Cmd, error)
}
