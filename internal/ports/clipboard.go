package ports

// ClipboardReader reads the system clipboard.
type ClipboardReader interface {
	ReadText() (string, error)
}
