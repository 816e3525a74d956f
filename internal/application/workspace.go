package application

import (
	"context"
	"errors"
	"log/slog"

	"arbor/internal/domain"
	"arbor/internal/ports"
)

// Config lists the collaborators a Workspace is built from.
type Config struct {
	Authority   ports.Authority
	Encryptor   ports.Encryptor
	Identity    Identity
	Preferences Preferences
	HomeNodeID  string
	// RootNodeID is the initial view root; defaults to HomeNodeID.
	RootNodeID string
	Logger     *slog.Logger
}

// Workspace is the per-user editing context shared by commands and edit
// sessions. All methods are called from a single goroutine.
type Workspace struct {
	Authority  ports.Authority
	Encryptor  ports.Encryptor
	Identity   Identity
	Prefs      Preferences
	HomeNodeID string

	Cache     *domain.NodeCache
	Selection *domain.Selection
	Clipboard *domain.MoveClipboard
	View      *TreeView

	// Refresher receives refresh notifications; View unless replaced.
	Refresher ports.ViewRefresher

	Logger *slog.Logger
}

// NewWorkspace wires the cache, selection, clipboard and tree view in that
// order. The returned workspace is ready to use; the tree view is empty
// until its first refresh.
func NewWorkspace(cfg Config) (*Workspace, error) {
	if cfg.Authority == nil {
		return nil, errors.New("workspace requires an authority")
	}
	if cfg.HomeNodeID == "" {
		return nil, &ValidationError{Field: "homeNodeID", Message: "home node ID is required"}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rootID := cfg.RootNodeID
	if rootID == "" {
		rootID = cfg.HomeNodeID
	}

	cache := domain.NewNodeCache()
	selection := domain.NewSelection(cache)
	clipboard := &domain.MoveClipboard{}
	view := NewTreeView(cfg.Authority, cache, selection, rootID).WithLogger(logger)

	return &Workspace{
		Authority:  cfg.Authority,
		Encryptor:  cfg.Encryptor,
		Identity:   cfg.Identity,
		Prefs:      cfg.Preferences,
		HomeNodeID: cfg.HomeNodeID,
		Cache:      cache,
		Selection:  selection,
		Clipboard:  clipboard,
		View:       view,
		Refresher:  view,
		Logger:     logger,
	}, nil
}

// Refresh sends the view-refresh-needed notification.
func (w *Workspace) Refresh(ctx context.Context, focusID string) error {
	return w.Refresher.RefreshNeeded(ctx, ports.RefreshRequest{FocusID: focusID})
}

// CanEdit runs the local edit pre-check for node.
func (w *Workspace) CanEdit(node *domain.Node) bool {
	return w.Identity.CanEdit(w.Prefs, node)
}

// ToggleEditMode flips the edit-mode preference and returns the new value.
func (w *Workspace) ToggleEditMode() bool {
	w.Prefs.EditMode = !w.Prefs.EditMode
	return w.Prefs.EditMode
}

// Resolve returns the cached node for id, or the highlighted node when id
// is empty.
func (w *Workspace) Resolve(id string) (*domain.Node, bool) {
	if id == "" {
		n := w.View.Highlighted()
		return n, n != nil
	}
	return w.Cache.Get(id)
}
