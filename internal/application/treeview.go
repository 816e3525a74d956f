package application

import (
	"context"
	"fmt"
	"log/slog"

	"arbor/internal/domain"
	"arbor/internal/ports"
)

// TreeView is the displayed tree fragment: a view root and its children.
// It owns the cache working set and clears the selection on every load.
type TreeView struct {
	authority ports.Authority
	cache     *domain.NodeCache
	selection *domain.Selection
	logger    *slog.Logger

	rootID      string
	highlightID string
}

var _ ports.ViewRefresher = (*TreeView)(nil)

// NewTreeView creates a view rooted at rootID
func NewTreeView(authority ports.Authority, cache *domain.NodeCache, selection *domain.Selection, rootID string) *TreeView {
	return &TreeView{
		authority: authority,
		cache:     cache,
		selection: selection,
		logger:    slog.Default(),
		rootID:    rootID,
	}
}

// WithLogger sets the logger
func (v *TreeView) WithLogger(logger *slog.Logger) *TreeView {
	v.logger = logger
	return v
}

// RefreshNeeded re-renders the view root and focuses req.FocusID when it
// is part of the new fragment.
func (v *TreeView) RefreshNeeded(ctx context.Context, req ports.RefreshRequest) error {
	res, err := v.authority.RenderNode(ctx, ports.RenderNodeRequest{NodeID: v.rootID})
	if err != nil {
		return fmt.Errorf("failed to render node %s: %w", v.rootID, err)
	}
	if err := CheckSuccess("renderNode", res.ResponseBase); err != nil {
		return err
	}
	if res.Node == nil {
		return fmt.Errorf("render of %s returned no node: %w", v.rootID, ErrNotFound)
	}

	v.Load(res.Node, res.Children)
	if req.FocusID != "" {
		v.Highlight(req.FocusID)
	}
	v.logger.Debug("view refreshed", "root", v.rootID, "children", len(res.Children), "focus", v.highlightID)
	return nil
}

// Navigate makes nodeID the view root.
func (v *TreeView) Navigate(ctx context.Context, nodeID string) error {
	prev := v.rootID
	v.rootID = nodeID
	if err := v.RefreshNeeded(ctx, ports.RefreshRequest{}); err != nil {
		v.rootID = prev
		return err
	}
	return nil
}

// NavigateUp moves the view root to its parent, reporting false at the top.
func (v *TreeView) NavigateUp(ctx context.Context) (bool, error) {
	root := v.Root()
	if root == nil || root.ParentID == "" {
		return false, nil
	}
	child := root.ID
	if err := v.Navigate(ctx, root.ParentID); err != nil {
		return false, err
	}
	v.Highlight(child)
	return true, nil
}

// Load replaces the working set with root and its children.
func (v *TreeView) Load(root *domain.Node, children []*domain.Node) {
	v.cache.Reset()
	v.selection.Clear()

	root.Children = root.Children[:0]
	for _, child := range children {
		root.Children = append(root.Children, child.ID)
		v.cache.Put(child)
	}
	root.HasChildren = len(children) > 0
	v.cache.Put(root)
	v.rootID = root.ID

	if !v.cache.Has(v.highlightID) || v.highlightID == root.ID {
		v.highlightID = ""
	}
}

// RootID returns the view root id.
func (v *TreeView) RootID() string {
	return v.rootID
}

// Root returns the cached view root.
func (v *TreeView) Root() *domain.Node {
	n, _ := v.cache.Get(v.rootID)
	return n
}

// Children returns the view root's children in ordinal order.
func (v *TreeView) Children() []*domain.Node {
	return v.cache.Children(v.Root())
}

// Highlighted returns the focused node, or nil.
func (v *TreeView) Highlighted() *domain.Node {
	if v.highlightID == "" {
		return nil
	}
	n, _ := v.cache.Get(v.highlightID)
	return n
}

// Highlight focuses id if it is cached.
func (v *TreeView) Highlight(id string) bool {
	if !v.cache.Has(id) {
		return false
	}
	v.highlightID = id
	return true
}

// InsertChild records a freshly created node under the view root at its
// ordinal, shifting later siblings.
func (v *TreeView) InsertChild(node *domain.Node) {
	root := v.Root()
	if root == nil || node == nil {
		return
	}
	children := v.Children()
	pos := min(max(node.Ordinal, 0), len(children))

	ids := make([]string, 0, len(children)+1)
	for i, child := range children {
		if i == pos {
			ids = append(ids, node.ID)
		}
		ids = append(ids, child.ID)
	}
	if pos == len(children) {
		ids = append(ids, node.ID)
	}
	for i, id := range ids {
		if n, ok := v.cache.Get(id); ok && id != node.ID {
			n.Ordinal = i
		}
	}
	node.Ordinal = pos
	root.Children = ids
	root.HasChildren = true
	v.cache.Put(node)
}
