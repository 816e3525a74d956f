package ports

import "context"

// RefreshRequest asks the tree view to reload and focus a node.
type RefreshRequest struct {
	FocusID string
}

// ViewRefresher receives the view-refresh-needed notification that ends
// every successful tree mutation.
type ViewRefresher interface {
	RefreshNeeded(ctx context.Context, req RefreshRequest) error
}
