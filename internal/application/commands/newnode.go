// Package commands implements the tree edit commands of a workspace.
package commands

import (
	"context"
	"fmt"

	"arbor/internal/application"
	"arbor/internal/application/session"
	"arbor/internal/domain"
	"arbor/internal/ports"
)

// NewNodeResult contains the result of inserting or creating a node
type NewNodeResult struct {
	Node *domain.Node
	// Session is the edit session opened on Node; nil when the authority
	// returned no new node and the view was refreshed instead.
	Session *session.Session
	Message string
}

// newNodeRequest creates a node under parent: inline relative to target
// when one is set, otherwise as a child appended or inserted at the top.
// The new node goes straight into an edit session.
type newNodeRequest struct {
	ws       *application.Workspace
	sessions *session.Controller

	parent      *domain.Node
	target      *domain.Node
	offset      int
	typeName    string
	createAtTop bool
}

func (r *newNodeRequest) run(ctx context.Context) (*NewNodeResult, error) {
	if r.sessions.Active() != nil {
		return nil, &application.UserInputError{
			Reason:  application.ErrSessionActive,
			Message: "Another node is already being edited.",
		}
	}
	typeName := r.typeName
	if typeName == "" {
		typeName = domain.DefaultNodeType
	}

	var node *domain.Node
	if r.target != nil {
		res, err := r.ws.Authority.InsertNode(ctx, ports.InsertNodeRequest{
			ParentID:      r.parent.ID,
			TargetOrdinal: r.target.Ordinal + r.offset,
			TypeName:      typeName,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to insert node: %w", err)
		}
		if err := application.CheckSuccess("insertNode", res.ResponseBase); err != nil {
			return nil, err
		}
		node = res.NewNode
	} else {
		res, err := r.ws.Authority.CreateSubNode(ctx, ports.CreateSubNodeRequest{
			NodeID:      r.parent.ID,
			TypeName:    typeName,
			CreateAtTop: r.createAtTop,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create node: %w", err)
		}
		if err := application.CheckSuccess("createSubNode", res.ResponseBase); err != nil {
			return nil, err
		}
		node = res.NewNode
	}

	if node == nil {
		r.ws.Logger.Info("no new node returned, refreshing view", "parent", r.parent.ID)
		if err := r.ws.Refresh(ctx, r.parent.ID); err != nil {
			return nil, err
		}
		return &NewNodeResult{Message: "Node created"}, nil
	}

	r.merge(node)
	sess, err := r.sessions.OpenForCreate(ctx, node, session.InsertContext{
		ParentID:      r.parent.ID,
		Sibling:       r.target,
		OrdinalOffset: r.offset,
		CreateAtTop:   r.createAtTop,
	})
	result := &NewNodeResult{
		Node:    node,
		Session: sess,
		Message: fmt.Sprintf("Created node %s", node.ID),
	}
	if err != nil {
		return result, fmt.Errorf("node %s created but could not be opened for edit: %w", node.ID, err)
	}
	return result, nil
}

// merge records the new node in the cache. Children of the view root are
// spliced into the displayed list and highlighted.
func (r *newNodeRequest) merge(node *domain.Node) {
	view := r.ws.View
	if r.parent.ID == view.RootID() {
		view.InsertChild(node)
		view.Highlight(node.ID)
		return
	}
	if parent, ok := r.ws.Cache.Get(r.parent.ID); ok {
		parent.HasChildren = true
	}
	r.ws.Cache.Put(node)
}
