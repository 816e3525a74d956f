// Package authority is the reference node service: it owns the tree,
// enforces authorization and keeps sibling ordinals dense.
package authority

import (
	"context"
	"errors"

	"arbor/internal/domain"
)

// ErrNodeNotFound is returned by stores for unknown ids.
var ErrNodeNotFound = errors.New("node not found")

// ErrPrincipalNotFound is returned by stores for unknown principals.
var ErrPrincipalNotFound = errors.New("principal not found")

// Principal is an identity that can own nodes and receive grants.
type Principal struct {
	ID         string
	Name       string
	PublicKey  string
	HomeNodeID string
	Admin      bool
	Test       bool
}

// Grant is one stored ACL row.
type Grant struct {
	PrincipalID string
	Privileges  []domain.Privilege
}

// Store persists nodes, principals, grants and delivered cipher keys.
// Children are derived from ParentID and ordered by ordinal.
type Store interface {
	Node(ctx context.Context, id string) (*domain.Node, error)
	Children(ctx context.Context, parentID string) ([]*domain.Node, error)
	PutNode(ctx context.Context, n *domain.Node) error
	DeleteNode(ctx context.Context, id string) error
	DeletedNodes(ctx context.Context, owner string) ([]*domain.Node, error)

	Principal(ctx context.Context, name string) (*Principal, error)
	PrincipalByID(ctx context.Context, id string) (*Principal, error)
	PutPrincipal(ctx context.Context, p *Principal) error

	Grants(ctx context.Context, nodeID string) ([]Grant, error)
	PutGrant(ctx context.Context, nodeID string, g Grant) error
	DeleteGrant(ctx context.Context, nodeID, principalID string) error

	CipherKey(ctx context.Context, nodeID, principalID string) (string, error)
	PutCipherKey(ctx context.Context, nodeID, principalID, key string) error

	// Update runs fn atomically against the store.
	Update(ctx context.Context, fn func(Store) error) error
	Close() error
}
