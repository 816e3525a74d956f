package authority

import (
	"context"
	"maps"
	"slices"
	"sync"

	"arbor/internal/domain"
)

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu sync.Mutex
	st *memState
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{st: newMemState()}
}

type memState struct {
	nodes      map[string]*domain.Node
	principals map[string]*Principal // by id
	grants     map[string][]Grant    // by node id
	keys       map[[2]string]string  // node id, principal id
}

func newMemState() *memState {
	return &memState{
		nodes:      make(map[string]*domain.Node),
		principals: make(map[string]*Principal),
		grants:     make(map[string][]Grant),
		keys:       make(map[[2]string]string),
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for id, n := range s.nodes {
		c.nodes[id] = n.Clone()
	}
	for id, p := range s.principals {
		cp := *p
		c.principals[id] = &cp
	}
	for id, g := range s.grants {
		c.grants[id] = slices.Clone(g)
	}
	maps.Copy(c.keys, s.keys)
	return c
}

func (m *MemoryStore) Node(ctx context.Context, id string) (*domain.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.Node(ctx, id)
}

func (m *MemoryStore) Children(ctx context.Context, parentID string) ([]*domain.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.Children(ctx, parentID)
}

func (m *MemoryStore) PutNode(ctx context.Context, n *domain.Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.PutNode(ctx, n)
}

func (m *MemoryStore) DeleteNode(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.DeleteNode(ctx, id)
}

func (m *MemoryStore) DeletedNodes(ctx context.Context, owner string) ([]*domain.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.DeletedNodes(ctx, owner)
}

func (m *MemoryStore) Principal(ctx context.Context, name string) (*Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.Principal(ctx, name)
}

func (m *MemoryStore) PrincipalByID(ctx context.Context, id string) (*Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.PrincipalByID(ctx, id)
}

func (m *MemoryStore) PutPrincipal(ctx context.Context, p *Principal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.PutPrincipal(ctx, p)
}

func (m *MemoryStore) Grants(ctx context.Context, nodeID string) ([]Grant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.Grants(ctx, nodeID)
}

func (m *MemoryStore) PutGrant(ctx context.Context, nodeID string, g Grant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.PutGrant(ctx, nodeID, g)
}

func (m *MemoryStore) DeleteGrant(ctx context.Context, nodeID, principalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.DeleteGrant(ctx, nodeID, principalID)
}

func (m *MemoryStore) CipherKey(ctx context.Context, nodeID, principalID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.CipherKey(ctx, nodeID, principalID)
}

func (m *MemoryStore) PutCipherKey(ctx context.Context, nodeID, principalID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.PutCipherKey(ctx, nodeID, principalID, key)
}

// Update runs fn under the store lock and restores the previous state if
// fn fails.
func (m *MemoryStore) Update(ctx context.Context, fn func(Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := m.st.clone()
	if err := fn(m.st); err != nil {
		m.st = snapshot
		return err
	}
	return nil
}

func (m *MemoryStore) Close() error { return nil }

func (s *memState) Node(_ context.Context, id string) (*domain.Node, error) {
	n, ok := s.nodes[id]
	if !ok {
		return nil, ErrNodeNotFound
	}
	return n.Clone(), nil
}

func (s *memState) Children(_ context.Context, parentID string) ([]*domain.Node, error) {
	var out []*domain.Node
	for _, n := range s.nodes {
		if n.ParentID == parentID && parentID != "" {
			out = append(out, n.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *domain.Node) int { return a.Ordinal - b.Ordinal })
	return out, nil
}

func (s *memState) PutNode(_ context.Context, n *domain.Node) error {
	c := n.Clone()
	c.Children = nil
	c.CipherKey = ""
	s.nodes[n.ID] = c
	return nil
}

func (s *memState) DeleteNode(_ context.Context, id string) error {
	delete(s.nodes, id)
	delete(s.grants, id)
	for k := range s.keys {
		if k[0] == id {
			delete(s.keys, k)
		}
	}
	return nil
}

func (s *memState) DeletedNodes(_ context.Context, owner string) ([]*domain.Node, error) {
	var out []*domain.Node
	for _, n := range s.nodes {
		if n.Deleted && n.Owner == owner {
			out = append(out, n.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *domain.Node) int {
		if a.ParentID != b.ParentID {
			if a.ParentID < b.ParentID {
				return -1
			}
			return 1
		}
		return a.Ordinal - b.Ordinal
	})
	return out, nil
}

func (s *memState) Principal(_ context.Context, name string) (*Principal, error) {
	for _, p := range s.principals {
		if p.Name == name {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrPrincipalNotFound
}

func (s *memState) PrincipalByID(_ context.Context, id string) (*Principal, error) {
	p, ok := s.principals[id]
	if !ok {
		return nil, ErrPrincipalNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memState) PutPrincipal(_ context.Context, p *Principal) error {
	cp := *p
	s.principals[p.ID] = &cp
	return nil
}

func (s *memState) Grants(_ context.Context, nodeID string) ([]Grant, error) {
	return slices.Clone(s.grants[nodeID]), nil
}

func (s *memState) PutGrant(_ context.Context, nodeID string, g Grant) error {
	grants := s.grants[nodeID]
	for i := range grants {
		if grants[i].PrincipalID == g.PrincipalID {
			grants[i] = g
			return nil
		}
	}
	s.grants[nodeID] = append(grants, g)
	return nil
}

func (s *memState) DeleteGrant(_ context.Context, nodeID, principalID string) error {
	s.grants[nodeID] = slices.DeleteFunc(s.grants[nodeID], func(g Grant) bool {
		return g.PrincipalID == principalID
	})
	return nil
}

func (s *memState) CipherKey(_ context.Context, nodeID, principalID string) (string, error) {
	return s.keys[[2]string{nodeID, principalID}], nil
}

func (s *memState) PutCipherKey(_ context.Context, nodeID, principalID, key string) error {
	s.keys[[2]string{nodeID, principalID}] = key
	return nil
}

func (s *memState) Update(_ context.Context, fn func(Store) error) error {
	return fn(s)
}

func (s *memState) Close() error { return nil }
