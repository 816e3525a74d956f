package domain

// NodeCache maps node ids to the snapshots of the displayed tree fragment.
// Entries live until Reset; nothing is evicted implicitly. Not safe for
// concurrent use.
type NodeCache struct {
	nodes map[string]*Node
}

// NewNodeCache returns an empty cache.
func NewNodeCache() *NodeCache {
	return &NodeCache{nodes: make(map[string]*Node)}
}

// Get returns the cached snapshot for id.
func (c *NodeCache) Get(id string) (*Node, bool) {
	n, ok := c.nodes[id]
	return n, ok
}

// Put inserts node, overwriting any snapshot with the same id.
func (c *NodeCache) Put(node *Node) {
	if node == nil || node.ID == "" {
		return
	}
	c.nodes[node.ID] = node
}

// Has reports whether id is cached.
func (c *NodeCache) Has(id string) bool {
	_, ok := c.nodes[id]
	return ok
}

// Reset drops the whole working set.
func (c *NodeCache) Reset() {
	c.nodes = make(map[string]*Node)
}

// Len returns the number of cached nodes.
func (c *NodeCache) Len() int {
	return len(c.nodes)
}

// Children returns the cached children of parent in child-list order,
// skipping ids that are not cached.
func (c *NodeCache) Children(parent *Node) []*Node {
	if parent == nil {
		return nil
	}
	out := make([]*Node, 0, len(parent.Children))
	for _, id := range parent.Children {
		if n, ok := c.nodes[id]; ok {
			out = append(out, n)
		}
	}
	return out
}
