package domain

import "slices"

// Selection is the set of node ids checked by the user, in the order they
// were checked. Every member is present in the backing NodeCache.
type Selection struct {
	cache *NodeCache
	order []string
	set   map[string]struct{}
}

// NewSelection returns an empty selection bound to cache.
func NewSelection(cache *NodeCache) *Selection {
	return &Selection{cache: cache, set: make(map[string]struct{})}
}

// Toggle adds or removes id. Selecting an id that is not cached is refused
// and reported as false.
func (s *Selection) Toggle(id string, selected bool) bool {
	if !selected {
		if _, ok := s.set[id]; ok {
			delete(s.set, id)
			s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
		}
		return true
	}
	if !s.cache.Has(id) {
		return false
	}
	if _, ok := s.set[id]; !ok {
		s.set[id] = struct{}{}
		s.order = append(s.order, id)
	}
	return true
}

// IDs returns the selected ids in selection order.
func (s *Selection) IDs() []string {
	return slices.Clone(s.order)
}

// Set returns the selection for O(1) membership tests.
func (s *Selection) Set() map[string]struct{} {
	out := make(map[string]struct{}, len(s.set))
	for id := range s.set {
		out[id] = struct{}{}
	}
	return out
}

// Contains reports whether id is selected.
func (s *Selection) Contains(id string) bool {
	_, ok := s.set[id]
	return ok
}

// Len returns the number of selected ids.
func (s *Selection) Len() int {
	return len(s.order)
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.order = nil
	s.set = make(map[string]struct{})
}

// MoveClipboard holds the ids staged by a cut until they are pasted or the
// cut is undone.
type MoveClipboard struct {
	ids []string
}

// Stage replaces the clipboard contents with ids.
func (m *MoveClipboard) Stage(ids []string) {
	m.ids = slices.Clone(ids)
}

// IDs returns the staged ids in cut order.
func (m *MoveClipboard) IDs() []string {
	return slices.Clone(m.ids)
}

// Active reports whether a cut is pending.
func (m *MoveClipboard) Active() bool {
	return len(m.ids) > 0
}

// Clear discards the pending cut.
func (m *MoveClipboard) Clear() {
	m.ids = nil
}

// Drop removes ids that no longer exist, e.g. after a delete.
func (m *MoveClipboard) Drop(ids []string) {
	m.ids = slices.DeleteFunc(m.ids, func(v string) bool {
		return slices.Contains(ids, v)
	})
}
