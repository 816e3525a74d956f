package domain

import "fmt"

// BestPostDeleteFocus picks the child that should hold focus once the
// children in doomed are gone: the first survivor after a run of doomed
// children, or else the last survivor seen. Returns nil when every child is
// doomed.
func BestPostDeleteFocus(children []*Node, doomed map[string]struct{}) *Node {
	var best *Node
	takeNext := false
	for _, child := range children {
		if _, ok := doomed[child.ID]; ok {
			takeNext = true
			continue
		}
		if takeNext {
			return child
		}
		best = child
	}
	return best
}

// NodeAbove returns the sibling before id, or nil at the top.
func NodeAbove(children []*Node, id string) *Node {
	for i, child := range children {
		if child.ID == id {
			if i == 0 {
				return nil
			}
			return children[i-1]
		}
	}
	return nil
}

// NodeBelow returns the sibling after id, or nil at the bottom.
func NodeBelow(children []*Node, id string) *Node {
	for i, child := range children {
		if child.ID == id {
			if i+1 >= len(children) {
				return nil
			}
			return children[i+1]
		}
	}
	return nil
}

// FirstChild returns the first child, or nil.
func FirstChild(children []*Node) *Node {
	if len(children) == 0 {
		return nil
	}
	return children[0]
}

// CheckOrdinals verifies that sibling ordinals are the dense sequence
// 0..k-1 and match each sibling's position.
func CheckOrdinals(children []*Node) error {
	for i, child := range children {
		if child.Ordinal != i {
			return fmt.Errorf("node %s at position %d has ordinal %d", child.ID, i, child.Ordinal)
		}
	}
	return nil
}

// Renumber assigns ordinals 0..k-1 in slice order.
func Renumber(children []*Node) {
	for i, child := range children {
		child.Ordinal = i
	}
}
