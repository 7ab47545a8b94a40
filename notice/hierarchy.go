package notice

import (
	"github.com/NathanaelAtEGR/unf/pkg/scenepath"
)

// HierarchyChanged reports the structural classification of an edit batch:
// elements that appeared, disappeared, or were resynced in place. A path is
// in at most one of the three sets.
type HierarchyChanged struct {
	added    scenepath.Set
	removed  scenepath.Set
	modified scenepath.Set
}

// NewHierarchyChanged builds a notice from the three classified path lists.
// A path listed more than once keeps one classification, preferring added,
// then removed, then modified.
func NewHierarchyChanged(added, removed, modified []scenepath.Path) *HierarchyChanged {
	n := &HierarchyChanged{
		added:    scenepath.NewSet(added...),
		removed:  scenepath.NewSet(),
		modified: scenepath.NewSet(),
	}
	for _, p := range removed {
		if !n.added.Contains(p) {
			n.removed.Add(p)
		}
	}
	for _, p := range modified {
		if !n.added.Contains(p) && !n.removed.Contains(p) {
			n.modified.Add(p)
		}
	}
	return n
}

func (*HierarchyChanged) TypeID() string  { return TypeHierarchyChanged }
func (*HierarchyChanged) Mergeable() bool { return true }

// Copy returns a deep copy.
func (n *HierarchyChanged) Copy() Notice {
	return &HierarchyChanged{
		added:    n.added.Clone(),
		removed:  n.removed.Clone(),
		modified: n.modified.Clone(),
	}
}

// Merge absorbs another *HierarchyChanged.
func (n *HierarchyChanged) Merge(other Notice) error {
	o, ok := other.(*HierarchyChanged)
	if !ok {
		return mismatch(n, other)
	}
	n.Absorb(o)
	return nil
}

// Absorb folds a later classification into n:
//   - added after removed yields modified;
//   - removed after added cancels out;
//   - modified never overrides added or removed.
func (n *HierarchyChanged) Absorb(other *HierarchyChanged) {
	for p := range other.added {
		if n.removed.Remove(p) {
			n.modified.Add(p)
			continue
		}
		n.modified.Remove(p)
		n.added.Add(p)
	}
	for p := range other.removed {
		if n.added.Remove(p) {
			continue
		}
		n.modified.Remove(p)
		n.removed.Add(p)
	}
	for p := range other.modified {
		if n.added.Contains(p) || n.removed.Contains(p) {
			continue
		}
		n.modified.Add(p)
	}
}

// AddedPaths returns the added paths in sorted order.
func (n *HierarchyChanged) AddedPaths() []scenepath.Path { return n.added.Sorted() }

// RemovedPaths returns the removed paths in sorted order.
func (n *HierarchyChanged) RemovedPaths() []scenepath.Path { return n.removed.Sorted() }

// ModifiedPaths returns the modified paths in sorted order.
func (n *HierarchyChanged) ModifiedPaths() []scenepath.Path { return n.modified.Sorted() }

// IsEmpty reports whether no path is classified.
func (n *HierarchyChanged) IsEmpty() bool {
	return n.added.Len() == 0 && n.removed.Len() == 0 && n.modified.Len() == 0
}
