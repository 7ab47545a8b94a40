package notice

import (
	"sort"

	"github.com/NathanaelAtEGR/unf/pkg/scenepath"
)

// FieldSet is a set of changed field names.
type FieldSet map[string]struct{}

// NewFieldSet returns a set holding fields.
func NewFieldSet(fields ...string) FieldSet {
	s := make(FieldSet, len(fields))
	for _, f := range fields {
		s[f] = struct{}{}
	}
	return s
}

// Sorted returns the field names in lexical order.
func (s FieldSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for f := range s {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func (s FieldSet) union(other FieldSet) {
	for f := range other {
		s[f] = struct{}{}
	}
}

func (s FieldSet) clone() FieldSet {
	out := make(FieldSet, len(s))
	out.union(s)
	return out
}

// ObjectsChanged reports scene elements whose structure or metadata changed.
//
// Resynced paths denote whole subtrees that must be considered invalidated.
// Info-only paths denote elements whose fields changed without any
// structural effect; the changed field names are kept per path.
type ObjectsChanged struct {
	resynced      []scenepath.Path
	infoOnly      []scenepath.Path
	changedFields map[scenepath.Path]FieldSet
}

// NewObjectsChanged builds a notice from resynced and info-only paths.
// fields maps a path from either list to the names of its changed fields.
// Duplicate paths within a list are collapsed.
func NewObjectsChanged(resynced, infoOnly []scenepath.Path, fields map[scenepath.Path][]string) *ObjectsChanged {
	n := &ObjectsChanged{changedFields: make(map[scenepath.Path]FieldSet)}
	for _, p := range resynced {
		if !containsPath(n.resynced, p) {
			n.resynced = append(n.resynced, p)
		}
		n.recordFields(p, fields[p])
	}
	for _, p := range infoOnly {
		if !containsPath(n.infoOnly, p) {
			n.infoOnly = append(n.infoOnly, p)
		}
		n.recordFields(p, fields[p])
	}
	return n
}

func (n *ObjectsChanged) recordFields(p scenepath.Path, fields []string) {
	set, ok := n.changedFields[p]
	if !ok {
		set = NewFieldSet()
		n.changedFields[p] = set
	}
	for _, f := range fields {
		set[f] = struct{}{}
	}
}

func containsPath(paths []scenepath.Path, p scenepath.Path) bool {
	for _, q := range paths {
		if q == p {
			return true
		}
	}
	return false
}

func (*ObjectsChanged) TypeID() string  { return TypeObjectsChanged }
func (*ObjectsChanged) Mergeable() bool { return true }

// Copy returns a deep copy.
func (n *ObjectsChanged) Copy() Notice {
	out := &ObjectsChanged{
		resynced:      append([]scenepath.Path(nil), n.resynced...),
		infoOnly:      append([]scenepath.Path(nil), n.infoOnly...),
		changedFields: make(map[scenepath.Path]FieldSet, len(n.changedFields)),
	}
	for p, fields := range n.changedFields {
		out.changedFields[p] = fields.clone()
	}
	return out
}

// Merge absorbs another *ObjectsChanged.
func (n *ObjectsChanged) Merge(other Notice) error {
	o, ok := other.(*ObjectsChanged)
	if !ok {
		return mismatch(n, other)
	}
	n.Absorb(o)
	return nil
}

// Absorb folds other into n:
//   - resynced paths are unioned by exact equality, first-seen order kept;
//   - info-only paths are unioned, and the changed fields of each info-only
//     path of other are unioned into n.
//
// Changed fields recorded for the resynced paths of other are not carried
// over: a resync invalidates the whole subtree, which makes field detail moot.
func (n *ObjectsChanged) Absorb(other *ObjectsChanged) {
	for _, p := range other.resynced {
		if !containsPath(n.resynced, p) {
			n.resynced = append(n.resynced, p)
		}
	}

	if n.changedFields == nil {
		n.changedFields = make(map[scenepath.Path]FieldSet)
	}
	for _, p := range other.infoOnly {
		if !containsPath(n.infoOnly, p) {
			n.infoOnly = append(n.infoOnly, p)
		}
		set, ok := n.changedFields[p]
		if !ok {
			set = NewFieldSet()
			n.changedFields[p] = set
		}
		set.union(other.changedFields[p])
	}
}

// ResyncedPaths returns the resynced paths in first-seen order.
func (n *ObjectsChanged) ResyncedPaths() []scenepath.Path {
	return append([]scenepath.Path(nil), n.resynced...)
}

// ChangedInfoOnlyPaths returns the info-only paths in first-seen order.
func (n *ObjectsChanged) ChangedInfoOnlyPaths() []scenepath.Path {
	return append([]scenepath.Path(nil), n.infoOnly...)
}

// ResyncedObject reports whether p is at or below a resynced path.
func (n *ObjectsChanged) ResyncedObject(p scenepath.Path) bool {
	_, ok := scenepath.FindLongestPrefix(n.resynced, p)
	return ok
}

// ChangedInfoOnly reports whether p is at or below an info-only path.
func (n *ObjectsChanged) ChangedInfoOnly(p scenepath.Path) bool {
	_, ok := scenepath.FindLongestPrefix(n.infoOnly, p)
	return ok
}

// HasChangedFields reports whether field changes are recorded for p.
func (n *ObjectsChanged) HasChangedFields(p scenepath.Path) bool {
	_, ok := n.changedFields[p]
	return ok
}

// ChangedFields returns the sorted changed field names recorded for p, or
// nil when none are recorded.
func (n *ObjectsChanged) ChangedFields(p scenepath.Path) []string {
	set, ok := n.changedFields[p]
	if !ok {
		return nil
	}
	return set.Sorted()
}

// ChangedFieldMap returns a copy of every recorded path and its fields.
func (n *ObjectsChanged) ChangedFieldMap() map[scenepath.Path]FieldSet {
	out := make(map[scenepath.Path]FieldSet, len(n.changedFields))
	for p, fields := range n.changedFields {
		out[p] = fields.clone()
	}
	return out
}
