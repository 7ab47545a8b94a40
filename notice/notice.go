package notice

import (
	"fmt"
)

// Notice describes one category of change to a scene document.
//
// A notice is immutable until merged: Merge absorbs a same-typed peer into
// the receiver, and the peer must not be used afterwards. Copy returns an
// independent value so a captured notice can be merged without touching the
// instance its producer still holds.
type Notice interface {
	// TypeID identifies the notice variant. Notices are bucketed and merged
	// by this identifier, so it must be stable and unique per variant.
	TypeID() string

	// Mergeable reports whether a run of same-typed notices may be
	// collapsed into one.
	Mergeable() bool

	// Merge absorbs other into the receiver. It returns an error wrapping
	// ErrTypeMismatch when other is not of the receiver's concrete type.
	Merge(other Notice) error

	// Copy returns a deep copy of the notice.
	Copy() Notice
}

// Type identifiers of the built-in variants.
const (
	TypeContentsChanged    = "unf.ContentsChanged"
	TypeEditTargetChanged  = "unf.EditTargetChanged"
	TypeObjectsChanged     = "unf.ObjectsChanged"
	TypeLayerMutingChanged = "unf.LayerMutingChanged"
	TypeHierarchyChanged   = "unf.HierarchyChanged"
)

func mismatch(dst, src Notice) error {
	return fmt.Errorf("%w: cannot merge %s into %s", ErrTypeMismatch, describeType(src), dst.TypeID())
}

func describeType(n Notice) string {
	if n == nil {
		return "<nil>"
	}
	return n.TypeID()
}

// ContentsChanged signals that the document's contents changed in some way.
// It carries no payload; any number of instances merge into one.
type ContentsChanged struct{}

// NewContentsChanged returns a ContentsChanged notice.
func NewContentsChanged() *ContentsChanged {
	return &ContentsChanged{}
}

func (*ContentsChanged) TypeID() string  { return TypeContentsChanged }
func (*ContentsChanged) Mergeable() bool { return true }
func (*ContentsChanged) Copy() Notice    { return &ContentsChanged{} }

func (n *ContentsChanged) Merge(other Notice) error {
	if _, ok := other.(*ContentsChanged); !ok {
		return mismatch(n, other)
	}
	return nil
}

// EditTargetChanged signals that the document's edit target changed.
// It carries no payload; any number of instances merge into one.
type EditTargetChanged struct{}

// NewEditTargetChanged returns an EditTargetChanged notice.
func NewEditTargetChanged() *EditTargetChanged {
	return &EditTargetChanged{}
}

func (*EditTargetChanged) TypeID() string  { return TypeEditTargetChanged }
func (*EditTargetChanged) Mergeable() bool { return true }
func (*EditTargetChanged) Copy() Notice    { return &EditTargetChanged{} }

func (n *EditTargetChanged) Merge(other Notice) error {
	if _, ok := other.(*EditTargetChanged); !ok {
		return mismatch(n, other)
	}
	return nil
}
