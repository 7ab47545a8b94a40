package stage

import (
	"github.com/NathanaelAtEGR/unf/pkg/scenepath"
)

// Change is the raw description of one edit, or of all edits of a batch.
// Paths appear in the order the edits were made and may be redundant: a
// batch can resync a path and one of its descendants.
type Change struct {
	Resynced          []scenepath.Path
	InfoOnly          []scenepath.Path
	ChangedFields     map[scenepath.Path][]string
	Muted             []string
	Unmuted           []string
	EditTargetChanged bool
}

// IsEmpty reports whether the change describes nothing.
func (c *Change) IsEmpty() bool {
	return len(c.Resynced) == 0 &&
		len(c.InfoOnly) == 0 &&
		len(c.Muted) == 0 &&
		len(c.Unmuted) == 0 &&
		!c.EditTargetChanged
}

// HasObjectChanges reports whether the change touched any prim.
func (c *Change) HasObjectChanges() bool {
	return len(c.Resynced) > 0 || len(c.InfoOnly) > 0
}

// append folds other into c.
func (c *Change) append(other Change) {
	c.Resynced = append(c.Resynced, other.Resynced...)
	c.InfoOnly = append(c.InfoOnly, other.InfoOnly...)
	for p, fields := range other.ChangedFields {
		if c.ChangedFields == nil {
			c.ChangedFields = make(map[scenepath.Path][]string)
		}
		c.ChangedFields[p] = append(c.ChangedFields[p], fields...)
	}
	c.Muted = append(c.Muted, other.Muted...)
	c.Unmuted = append(c.Unmuted, other.Unmuted...)
	c.EditTargetChanged = c.EditTargetChanged || other.EditTargetChanged
}
