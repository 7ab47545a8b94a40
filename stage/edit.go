package stage

import (
	"fmt"
	"sort"

	"github.com/NathanaelAtEGR/unf/pkg/scenepath"
)

// DefinePrim creates a prim at p along with any missing ancestors.
// Defining an existing prim is a no-op.
func (s *Stage) DefinePrim(p scenepath.Path) error {
	if p.IsEmpty() || p.IsRoot() {
		return fmt.Errorf("%w: %q", ErrRootPrim, p)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}

	var created scenepath.Path
	node := s.root
	current := scenepath.Root()
	for _, seg := range p.Segments() {
		current, _ = current.AppendChild(seg)
		child, ok := node.children[seg]
		if !ok {
			child = newPrim()
			node.children[seg] = child
			if created.IsEmpty() {
				created = current
			}
		}
		node = child
	}

	if created.IsEmpty() {
		s.mu.Unlock()
		return nil
	}
	s.commitLocked(Change{Resynced: []scenepath.Path{created}})
	return nil
}

// RemovePrim deletes the prim at p and its whole subtree.
func (s *Stage) RemovePrim(p scenepath.Path) error {
	if p.IsEmpty() || p.IsRoot() {
		return fmt.Errorf("%w: %q", ErrRootPrim, p)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}

	parent := s.lookup(p.Parent())
	if parent == nil || parent.children[p.Name()] == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPrimNotFound, p)
	}
	delete(parent.children, p.Name())

	s.commitLocked(Change{Resynced: []scenepath.Path{p}})
	return nil
}

// SetField records an edit of field on the prim at p. This is an info-only
// change: the hierarchy is untouched.
func (s *Stage) SetField(p scenepath.Path, field string) error {
	if field == "" {
		return ErrEmptyField
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}

	node := s.lookup(p)
	if node == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPrimNotFound, p)
	}
	if node.fields == nil {
		node.fields = make(map[string]struct{})
	}
	node.fields[field] = struct{}{}

	s.commitLocked(Change{
		InfoOnly:      []scenepath.Path{p},
		ChangedFields: map[scenepath.Path][]string{p: {field}},
	})
	return nil
}

// MuteLayer mutes the layer with the given identifier. Muting a muted layer
// is a no-op.
func (s *Stage) MuteLayer(id string) error {
	return s.setMuted(id, true)
}

// UnmuteLayer unmutes the layer with the given identifier. Unmuting a layer
// that is not muted is a no-op.
func (s *Stage) UnmuteLayer(id string) error {
	return s.setMuted(id, false)
}

func (s *Stage) setMuted(id string, mute bool) error {
	if id == "" {
		return ErrEmptyLayer
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}

	_, isMuted := s.muted[id]
	if isMuted == mute {
		s.mu.Unlock()
		return nil
	}

	var change Change
	if mute {
		s.muted[id] = struct{}{}
		change.Muted = []string{id}
	} else {
		delete(s.muted, id)
		change.Unmuted = []string{id}
	}
	s.commitLocked(change)
	return nil
}

// SetEditTarget changes the layer that receives edits.
func (s *Stage) SetEditTarget(target string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.target == target {
		s.mu.Unlock()
		return nil
	}
	s.target = target
	s.commitLocked(Change{EditTargetChanged: true})
	return nil
}

// Batch runs fn and reports every edit it makes as one Change once fn
// returns, even if fn fails or panics. Batches nest; only the outermost one
// emits. A batch is stage-wide: edits made concurrently from other
// goroutines are coalesced into it too.
func (s *Stage) Batch(fn func() error) error {
	s.mu.Lock()
	s.batchDepth++
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.batchDepth--
		if s.batchDepth > 0 || s.pending == nil {
			s.mu.Unlock()
			return
		}
		change := *s.pending
		s.pending = nil
		watchers := s.watchersLocked()
		s.mu.Unlock()
		notify(watchers, change)
	}()

	return fn()
}

// commitLocked records change and releases s.mu. Outside a batch the
// watchers are notified once the lock is released.
func (s *Stage) commitLocked(change Change) {
	if s.batchDepth > 0 {
		if s.pending == nil {
			s.pending = &Change{}
		}
		s.pending.append(change)
		s.mu.Unlock()
		return
	}
	watchers := s.watchersLocked()
	s.mu.Unlock()
	notify(watchers, change)
}

func (s *Stage) watchersLocked() []func(Change) {
	ids := make([]int, 0, len(s.watchers))
	for id := range s.watchers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(Change), 0, len(ids))
	for _, id := range ids {
		out = append(out, s.watchers[id])
	}
	return out
}

func notify(watchers []func(Change), change Change) {
	for _, fn := range watchers {
		fn(change)
	}
}
