// Package stage provides an in-memory scene document.
//
// A Stage holds a tree of prims addressed by scenepath.Path, a set of muted
// layers and an edit target. Every edit is reported to watchers as a Change
// describing what was resynced, which fields changed and which layers were
// (un)muted. Edits made inside Batch are coalesced into a single Change.
package stage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/NathanaelAtEGR/unf/pkg/scenepath"
)

// prim is one element of the document tree.
type prim struct {
	children map[string]*prim
	fields   map[string]struct{}
}

func newPrim() *prim {
	return &prim{children: make(map[string]*prim)}
}

// Stage is an in-memory scene document. It is safe for concurrent use;
// watchers are called after the stage lock has been released.
type Stage struct {
	mu       sync.RWMutex
	id       string
	root     *prim
	muted    map[string]struct{}
	target   string
	closed   bool
	watchers map[int]func(Change)
	nextID   int

	batchDepth int
	pending    *Change
}

// New creates an empty stage with a random identity.
func New() *Stage {
	return NewWithIdentity(uuid.NewString())
}

// NewWithIdentity creates an empty stage with the given identity.
func NewWithIdentity(id string) *Stage {
	return &Stage{
		id:       id,
		root:     newPrim(),
		muted:    make(map[string]struct{}),
		watchers: make(map[int]func(Change)),
	}
}

// Identity returns the stage's identity.
func (s *Stage) Identity() string {
	return s.id
}

// Expired reports whether the stage has been closed.
func (s *Stage) Expired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Close releases the stage. Further edits fail with ErrClosed, and brokers
// tracking the stage report it as expired.
func (s *Stage) Close() {
	s.mu.Lock()
	s.closed = true
	s.watchers = make(map[int]func(Change))
	s.mu.Unlock()
}

// Watch registers fn to receive every Change. The returned function removes
// the registration.
func (s *Stage) Watch(fn func(Change)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

// lookup returns the prim at p. Caller holds s.mu.
func (s *Stage) lookup(p scenepath.Path) *prim {
	if p.IsEmpty() {
		return nil
	}
	node := s.root
	for _, seg := range p.Segments() {
		child, ok := node.children[seg]
		if !ok {
			return nil
		}
		node = child
	}
	return node
}

// HasPrim reports whether a prim exists at p. The root always exists.
func (s *Stage) HasPrim(p scenepath.Path) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookup(p) != nil
}

// Children returns the sorted child names of the prim at p, or nil when
// there is no prim at p.
func (s *Stage) Children(p scenepath.Path) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node := s.lookup(p)
	if node == nil {
		return nil
	}
	names := make([]string, 0, len(node.children))
	for name := range node.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Prims returns the paths of every prim below the root, sorted.
func (s *Stage) Prims() []scenepath.Path {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []scenepath.Path
	var walk func(p scenepath.Path, node *prim)
	walk = func(p scenepath.Path, node *prim) {
		for name, child := range node.children {
			cp, err := p.AppendChild(name)
			if err != nil {
				continue
			}
			out = append(out, cp)
			walk(cp, child)
		}
	}
	walk(scenepath.Root(), s.root)
	scenepath.Sort(out)
	return out
}

// Fields returns the sorted names of the fields authored on the prim at p.
func (s *Stage) Fields(p scenepath.Path) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node := s.lookup(p)
	if node == nil {
		return nil, fmt.Errorf("%w: %s", ErrPrimNotFound, p)
	}
	out := make([]string, 0, len(node.fields))
	for f := range node.fields {
		out = append(out, f)
	}
	sort.Strings(out)
	return out, nil
}

// MutedLayers returns the sorted identifiers of muted layers.
func (s *Stage) MutedLayers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.muted))
	for id := range s.muted {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// EditTarget returns the current edit target.
func (s *Stage) EditTarget() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.target
}
