package diffcache

import (
	"context"
	"log/slog"
	"sync"

	"github.com/NathanaelAtEGR/unf/internal/logger"
	"github.com/NathanaelAtEGR/unf/pkg/scenepath"
)

// Tree is the read side of the live document the cache mirrors.
type Tree interface {
	// HasPrim reports whether an element exists at p. The root always exists.
	HasPrim(p scenepath.Path) bool

	// Children returns the names of the element's current children.
	Children(p scenepath.Path) []string
}

// node mirrors one document element. It holds no reference to the live
// element; the document is queried by path when needed.
type node struct {
	path     scenepath.Path
	children map[string]*node
}

// newNode snapshots the live element at p and its whole subtree.
func newNode(tree Tree, p scenepath.Path) *node {
	n := &node{path: p, children: make(map[string]*node)}
	for _, name := range tree.Children(p) {
		cp, err := p.AppendChild(name)
		if err != nil {
			continue
		}
		n.children[cp.Name()] = newNode(tree, cp)
	}
	return n
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for update summaries.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// Cache is a persistent mirror of a document hierarchy that classifies
// resynced paths as added, removed or modified.
//
// The three result sets accumulate across Update calls until Clear (or
// Drain) is called, and a path belongs to at most one of them.
//
// Cache is safe for concurrent use; all operations are serialized.
type Cache struct {
	mu     sync.Mutex
	tree   Tree
	root   *node
	logger *slog.Logger

	added    scenepath.Set
	removed  scenepath.Set
	modified scenepath.Set
}

// New snapshots the whole document reachable through tree.
func New(tree Tree, opts ...Option) *Cache {
	c := &Cache{
		tree:     tree,
		root:     newNode(tree, scenepath.Root()),
		logger:   logger.L,
		added:    scenepath.NewSet(),
		removed:  scenepath.NewSet(),
		modified: scenepath.NewSet(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Update classifies the structural effect of a batch of resynced paths and
// brings the cached tree in line with the live document.
//
// Descendants of other batch paths are ignored; the recursive walk below
// each remaining path covers them.
func (c *Cache) Update(resynced []scenepath.Path) {
	c.mu.Lock()
	defer c.mu.Unlock()

	before := [3]int{c.added.Len(), c.removed.Len(), c.modified.Len()}

	for _, p := range scenepath.RemoveDescendantPaths(resynced) {
		if c.tree.HasPrim(p) {
			c.markModified(p)
		}
		n, created := c.createOrFindClosest(p)
		if !created {
			c.sync(n)
		}
	}

	recordUpdate(context.Background(), len(resynced),
		c.added.Len()-before[0], c.removed.Len()-before[1], c.modified.Len()-before[2])
	c.logger.Debug("diff cache updated",
		"resynced", len(resynced),
		"added", c.added.Len(),
		"removed", c.removed.Len(),
		"modified", c.modified.Len())
}

// createOrFindClosest walks the cached tree along p. It stops at the first
// segment whose element is missing from the live document and returns the
// deepest cached node so far. If the live document has an element the cache
// has not seen yet, that element's subtree is snapshotted, marked added, and
// returned with created set.
func (c *Cache) createOrFindClosest(p scenepath.Path) (*node, bool) {
	current := c.root
	for _, seg := range p.Segments() {
		next, err := current.path.AppendChild(seg)
		if err != nil || !c.tree.HasPrim(next) {
			return current, false
		}
		child, ok := current.children[seg]
		if !ok {
			child = newNode(c.tree, next)
			current.children[seg] = child
			c.markAdded(child)
			return child, true
		}
		current = child
	}
	return current, false
}

// sync reconciles n's subtree with the live document.
func (c *Cache) sync(n *node) {
	live := c.tree.Children(n.path)
	seen := make(map[string]struct{}, len(live))

	for _, name := range live {
		cp, err := n.path.AppendChild(name)
		if err != nil {
			continue
		}
		seen[cp.Name()] = struct{}{}

		if child, ok := n.children[cp.Name()]; ok {
			c.sync(child)
			continue
		}
		child := newNode(c.tree, cp)
		n.children[cp.Name()] = child
		c.markAdded(child)
	}

	for name, child := range n.children {
		if _, ok := seen[name]; ok {
			continue
		}
		c.markRemoved(child)
		delete(n.children, name)
	}
}

func (c *Cache) markAdded(n *node) {
	c.added.Add(n.path)
	c.removed.Remove(n.path)
	c.modified.Remove(n.path)
	for _, child := range n.children {
		c.markAdded(child)
	}
}

func (c *Cache) markRemoved(n *node) {
	c.removed.Add(n.path)
	c.added.Remove(n.path)
	c.modified.Remove(n.path)
	for _, child := range n.children {
		c.markRemoved(child)
	}
}

// markModified marks the live element at p and its live descendants.
// Paths already classified as added or removed keep that classification.
func (c *Cache) markModified(p scenepath.Path) {
	if !c.added.Contains(p) && !c.removed.Contains(p) {
		c.modified.Add(p)
	}
	for _, name := range c.tree.Children(p) {
		cp, err := p.AppendChild(name)
		if err != nil {
			continue
		}
		c.markModified(cp)
	}
}

// FindNode reports whether the cache holds a node for p.
func (c *Cache) FindNode(p scenepath.Path) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p.IsEmpty() {
		return false
	}
	current := c.root
	for _, seg := range p.Segments() {
		child, ok := current.children[seg]
		if !ok {
			return false
		}
		current = child
	}
	return true
}

// Len returns the number of cached nodes, root excluded.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var count func(n *node) int
	count = func(n *node) int {
		total := len(n.children)
		for _, child := range n.children {
			total += count(child)
		}
		return total
	}
	return count(c.root)
}

// Added returns the paths classified as added since the last Clear, sorted.
func (c *Cache) Added() []scenepath.Path {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.added.Sorted()
}

// Removed returns the paths classified as removed since the last Clear, sorted.
func (c *Cache) Removed() []scenepath.Path {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removed.Sorted()
}

// Modified returns the paths classified as modified since the last Clear, sorted.
func (c *Cache) Modified() []scenepath.Path {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modified.Sorted()
}

// Clear empties the three result sets. The cached tree is kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

func (c *Cache) clearLocked() {
	c.added = scenepath.NewSet()
	c.removed = scenepath.NewSet()
	c.modified = scenepath.NewSet()
}

// Drain returns the three result sets and clears them in one step.
func (c *Cache) Drain() (added, removed, modified []scenepath.Path) {
	c.mu.Lock()
	defer c.mu.Unlock()

	added, removed, modified = c.added.Sorted(), c.removed.Sorted(), c.modified.Sorted()
	c.clearLocked()
	return added, removed, modified
}
