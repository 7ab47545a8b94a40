package broker

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/NathanaelAtEGR/unf/notice"
)

// merger holds the notices captured by one transaction, bucketed by type
// in the order each type was first seen.
type merger struct {
	id        string
	predicate Predicate
	order     []string
	buckets   map[string][]notice.Notice
}

func newMerger(predicate Predicate) *merger {
	return &merger{
		id:        uuid.NewString(),
		predicate: predicate,
		buckets:   make(map[string][]notice.Notice),
	}
}

// capture appends n to its bucket unless the predicate rejects it.
func (m *merger) capture(n notice.Notice) bool {
	if m.predicate != nil && !m.predicate(n) {
		return false
	}
	m.add(n.TypeID(), n)
	return true
}

func (m *merger) add(typeID string, notices ...notice.Notice) {
	if _, ok := m.buckets[typeID]; !ok {
		m.order = append(m.order, typeID)
	}
	m.buckets[typeID] = append(m.buckets[typeID], notices...)
}

// join moves every notice of child onto the matching bucket of m, keeping
// their relative order, and leaves child empty.
func (m *merger) join(child *merger) {
	for _, typeID := range child.order {
		m.add(typeID, child.buckets[typeID]...)
	}
	child.order = nil
	child.buckets = make(map[string][]notice.Notice)
}

// len returns the number of captured notices.
func (m *merger) len() int {
	total := 0
	for _, bucket := range m.buckets {
		total += len(bucket)
	}
	return total
}

// commit folds every bucket holding more than one mergeable notice into its
// first notice and returns what is left to send, bucket by bucket.
//
// The first notice is copied before folding; captured notices are never
// mutated. folds counts the notices absorbed per type.
func (m *merger) commit() (out []notice.Notice, folds map[string]int, err error) {
	folds = make(map[string]int)
	for _, typeID := range m.order {
		bucket := m.buckets[typeID]
		if len(bucket) < 2 || !bucket[0].Mergeable() {
			out = append(out, bucket...)
			continue
		}

		merged := bucket[0].Copy()
		for _, n := range bucket[1:] {
			if err := merged.Merge(n); err != nil {
				return nil, nil, fmt.Errorf("commit %s: %w", typeID, err)
			}
		}
		folds[typeID] = len(bucket) - 1
		out = append(out, merged)
	}
	return out, folds, nil
}
