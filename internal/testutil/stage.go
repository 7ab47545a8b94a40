// Package testutil provides fixtures shared by the package tests.
package testutil

import (
	"sync"
	"testing"

	"github.com/NathanaelAtEGR/unf/notice"
	"github.com/NathanaelAtEGR/unf/pkg/scenepath"
	"github.com/NathanaelAtEGR/unf/stage"
)

// Path parses s and fails the test if it is not a valid path.
func Path(t testing.TB, s string) scenepath.Path {
	t.Helper()
	p, err := scenepath.Parse(s)
	if err != nil {
		t.Fatalf("parse path %q: %v", s, err)
	}
	return p
}

// Paths parses every s. It returns nil when called without arguments.
func Paths(t testing.TB, ss ...string) []scenepath.Path {
	t.Helper()
	if len(ss) == 0 {
		return nil
	}
	out := make([]scenepath.Path, len(ss))
	for i, s := range ss {
		out[i] = Path(t, s)
	}
	return out
}

// NewStage creates a stage holding prims (and their ancestors).
//
// Example:
//
//	st := testutil.NewStage(t, "/World/Geom", "/World/Lights")
func NewStage(t testing.TB, prims ...string) *stage.Stage {
	t.Helper()
	st := stage.New()
	for _, p := range prims {
		if err := st.DefinePrim(Path(t, p)); err != nil {
			t.Fatalf("define %s: %v", p, err)
		}
	}
	return st
}

// Recorder collects notices. Pass Listen to Broker.Subscribe.
type Recorder struct {
	mu      sync.Mutex
	notices []notice.Notice
}

// Listen records n.
func (r *Recorder) Listen(n notice.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

// Notices returns the recorded notices in delivery order.
func (r *Recorder) Notices() []notice.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notice.Notice(nil), r.notices...)
}

// Types returns the type identifiers of the recorded notices.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.notices))
	for i, n := range r.notices {
		out[i] = n.TypeID()
	}
	return out
}

// OfType returns the recorded notices with the given type identifier.
func (r *Recorder) OfType(typeID string) []notice.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notice.Notice
	for _, n := range r.notices {
		if n.TypeID() == typeID {
			out = append(out, n)
		}
	}
	return out
}

// Len returns the number of recorded notices.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notices)
}

// Reset forgets every recorded notice.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = nil
}
