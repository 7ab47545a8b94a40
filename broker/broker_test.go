package broker

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NathanaelAtEGR/unf/notice"
	"github.com/NathanaelAtEGR/unf/pkg/scenepath"
	"github.com/NathanaelAtEGR/unf/stage"
)

const typeCount = "test.Count"

// countNotice is a producer-defined notice whose merge sums counts.
type countNotice struct {
	n         int
	mergeable bool
}

func (*countNotice) TypeID() string    { return typeCount }
func (c *countNotice) Mergeable() bool { return c.mergeable }
func (c *countNotice) Copy() notice.Notice {
	cp := *c
	return &cp
}

func (c *countNotice) Merge(other notice.Notice) error {
	o, ok := other.(*countNotice)
	if !ok {
		return fmt.Errorf("%w: %T", notice.ErrTypeMismatch, other)
	}
	c.n += o.n
	return nil
}

// impostor shares countNotice's type identifier without being one.
type impostor struct{}

func (impostor) TypeID() string            { return typeCount }
func (impostor) Mergeable() bool           { return true }
func (impostor) Copy() notice.Notice       { return impostor{} }
func (impostor) Merge(notice.Notice) error { return nil }

func mp(s string) scenepath.Path {
	return scenepath.MustParse(s)
}

func resynced(paths ...string) *notice.ObjectsChanged {
	var ps []scenepath.Path
	for _, p := range paths {
		ps = append(ps, mp(p))
	}
	return notice.NewObjectsChanged(ps, nil, nil)
}

// newBroker returns a standalone broker and a pointer to the notices it
// delivers.
func newBroker(t *testing.T, opts ...Option) (*Broker, *[]notice.Notice) {
	t.Helper()
	b, err := New(stage.New(), opts...)
	require.NoError(t, err)

	var got []notice.Notice
	cancel := b.Subscribe(func(n notice.Notice) { got = append(got, n) })
	t.Cleanup(cancel)
	return b, &got
}

func typeIDs(notices []notice.Notice) []string {
	out := make([]string, len(notices))
	for i, n := range notices {
		out[i] = n.TypeID()
	}
	return out
}

func TestProcess_IdleDeliversImmediately(t *testing.T) {
	b, got := newBroker(t)

	require.NoError(t, b.Process(notice.NewContentsChanged()))
	require.NoError(t, b.Process(notice.NewContentsChanged()))

	assert.Len(t, *got, 2)
	assert.False(t, b.IsInTransaction())
	assert.ErrorIs(t, b.Process(nil), ErrNilNotice)
}

func TestTransaction_DefersUntilEnd(t *testing.T) {
	b, got := newBroker(t)

	require.NoError(t, b.Begin(nil))
	assert.True(t, b.IsInTransaction())
	require.NoError(t, b.Process(resynced("/A")))
	require.NoError(t, b.Process(resynced("/B")))
	require.NoError(t, b.Process(resynced("/A")))
	assert.Empty(t, *got)

	require.NoError(t, b.End())

	require.Len(t, *got, 1)
	oc := (*got)[0].(*notice.ObjectsChanged)
	assert.Equal(t, []scenepath.Path{mp("/A"), mp("/B")}, oc.ResyncedPaths())
	assert.False(t, b.IsInTransaction())
}

func TestTransaction_TypesDeliveredInFirstSeenOrder(t *testing.T) {
	b, got := newBroker(t)

	require.NoError(t, b.Begin(nil))
	require.NoError(t, b.Process(notice.NewEditTargetChanged()))
	require.NoError(t, b.Process(resynced("/A")))
	require.NoError(t, b.Process(notice.NewLayerMutingChanged([]string{"L"}, nil)))
	require.NoError(t, b.Process(notice.NewEditTargetChanged()))
	require.NoError(t, b.Process(notice.NewLayerMutingChanged(nil, []string{"L"})))
	require.NoError(t, b.End())

	assert.Equal(t, []string{
		notice.TypeEditTargetChanged,
		notice.TypeObjectsChanged,
		notice.TypeLayerMutingChanged,
	}, typeIDs(*got))

	lm := (*got)[2].(*notice.LayerMutingChanged)
	assert.Empty(t, lm.MutedLayers())
	assert.Empty(t, lm.UnmutedLayers())
}

func TestTransaction_Nested(t *testing.T) {
	b, got := newBroker(t)

	require.NoError(t, b.Begin(nil))
	require.NoError(t, b.Process(resynced("/Foo")))

	require.NoError(t, b.Begin(nil))
	assert.Equal(t, 2, b.Depth())
	require.NoError(t, b.Process(resynced("/Bar")))
	require.NoError(t, b.Process(notice.NewContentsChanged()))
	require.NoError(t, b.End())

	assert.Empty(t, *got, "inner End hands notices to the outer transaction")
	assert.Equal(t, 1, b.Depth())

	require.NoError(t, b.Process(resynced("/Foo")))
	require.NoError(t, b.End())

	require.Len(t, *got, 2)
	oc := (*got)[0].(*notice.ObjectsChanged)
	assert.Equal(t, []scenepath.Path{mp("/Foo"), mp("/Bar")}, oc.ResyncedPaths())
	assert.Equal(t, notice.TypeContentsChanged, (*got)[1].TypeID())
}

func TestTransaction_NestedJoinKeepsOrder(t *testing.T) {
	b, got := newBroker(t)

	require.NoError(t, b.Begin(nil))
	require.NoError(t, b.Process(&countNotice{n: 1}))
	require.NoError(t, b.Begin(nil))
	require.NoError(t, b.Process(&countNotice{n: 2}))
	require.NoError(t, b.Begin(nil))
	require.NoError(t, b.Process(&countNotice{n: 3}))
	require.NoError(t, b.End())
	require.NoError(t, b.End())
	require.NoError(t, b.Process(&countNotice{n: 4}))
	require.NoError(t, b.End())

	var ns []int
	for _, n := range *got {
		ns = append(ns, n.(*countNotice).n)
	}
	assert.Equal(t, []int{1, 2, 3, 4}, ns)
}

func TestTransaction_NonMergeableSentUnmerged(t *testing.T) {
	b, got := newBroker(t)

	require.NoError(t, b.Begin(nil))
	require.NoError(t, b.Process(&countNotice{n: 1}))
	require.NoError(t, b.Process(&countNotice{n: 2}))
	require.NoError(t, b.End())

	require.Len(t, *got, 2)
	assert.Equal(t, 1, (*got)[0].(*countNotice).n)
	assert.Equal(t, 2, (*got)[1].(*countNotice).n)
}

func TestTransaction_MergeableFolded(t *testing.T) {
	b, got := newBroker(t)

	first := &countNotice{n: 1, mergeable: true}
	require.NoError(t, b.Begin(nil))
	require.NoError(t, b.Process(first))
	require.NoError(t, b.Process(&countNotice{n: 2, mergeable: true}))
	require.NoError(t, b.Process(&countNotice{n: 3, mergeable: true}))
	require.NoError(t, b.End())

	require.Len(t, *got, 1)
	assert.Equal(t, 6, (*got)[0].(*countNotice).n)
	assert.Equal(t, 1, first.n, "captured notice is not mutated")
}

func TestTransaction_Predicate(t *testing.T) {
	b, got := newBroker(t)

	onlyObjects := func(n notice.Notice) bool {
		return n.TypeID() == notice.TypeObjectsChanged
	}

	require.NoError(t, b.Begin(onlyObjects))
	require.NoError(t, b.Process(resynced("/A")))
	require.NoError(t, b.Process(notice.NewContentsChanged()))
	require.NoError(t, b.Process(notice.NewEditTargetChanged()))
	require.NoError(t, b.End())

	assert.Equal(t, []string{notice.TypeObjectsChanged}, typeIDs(*got))
}

func TestTransaction_PredicateAppliesToInnermostOnly(t *testing.T) {
	b, got := newBroker(t)
	rejectAll := func(notice.Notice) bool { return false }

	require.NoError(t, b.Begin(nil))
	require.NoError(t, b.Begin(rejectAll))
	require.NoError(t, b.Process(resynced("/Dropped")))
	require.NoError(t, b.End())
	require.NoError(t, b.Process(resynced("/Kept")))
	require.NoError(t, b.End())

	require.Len(t, *got, 1)
	assert.Equal(t, []scenepath.Path{mp("/Kept")}, (*got)[0].(*notice.ObjectsChanged).ResyncedPaths())
}

func TestTransaction_PredicatePanicCapturesNothing(t *testing.T) {
	b, got := newBroker(t)

	require.NoError(t, b.Begin(func(notice.Notice) bool { panic("boom") }))
	assert.PanicsWithValue(t, "boom", func() {
		_ = b.Process(notice.NewContentsChanged())
	})

	// The broker is still usable.
	assert.Equal(t, 1, b.Depth())
	require.NoError(t, b.End())
	assert.Empty(t, *got)
}

func TestEnd_WithoutTransactionIsNoop(t *testing.T) {
	b, got := newBroker(t)

	require.NoError(t, b.End())
	require.NoError(t, b.End())
	assert.Equal(t, 0, b.Depth())
	assert.Empty(t, *got)
}

func TestEnd_MergeMismatch(t *testing.T) {
	b, got := newBroker(t)

	require.NoError(t, b.Begin(nil))
	require.NoError(t, b.Process(&countNotice{n: 1, mergeable: true}))
	require.NoError(t, b.Process(impostor{}))
	require.NoError(t, b.Process(notice.NewContentsChanged()))

	err := b.End()
	assert.ErrorIs(t, err, notice.ErrTypeMismatch)
	assert.Empty(t, *got, "nothing is delivered when a commit fails")
	assert.False(t, b.IsInTransaction())
}

func TestAbort(t *testing.T) {
	b, got := newBroker(t)

	require.NoError(t, b.Begin(nil))
	require.NoError(t, b.Process(resynced("/Outer")))
	require.NoError(t, b.Begin(nil))
	require.NoError(t, b.Process(resynced("/Inner")))
	b.Abort()
	assert.Equal(t, 1, b.Depth())
	require.NoError(t, b.End())

	require.Len(t, *got, 1)
	assert.Equal(t, []scenepath.Path{mp("/Outer")}, (*got)[0].(*notice.ObjectsChanged).ResyncedPaths())

	b.Abort()
	assert.Equal(t, 0, b.Depth())
}

func TestSubscribe(t *testing.T) {
	b, err := New(stage.New())
	require.NoError(t, err)

	var all, objects []string
	cancelAll := b.Subscribe(func(n notice.Notice) { all = append(all, n.TypeID()) })
	cancelObjects := b.Subscribe(func(n notice.Notice) { objects = append(objects, n.TypeID()) },
		notice.TypeObjectsChanged)

	require.NoError(t, b.Process(notice.NewContentsChanged()))
	require.NoError(t, b.Process(resynced("/A")))

	assert.Equal(t, []string{notice.TypeContentsChanged, notice.TypeObjectsChanged}, all)
	assert.Equal(t, []string{notice.TypeObjectsChanged}, objects)

	cancelAll()
	cancelAll()
	require.NoError(t, b.Process(resynced("/B")))
	assert.Len(t, all, 2)
	assert.Len(t, objects, 2)
	cancelObjects()
}

func TestSubscribe_ListenerMayReenter(t *testing.T) {
	b, err := New(stage.New())
	require.NoError(t, err)

	var got []string
	b.Subscribe(func(n notice.Notice) {
		got = append(got, n.TypeID())
		if n.TypeID() == notice.TypeContentsChanged {
			require.NoError(t, b.Process(notice.NewEditTargetChanged()))
		}
	})

	require.NoError(t, WithTransaction(b, nil, func() error {
		return b.Process(notice.NewContentsChanged())
	}))

	assert.Equal(t, []string{notice.TypeContentsChanged, notice.TypeEditTargetChanged}, got)
}

func TestExpiredStage(t *testing.T) {
	st := stage.New()
	b, got := func() (*Broker, *[]notice.Notice) {
		b, err := New(st)
		require.NoError(t, err)
		var got []notice.Notice
		b.Subscribe(func(n notice.Notice) { got = append(got, n) })
		return b, &got
	}()

	require.NoError(t, b.Begin(nil))
	require.NoError(t, b.Begin(nil))
	require.NoError(t, b.Process(notice.NewContentsChanged()))

	st.Close()

	assert.ErrorIs(t, b.Process(notice.NewContentsChanged()), ErrStageExpired)
	assert.ErrorIs(t, b.Begin(nil), ErrStageExpired)
	assert.ErrorIs(t, b.End(), ErrStageExpired)
	assert.Equal(t, 0, b.Depth(), "End drops every transaction of an expired stage")
	assert.NoError(t, b.End())
	assert.Empty(t, *got)

	_, err := New(st)
	assert.ErrorIs(t, err, ErrStageExpired)
	_, err = New(nil)
	assert.ErrorIs(t, err, ErrNilStage)
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	b, _ := newBroker(t, WithLogger(l))

	require.NoError(t, b.Begin(nil))
	require.NoError(t, b.Process(notice.NewContentsChanged()))
	require.NoError(t, b.End())

	assert.Contains(t, buf.String(), "transaction begun")
	assert.Contains(t, buf.String(), "transaction committed")
	assert.Contains(t, buf.String(), "sent=1")
}

func TestWithTransaction(t *testing.T) {
	t.Run("delivers on success", func(t *testing.T) {
		b, got := newBroker(t)
		err := WithTransaction(b, nil, func() error {
			return b.Process(notice.NewContentsChanged())
		})
		require.NoError(t, err)
		assert.Len(t, *got, 1)
	})

	t.Run("ends on error", func(t *testing.T) {
		b, got := newBroker(t)
		boom := errors.New("boom")
		err := WithTransaction(b, nil, func() error {
			require.NoError(t, b.Process(notice.NewContentsChanged()))
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 0, b.Depth())
		assert.Len(t, *got, 1)
	})

	t.Run("ends on panic", func(t *testing.T) {
		b, got := newBroker(t)
		assert.Panics(t, func() {
			_ = WithTransaction(b, nil, func() error {
				require.NoError(t, b.Process(notice.NewContentsChanged()))
				panic("boom")
			})
		})
		assert.Equal(t, 0, b.Depth())
		assert.Len(t, *got, 1)
	})

	t.Run("reports end failure", func(t *testing.T) {
		b, _ := newBroker(t)
		err := WithTransaction(b, nil, func() error {
			require.NoError(t, b.Process(&countNotice{mergeable: true}))
			return b.Process(impostor{})
		})
		assert.ErrorIs(t, err, notice.ErrTypeMismatch)
	})
}

func TestTransactionHandle(t *testing.T) {
	b, got := newBroker(t)

	tx, err := NewTransaction(b, nil)
	require.NoError(t, err)
	assert.Same(t, b, tx.Broker())
	require.NoError(t, b.Process(notice.NewContentsChanged()))
	require.NoError(t, tx.Close())
	assert.ErrorIs(t, tx.Close(), ErrTransactionClosed)
	assert.ErrorIs(t, tx.Discard(), ErrTransactionClosed)
	assert.Len(t, *got, 1)

	tx, err = NewTransaction(b, nil)
	require.NoError(t, err)
	require.NoError(t, b.Process(notice.NewContentsChanged()))
	require.NoError(t, tx.Discard())
	assert.Len(t, *got, 1, "discarded transaction delivers nothing")
	assert.False(t, b.IsInTransaction())
}

func TestNewStageTransaction(t *testing.T) {
	st := stage.New()
	t.Cleanup(func() { Release(st) })

	tx, err := NewStageTransaction(st, nil)
	require.NoError(t, err)

	b, err := Create(st)
	require.NoError(t, err)
	assert.Same(t, b, tx.Broker())
	assert.True(t, b.IsInTransaction())
	require.NoError(t, tx.Close())
	assert.False(t, b.IsInTransaction())
}
