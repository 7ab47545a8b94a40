package broker

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/NathanaelAtEGR/unf/internal/logger"
	"github.com/NathanaelAtEGR/unf/notice"
)

// Stage is the document a broker is bound to.
type Stage interface {
	// Identity uniquely names the stage for the lifetime of the process.
	Identity() string

	// Expired reports whether the stage no longer exists.
	Expired() bool
}

// Predicate decides whether a notice is captured by a transaction. A notice
// it rejects is dropped: it is neither deferred nor delivered.
type Predicate func(n notice.Notice) bool

// Listener receives delivered notices.
type Listener func(n notice.Notice)

// Option configures a Broker when it is created.
type Option func(*Broker)

// WithLogger sets the broker's logger. Defaults to logger.L.
func WithLogger(l *slog.Logger) Option {
	return func(b *Broker) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithDispatcher adds the dispatcher built by f once the broker exists.
func WithDispatcher(f DispatcherFactory) Option {
	return func(b *Broker) {
		if f != nil {
			b.factories = append(b.factories, f)
		}
	}
}

type subscription struct {
	listener Listener
	types    map[string]struct{} // empty means every type
}

func (s subscription) wants(typeID string) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[typeID]
	return ok
}

type delivery struct {
	listener Listener
	notice   notice.Notice
}

// Broker batches the notices of one stage.
//
// The broker is idle while its transaction stack is empty; Process then
// delivers immediately. Begin pushes a transaction, End pops one. Only the
// outermost End merges and delivers.
type Broker struct {
	mu        sync.Mutex
	stage     Stage
	stack     []*merger
	released  bool
	logger    *slog.Logger
	factories []DispatcherFactory

	subscribers map[int]subscription
	nextSubID   int

	dispatchers     map[string]Dispatcher
	dispatcherOrder []string
}

// New creates a broker for st. Most callers should use Create, which keeps
// one broker per stage.
func New(st Stage, opts ...Option) (*Broker, error) {
	if st == nil {
		return nil, ErrNilStage
	}
	if st.Expired() {
		return nil, ErrStageExpired
	}

	b := &Broker{
		stage:       st,
		logger:      logger.L,
		subscribers: make(map[int]subscription),
		dispatchers: make(map[string]Dispatcher),
	}
	for _, opt := range opts {
		opt(b)
	}
	for _, f := range b.factories {
		if d := f(b); d != nil {
			b.AddDispatcher(d)
		}
	}
	return b, nil
}

// Stage returns the stage the broker is bound to.
func (b *Broker) Stage() Stage {
	return b.stage
}

// checkLocked reports ErrStageExpired once the stage is gone.
func (b *Broker) checkLocked() error {
	if b.released || b.stage.Expired() {
		return ErrStageExpired
	}
	return nil
}

// IsInTransaction reports whether at least one transaction is open.
func (b *Broker) IsInTransaction() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.stack) > 0
}

// Depth returns the number of open transactions.
func (b *Broker) Depth() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.stack)
}

// Subscribe registers listener for delivered notices. With no typeIDs the
// listener receives every notice. Listeners are called in subscription
// order. The returned function cancels the subscription.
func (b *Broker) Subscribe(listener Listener, typeIDs ...string) (cancel func()) {
	sub := subscription{listener: listener}
	if len(typeIDs) > 0 {
		sub.types = make(map[string]struct{}, len(typeIDs))
		for _, id := range typeIDs {
			sub.types[id] = struct{}{}
		}
	}

	b.mu.Lock()
	id := b.nextSubID
	b.nextSubID++
	b.subscribers[id] = sub
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, id)
			b.mu.Unlock()
		})
	}
}

// Process delivers n, or captures it in the innermost open transaction.
//
// If the innermost transaction has a predicate that rejects n, n is
// dropped. A panicking predicate propagates to the caller with nothing
// captured.
func (b *Broker) Process(n notice.Notice) error {
	if n == nil {
		return ErrNilNotice
	}

	deliveries, err := b.route(n)
	if err != nil {
		return err
	}
	deliver(deliveries)
	return nil
}

func (b *Broker) route(n notice.Notice) ([]delivery, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkLocked(); err != nil {
		return nil, err
	}

	ctx := context.Background()
	if len(b.stack) == 0 {
		recordProcessed(ctx, n.TypeID(), dispositionSent)
		recordSent(ctx, n.TypeID())
		return b.deliveriesLocked([]notice.Notice{n}), nil
	}

	top := b.stack[len(b.stack)-1]
	if !top.capture(n) {
		recordProcessed(ctx, n.TypeID(), dispositionDiscarded)
		b.logger.Debug("notice discarded by predicate",
			"stage", b.stage.Identity(), "transaction", top.id, "type", n.TypeID())
		return nil, nil
	}
	recordProcessed(ctx, n.TypeID(), dispositionCaptured)
	return nil, nil
}

// Begin opens a transaction. A nil predicate captures every notice.
func (b *Broker) Begin(predicate Predicate) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkLocked(); err != nil {
		return err
	}

	m := newMerger(predicate)
	b.stack = append(b.stack, m)
	recordTransaction(context.Background(), eventBegin)
	b.logger.Debug("transaction begun",
		"stage", b.stage.Identity(), "transaction", m.id, "depth", len(b.stack))
	return nil
}

// End closes the innermost transaction.
//
// When it was the outermost one, its captured notices are merged and
// delivered. Otherwise they are handed to the enclosing transaction. End
// with no open transaction is a no-op.
//
// If the stage has expired, every open transaction is dropped and End
// returns ErrStageExpired. If two notices sharing a type identifier cannot
// be merged, nothing is delivered and the error wraps
// notice.ErrTypeMismatch.
func (b *Broker) End() error {
	deliveries, err := b.end()
	if err != nil {
		return err
	}
	deliver(deliveries)
	return nil
}

func (b *Broker) end() ([]delivery, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.stack) == 0 {
		return nil, nil
	}

	ctx := context.Background()
	if err := b.checkLocked(); err != nil {
		b.logger.Info("dropping transactions of expired stage",
			"stage", b.stage.Identity(), "depth", len(b.stack))
		b.stack = nil
		return nil, err
	}

	m := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	recordTransaction(ctx, eventEnd)

	if len(b.stack) > 0 {
		parent := b.stack[len(b.stack)-1]
		b.logger.Debug("transaction joined",
			"stage", b.stage.Identity(), "transaction", m.id, "into", parent.id, "notices", m.len())
		parent.join(m)
		return nil, nil
	}

	captured := m.len()
	notices, folds, err := m.commit()
	if err != nil {
		b.logger.Error("transaction commit failed",
			"stage", b.stage.Identity(), "transaction", m.id, "error", err)
		return nil, err
	}
	for typeID, count := range folds {
		recordFolds(ctx, typeID, count)
	}
	for _, n := range notices {
		recordSent(ctx, n.TypeID())
	}
	b.logger.Debug("transaction committed",
		"stage", b.stage.Identity(), "transaction", m.id, "captured", captured, "sent", len(notices))

	return b.deliveriesLocked(notices), nil
}

// Abort closes the innermost transaction and drops its captured notices
// without delivering them. Abort with no open transaction is a no-op.
func (b *Broker) Abort() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.stack) == 0 {
		return
	}
	m := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	recordTransaction(context.Background(), eventAbort)
	b.logger.Debug("transaction aborted",
		"stage", b.stage.Identity(), "transaction", m.id, "dropped", m.len(), "depth", len(b.stack))
}

// deliveriesLocked pairs each notice with the listeners that want it.
// Listeners are resolved under the lock and called after it is released.
func (b *Broker) deliveriesLocked(notices []notice.Notice) []delivery {
	if len(b.subscribers) == 0 || len(notices) == 0 {
		return nil
	}

	ids := make([]int, 0, len(b.subscribers))
	for id := range b.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var out []delivery
	for _, n := range notices {
		for _, id := range ids {
			sub := b.subscribers[id]
			if sub.wants(n.TypeID()) {
				out = append(out, delivery{listener: sub.listener, notice: n})
			}
		}
	}
	return out
}

func deliver(deliveries []delivery) {
	for _, d := range deliveries {
		d.listener(d.notice)
	}
}

// release marks the broker unusable, drops any open transactions and
// revokes its dispatchers.
func (b *Broker) release() {
	b.mu.Lock()
	b.released = true
	b.stack = nil
	b.mu.Unlock()

	b.revokeDispatchers()
}
