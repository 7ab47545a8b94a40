// Package dispatch turns stage edits into notices.
//
// StageDispatcher watches a stage.Stage and, for every change it reports,
// processes the matching notices through a broker. With a diff cache it
// also classifies resynced paths and sends the result as a
// notice.HierarchyChanged.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/NathanaelAtEGR/unf/broker"
	"github.com/NathanaelAtEGR/unf/diffcache"
	"github.com/NathanaelAtEGR/unf/internal/logger"
	"github.com/NathanaelAtEGR/unf/notice"
	"github.com/NathanaelAtEGR/unf/stage"
)

// Identifier names the default stage dispatcher. Adding another dispatcher
// under this identifier replaces it.
const Identifier = "StageDispatcher"

// Option configures a StageDispatcher.
type Option func(*StageDispatcher)

// WithDiffCache enables structural classification of resynced paths.
func WithDiffCache() Option {
	return func(d *StageDispatcher) {
		d.useCache = true
	}
}

// WithLogger sets the dispatcher's logger. Defaults to logger.L.
func WithLogger(l *slog.Logger) Option {
	return func(d *StageDispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// StageDispatcher forwards the changes of one stage to a broker.
type StageDispatcher struct {
	b        *broker.Broker
	st       *stage.Stage
	logger   *slog.Logger
	useCache bool
	cache    *diffcache.Cache

	mu     sync.Mutex
	cancel func()
}

// New creates a dispatcher for st that processes notices through b. It does
// nothing until registered.
func New(b *broker.Broker, st *stage.Stage, opts ...Option) *StageDispatcher {
	d := &StageDispatcher{b: b, st: st, logger: logger.L}
	for _, opt := range opts {
		opt(d)
	}
	if d.useCache {
		d.cache = diffcache.New(st, diffcache.WithLogger(d.logger))
	}
	return d
}

// Create returns the process-wide broker for st. A broker created by this
// call gets a StageDispatcher built with opts; an existing broker is
// returned unchanged.
func Create(st *stage.Stage, opts ...Option) (*broker.Broker, error) {
	return broker.Create(st, broker.WithDispatcher(func(b *broker.Broker) broker.Dispatcher {
		return New(b, st, opts...)
	}))
}

// Identifier implements broker.Dispatcher.
func (d *StageDispatcher) Identifier() string { return Identifier }

// Cache returns the dispatcher's diff cache, or nil without WithDiffCache.
func (d *StageDispatcher) Cache() *diffcache.Cache { return d.cache }

// Register starts watching the stage. Registering twice is a no-op.
func (d *StageDispatcher) Register() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		return
	}
	d.cancel = d.st.Watch(d.handle)
}

// Revoke stops watching the stage.
func (d *StageDispatcher) Revoke() {
	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// handle processes the notices describing change, in a fixed order.
func (d *StageDispatcher) handle(change stage.Change) {
	for _, n := range d.notices(change) {
		if err := d.b.Process(n); err != nil {
			level := slog.LevelError
			if errors.Is(err, broker.ErrStageExpired) {
				level = slog.LevelWarn
			}
			d.logger.Log(context.Background(), level, "process notice",
				"stage", d.st.Identity(), "type", n.TypeID(), "error", err)
		}
	}
}

func (d *StageDispatcher) notices(change stage.Change) []notice.Notice {
	var out []notice.Notice

	if len(change.Muted) > 0 || len(change.Unmuted) > 0 {
		out = append(out, notice.NewLayerMutingChanged(change.Muted, change.Unmuted))
	}

	if change.HasObjectChanges() {
		out = append(out, notice.NewObjectsChanged(change.Resynced, change.InfoOnly, change.ChangedFields))
	}

	if d.cache != nil && len(change.Resynced) > 0 {
		d.cache.Update(change.Resynced)
		added, removed, modified := d.cache.Drain()
		if hc := notice.NewHierarchyChanged(added, removed, modified); !hc.IsEmpty() {
			out = append(out, hc)
		}
	}

	if change.HasObjectChanges() || len(change.Muted) > 0 || len(change.Unmuted) > 0 {
		out = append(out, notice.NewContentsChanged())
	}

	if change.EditTargetChanged {
		out = append(out, notice.NewEditTargetChanged())
	}
	return out
}
