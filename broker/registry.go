package broker

import (
	"sync"
)

// Registry keeps one broker per stage identity.
type Registry struct {
	mu      sync.Mutex
	brokers map[string]*Broker
	opts    []Option
}

// NewRegistry creates an empty registry. opts apply to every broker it
// creates.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		brokers: make(map[string]*Broker),
		opts:    opts,
	}
}

// Create returns the broker for st, creating it on first use. opts apply
// only when a new broker is created.
//
// Brokers whose stage has expired are pruned first.
func (r *Registry) Create(st Stage, opts ...Option) (*Broker, error) {
	if st == nil {
		return nil, ErrNilStage
	}

	r.mu.Lock()
	expired := r.pruneLocked()
	b, ok := r.brokers[st.Identity()]
	r.mu.Unlock()

	for _, e := range expired {
		e.logger.Info("pruned broker of expired stage", "stage", e.stage.Identity())
		e.release()
	}
	if ok {
		return b, nil
	}

	// Built outside the lock: dispatcher factories may call back into
	// the registry.
	b, err := New(st, append(append([]Option(nil), r.opts...), opts...)...)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if existing, ok := r.brokers[st.Identity()]; ok {
		r.mu.Unlock()
		b.release()
		return existing, nil
	}
	r.brokers[st.Identity()] = b
	r.mu.Unlock()
	return b, nil
}

// pruneLocked removes brokers of expired stages and returns them.
func (r *Registry) pruneLocked() []*Broker {
	var expired []*Broker
	for id, b := range r.brokers {
		if b.stage.Expired() {
			expired = append(expired, b)
			delete(r.brokers, id)
		}
	}
	return expired
}

// Release removes the broker for st and revokes its dispatchers. The
// released broker reports ErrStageExpired from then on. Release reports
// whether a broker was registered.
func (r *Registry) Release(st Stage) bool {
	if st == nil {
		return false
	}

	r.mu.Lock()
	b, ok := r.brokers[st.Identity()]
	delete(r.brokers, st.Identity())
	r.mu.Unlock()

	if ok {
		b.release()
	}
	return ok
}

// Len returns the number of registered brokers, expired ones included
// until the next Create prunes them.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.brokers)
}

var defaultRegistry = NewRegistry()

// Create returns the broker for st from the process-wide registry.
func Create(st Stage, opts ...Option) (*Broker, error) {
	return defaultRegistry.Create(st, opts...)
}

// Release removes the broker for st from the process-wide registry.
func Release(st Stage) bool {
	return defaultRegistry.Release(st)
}
