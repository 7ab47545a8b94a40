package broker

// Dispatcher turns events of some source into notices and hands them to a
// broker. A broker registers its dispatchers when they are added and
// revokes them when they are replaced or the broker is released.
type Dispatcher interface {
	// Identifier names the dispatcher. Adding a dispatcher whose identifier
	// is already in use replaces the previous one.
	Identifier() string

	// Register starts listening to the source.
	Register()

	// Revoke stops listening to the source.
	Revoke()
}

// DispatcherFactory builds a dispatcher bound to b.
type DispatcherFactory func(b *Broker) Dispatcher

// AddDispatcher registers d with the broker, replacing (and revoking) any
// dispatcher with the same identifier.
func (b *Broker) AddDispatcher(d Dispatcher) {
	b.mu.Lock()
	prev := b.dispatchers[d.Identifier()]
	if prev == nil {
		b.dispatcherOrder = append(b.dispatcherOrder, d.Identifier())
	}
	b.dispatchers[d.Identifier()] = d
	b.mu.Unlock()

	if prev != nil {
		prev.Revoke()
	}
	d.Register()
	b.logger.Debug("dispatcher added", "stage", b.stage.Identity(), "dispatcher", d.Identifier())
}

// Dispatcher returns the dispatcher registered under id, or nil.
func (b *Broker) Dispatcher(id string) Dispatcher {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dispatchers[id]
}

// Dispatchers returns the identifiers of the registered dispatchers in the
// order they were first added.
func (b *Broker) Dispatchers() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.dispatcherOrder...)
}

// revokeDispatchers revokes and forgets every dispatcher.
func (b *Broker) revokeDispatchers() {
	b.mu.Lock()
	ds := make([]Dispatcher, 0, len(b.dispatcherOrder))
	for _, id := range b.dispatcherOrder {
		ds = append(ds, b.dispatchers[id])
	}
	b.dispatchers = make(map[string]Dispatcher)
	b.dispatcherOrder = nil
	b.mu.Unlock()

	for _, d := range ds {
		d.Revoke()
	}
}
