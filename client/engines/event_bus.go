package engines

import "sync"

// EventHandler receives an event's name (without the namespace prefix) and
// its detail payload.
type EventHandler func(name string, detail any)

// subscription pairs a handler with the id used to remove it.
type subscription struct {
	id      uint64
	handler EventHandler
}

// EventBus is a typed event bus scoped to one grid element, dispatching
// namespaced events to subscribers in registration order within a task, with
// no reordering (spec.md §4.4, §5). It generalizes the teacher's
// NavigationEventDispatcher (per-type subscriber slice guarded by a
// sync.RWMutex, called outside the lock to avoid deadlocks) from a closed
// set of navigation events to the open, prefix-namespaced event set C11
// collaborators emit and consume.
type EventBus struct {
	mu          sync.RWMutex
	prefix      string
	subscribers map[string][]subscription
	nextID      uint64
}

// NewEventBus creates an EventBus recording prefix as the event namespace
// (e.g. "gridcore:"), reported by Prefix(). The prefix is not applied to the
// names passed to Subscribe and Dispatch, which match as given. An empty
// prefix is accepted, useful in tests.
func NewEventBus(prefix string) *EventBus {
	return &EventBus{
		prefix:      prefix,
		subscribers: make(map[string][]subscription),
	}
}

// Prefix returns the bus's configured namespace prefix.
func (eb *EventBus) Prefix() string { return eb.prefix }

// Subscribe registers handler for name and returns an unsubscribe callable.
func (eb *EventBus) Subscribe(name string, handler EventHandler) func() {
	eb.mu.Lock()
	id := eb.nextID
	eb.nextID++
	eb.subscribers[name] = append(eb.subscribers[name], subscription{id: id, handler: handler})
	eb.mu.Unlock()

	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()
		subs := eb.subscribers[name]
		for i, sub := range subs {
			if sub.id == id {
				eb.subscribers[name] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Dispatch fires name's handlers, in subscription order, with detail. Matches
// DOM CustomEvent dispatch semantics: bubbling is modeled as "every
// subscriber on this bus sees it", since the bus is already scoped to one
// grid element (spec.md §4.4).
func (eb *EventBus) Dispatch(name string, detail any) {
	eb.mu.RLock()
	subs := append([]subscription(nil), eb.subscribers[name]...)
	eb.mu.RUnlock()

	for _, sub := range subs {
		sub.handler(name, detail)
	}
}

// RegisterMany registers every handler in handlers and returns a single
// teardown callable that unsubscribes them all, draining in reverse
// registration order (spec.md §9 "Cyclic or back-references").
func (eb *EventBus) RegisterMany(handlers map[string]EventHandler) func() {
	teardowns := make([]func(), 0, len(handlers))
	for name, handler := range handlers {
		teardowns = append(teardowns, eb.Subscribe(name, handler))
	}
	return func() {
		for i := len(teardowns) - 1; i >= 0; i-- {
			teardowns[i]()
		}
	}
}
