package engines

import "sync"

// ProviderRegistry is a one-slot-per-capability read-through registry for
// inter-plugin state (e.g. "state", "camera", "layout", "resize"). It
// generalizes the teacher's dragDropEngine, which composes exactly one
// instance per capability (Drag/Drop/Visualize) behind narrow interfaces;
// here the capability set is open-ended and plugin-contributed rather than
// fixed at three, so registration replaces fixed struct fields.
// spec.md §4.4.
type ProviderRegistry struct {
	mu        sync.RWMutex
	producers map[string]func() any
}

// NewProviderRegistry creates an empty ProviderRegistry.
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{producers: make(map[string]func() any)}
}

// Register sets or replaces the producer for name.
func (pr *ProviderRegistry) Register(name string, producer func() any) {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	pr.producers[name] = producer
}

// Unregister removes the producer for name, if any.
func (pr *ProviderRegistry) Unregister(name string) {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	delete(pr.producers, name)
}

// Get invokes the registered producer for name, so values are always fresh.
// It returns (nil, false) if name is not registered.
func (pr *ProviderRegistry) Get(name string) (any, bool) {
	pr.mu.RLock()
	producer, ok := pr.producers[name]
	pr.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return producer(), true
}

// Has reports whether name is currently registered.
func (pr *ProviderRegistry) Has(name string) bool {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	_, ok := pr.producers[name]
	return ok
}
