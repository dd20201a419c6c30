package pipeline

import (
	"errors"
	"sync"
)

// Handler reacts to a lifecycle event.
type Handler func(Event) error

// Bus delivers lifecycle events to subscribers synchronously, in
// subscription order.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewBus returns an empty bus.
func NewBus() *Bus { return &Bus{handlers: make(map[string][]Handler)} }

// Subscribe registers h for events named name. Nil handlers are ignored.
func (b *Bus) Subscribe(name string, h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// Publish runs every handler for e. A failing handler does not keep later
// ones from running; all failures are returned joined.
func (b *Bus) Publish(e Event) error {
	b.mu.RLock()
	hs := b.handlers[e.Name()]
	b.mu.RUnlock()

	var errs []error
	for _, h := range hs {
		if err := h(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
