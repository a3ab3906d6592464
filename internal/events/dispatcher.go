package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"limitguard/internal/domain"
)

// Handler consumes one event. Handlers must be idempotent: delivery is at-least-once.
type Handler func(ctx context.Context, event domain.Event) error

// Dispatcher routes decoded events to the handlers registered for their name.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[domain.EventName][]Handler
}

// NewDispatcher creates a Dispatcher with no handlers.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[domain.EventName][]Handler)}
}

// Register subscribes h to events named name.
func (d *Dispatcher) Register(name domain.EventName, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = append(d.handlers[name], h)
}

// HasHandlers reports whether any handler listens for name.
func (d *Dispatcher) HasHandlers(name domain.EventName) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[name]) > 0
}

// Dispatch runs every handler for the event in registration order. All
// handlers run even if one fails; their errors are joined.
func (d *Dispatcher) Dispatch(ctx context.Context, event domain.Event) error {
	d.mu.RLock()
	hs := append([]Handler(nil), d.handlers[event.Name()]...)
	d.mu.RUnlock()

	var errs []error
	for _, h := range hs {
		if err := h(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("%s handler: %w", event.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// DispatchRaw decodes an envelope and dispatches it.
func (d *Dispatcher) DispatchRaw(ctx context.Context, data []byte) error {
	_, event, err := Decode(data)
	if err != nil {
		return err
	}
	return d.Dispatch(ctx, event)
}
