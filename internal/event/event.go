package event

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

const (
	maxInFlight    = 1024
	handlerTimeout = 10 * time.Second
)

// Event is anything that can be published on the bus.
type Event interface {
	Name() string
}

// Handler reacts to a single event.
type Handler func(ctx context.Context, e Event) error

// Bus is an in-memory publish/subscribe bus. Handlers run asynchronously on
// their own goroutines, so publishing never blocks the caller beyond the
// in-flight cap. Callers should Stop the bus on shutdown to drain handlers.
type Bus struct {
	inflight chan struct{}
	wg       sync.WaitGroup

	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewBus() *Bus {
	return &Bus{
		inflight: make(chan struct{}, maxInFlight),
		handlers: make(map[string][]Handler),
	}
}

// Subscribe registers a handler for all events published under name.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[name] = append(b.handlers[name], h)
}

// Publish delivers e to every handler subscribed to its name. Delivery is
// at-most-once and fire-and-forget: a failing or panicking handler is logged
// and dropped, never propagated to the publisher.
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, h := range b.handlers[e.Name()] {
		b.dispatch(ctx, h, e)
	}
}

func (b *Bus) dispatch(ctx context.Context, h Handler, e Event) {
	b.wg.Add(1)
	b.inflight <- struct{}{}

	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), handlerTimeout)
		defer func() {
			if r := recover(); r != nil {
				slog.ErrorContext(ctx, "event: handler panic",
					"event", e.Name(),
					"error", fmt.Errorf("%v, stack: %s", r, debug.Stack()),
				)
			}

			cancel()
			<-b.inflight
			b.wg.Done()
		}()

		if err := h(ctx, e); err != nil {
			slog.ErrorContext(ctx, "event: handle event failed",
				"event", e.Name(),
				"error", err,
			)
		}
	}()
}

// Stop blocks until all in-flight handlers have finished.
func (b *Bus) Stop() {
	b.wg.Wait()
}
