// Package eventbus provides an in-process pub/sub bus for UI events.
// Components publish after state changes; subscribers (sessions, the log
// consumer) process them asynchronously on a single consumer goroutine.
package eventbus

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/matthewbaird/entityui/internal/event"
	"github.com/matthewbaird/entityui/internal/logging"
)

// Handler processes an event. Implementations must be safe for concurrent
// calls from different goroutines.
type Handler interface {
	HandleEvent(ctx context.Context, evt event.Event) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt event.Event) error

func (f HandlerFunc) HandleEvent(ctx context.Context, evt event.Event) error {
	return f(ctx, evt)
}

// Bus is a simple in-process event bus. Events are published to a buffered
// channel and dispatched to all subscribers in a single consumer goroutine,
// so handlers see events in publish order.
type Bus struct {
	log logrus.FieldLogger

	mu          sync.RWMutex
	subscribers map[int]namedHandler
	nextID      int
	closed      bool

	events chan event.Event
	done   chan struct{}
}

type namedHandler struct {
	name    string
	handler Handler
}

// New creates a new Bus with the given channel buffer size.
func New(bufSize int, log logrus.FieldLogger) *Bus {
	if bufSize < 1 {
		bufSize = 256
	}
	return &Bus{
		log:         logging.OrDiscard(log).WithField("component", "eventbus"),
		subscribers: make(map[int]namedHandler),
		events:      make(chan event.Event, bufSize),
		done:        make(chan struct{}),
	}
}

// Subscribe registers a named handler and returns a func that removes it.
// Subscriptions may change while the bus runs.
func (b *Bus) Subscribe(name string, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subscribers[id] = namedHandler{name: name, handler: h}
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subscribers, id)
	}
}

// Publish sends an event to the bus. Non-blocking: if the buffer is full or
// the bus is stopped the event is dropped and a warning is logged.
func (b *Bus) Publish(_ context.Context, evt event.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		b.log.WithField("event", evt.Type).Warn("bus stopped, dropping event")
		return
	}
	select {
	case b.events <- evt:
	default:
		b.log.WithFields(logrus.Fields{"event": evt.Type, "id": evt.ID}).Warn("buffer full, dropping event")
	}
}

// Start begins the consumer goroutine. It processes events until the
// context is cancelled or Stop is called.
func (b *Bus) Start(ctx context.Context) {
	go func() {
		defer close(b.done)
		for {
			select {
			case evt, ok := <-b.events:
				if !ok {
					return
				}
				b.dispatch(ctx, evt)
			case <-ctx.Done():
				// Drain remaining events before exiting.
				for {
					select {
					case evt, ok := <-b.events:
						if !ok {
							return
						}
						b.dispatch(ctx, evt)
					default:
						return
					}
				}
			}
		}
	}()
}

// Stop closes the bus and waits for the consumer goroutine to finish.
func (b *Bus) Stop() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		<-b.done
		return
	}
	b.closed = true
	close(b.events)
	b.mu.Unlock()
	<-b.done
}

func (b *Bus) dispatch(ctx context.Context, evt event.Event) {
	b.mu.RLock()
	subs := make([]namedHandler, 0, len(b.subscribers))
	for id := 0; id < b.nextID; id++ {
		if s, ok := b.subscribers[id]; ok {
			subs = append(subs, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.handler.HandleEvent(ctx, evt); err != nil {
			b.log.WithError(err).WithFields(logrus.Fields{"handler": s.name, "event": evt.Type}).Warn("handler error")
		}
	}
}
