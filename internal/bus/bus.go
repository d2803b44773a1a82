package bus

import (
	"sync"

	"github.com/guubot/guubot/internal/logging"
	"github.com/guubot/guubot/internal/metrics"
)

// Handler consumes a published payload. Handlers run synchronously on the
// publisher's goroutine, in registration order.
type Handler func(payload any)

// Bus is a minimal in-process publish/subscribe fan-out. Delivery is
// synchronous and not replayed: a subscriber registered after an event was
// published never sees it, and a panicking handler does not stop delivery to
// the handlers after it.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
	}
}

// Subscribe registers a handler for a topic. Registration order is delivery
// order.
func (b *Bus) Subscribe(topic string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], h)
}

// Publish delivers payload to every handler subscribed to topic. Publishing to
// a topic without subscribers is a no-op.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[topic]))
	copy(handlers, b.handlers[topic])
	b.mu.RUnlock()

	metrics.EventsPublishedTotal.WithLabelValues(topic).Inc()

	for _, h := range handlers {
		b.invoke(topic, h, payload)
	}
}

func (b *Bus) invoke(topic string, h Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			logging.WithModule("bus").Error().
				Str("topic", topic).
				Interface("panic", r).
				Msg("event handler panicked")
		}
	}()
	h(payload)
}
