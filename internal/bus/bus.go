// Package bus provides the in-process broadcast channel that keeps every
// cart consumer (HTTP handlers, the item-count badge, the Kafka fan-out)
// in sync after a mutation, regardless of which path performed it.
package bus

import (
	"log/slog"
	"sync"

	"github.com/mayuri-bharti/medical-shop-frontend-sub002/internal/domain"
	"github.com/mayuri-bharti/medical-shop-frontend-sub002/internal/normalize"
)

// Event is one cart-updated broadcast. Cart is nil when the triggering
// payload carried no recognizable cart; Count is nil when the item count is
// unknown (no cart and no explicit count). Subscribers must treat nil as
// "unknown", not "empty".
type Event struct {
	Cart  *domain.Cart
	Count *int
}

// Handler receives cart-updated events. Delivery is synchronous on the
// publishing goroutine, in subscription order.
type Handler func(Event)

// Bus broadcasts cart-updated events to subscribers. The zero value is not
// usable; construct with New.
type Bus struct {
	mu       sync.Mutex
	nextID   int
	handlers []subscription
	logger   *slog.Logger
}

type subscription struct {
	id      int
	handler Handler
}

// New creates an event bus. Handler panics are recovered and logged through
// the given logger.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger}
}

// Subscribe registers a handler and returns its unsubscribe function.
// Unsubscribing twice is harmless.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers = append(b.handlers, subscription{id: id, handler: h})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.handlers {
			if s.id == id {
				b.handlers = append(b.handlers[:i], b.handlers[i+1:]...)
				return
			}
		}
	}
}

// Publish normalizes the payload and broadcasts the result. An unrecognized
// payload still produces an event, with a nil cart and unknown count, so
// subscribers can decide how to degrade. Publish never fails.
func (b *Bus) Publish(payload any) {
	cart := normalize.Normalize(payload)
	var count *int
	if cart != nil {
		n := normalize.CountItems(cart)
		count = &n
	}
	b.broadcast(Event{Cart: cart, Count: count})
}

// PublishCount broadcasts a bare item count with no cart attached. Used when
// only the badge total is known, for example from a lightweight count
// endpoint.
func (b *Bus) PublishCount(count int) {
	b.broadcast(Event{Count: &count})
}

func (b *Bus) broadcast(ev Event) {
	b.mu.Lock()
	handlers := make([]subscription, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.Unlock()

	for _, s := range handlers {
		b.deliver(s, ev)
	}
}

// deliver isolates each handler so one panicking subscriber cannot stop the
// rest of the broadcast.
func (b *Bus) deliver(s subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("cart event handler panicked",
				slog.Int("subscription_id", s.id),
				slog.Any("panic", r),
			)
		}
	}()
	s.handler(ev)
}
