// Package event fans cart-updated broadcasts out to Kafka so downstream
// consumers (analytics, abandoned-cart jobs) see the same stream the
// storefront's own views do.
package event

import (
	"context"
	"log/slog"
	"time"

	"github.com/mayuri-bharti/medical-shop-frontend-sub002/internal/bus"
	"github.com/mayuri-bharti/medical-shop-frontend-sub002/internal/domain"
	pkgkafka "github.com/mayuri-bharti/medical-shop-frontend-sub002/pkg/kafka"
)

// Kafka topic for cart domain events.
var TopicCartUpdated = pkgkafka.Topic("cart", "updated")

// Aggregate type constant.
const AggregateTypeCart = "cart"

// Source identifier for events originating from the storefront.
const SourceStorefront = "storefront"

const publishTimeout = 5 * time.Second

// publisher is the subset of the Kafka producer the forwarder needs.
type publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// CartUpdatedData is the payload for a cart.updated event. Count mirrors
// the bus event: nil means the count was unknown at publish time.
type CartUpdatedData struct {
	Cart  *domain.Cart `json:"cart"`
	Count *int         `json:"count"`
}

// Forwarder bridges the in-process cart event bus to Kafka. Publishing is
// best effort: a broker failure is logged and dropped, never surfaced to
// the request that triggered the broadcast.
type Forwarder struct {
	kafka  publisher
	logger *slog.Logger
}

// NewForwarder creates a Kafka forwarder.
func NewForwarder(kafka publisher, logger *slog.Logger) *Forwarder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Forwarder{kafka: kafka, logger: logger}
}

// Attach subscribes the forwarder to the bus and returns the unsubscribe
// function. Broadcasts that carried no recognizable cart are not forwarded.
func (f *Forwarder) Attach(b *bus.Bus) func() {
	return b.Subscribe(func(ev bus.Event) {
		if ev.Cart == nil {
			return
		}
		f.forward(ev)
	})
}

func (f *Forwarder) forward(ev bus.Event) {
	data := CartUpdatedData{Cart: ev.Cart, Count: ev.Count}

	event, err := pkgkafka.NewEvent(TopicCartUpdated, AggregateTypeCart, AggregateTypeCart, SourceStorefront, data)
	if err != nil {
		f.logger.Error("create cart.updated event", slog.Any("error", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := f.kafka.Publish(ctx, TopicCartUpdated, event); err != nil {
		f.logger.Warn("publish cart.updated event",
			slog.String("topic", TopicCartUpdated),
			slog.Any("error", err),
		)
	}
}
