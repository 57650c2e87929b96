package bus

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mayuri-bharti/medical-shop-frontend-sub002/internal/domain"
)

func newTestBus() *Bus {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func strptr(s string) *string { return &s }

func TestPublish_DeliversNormalizedCart(t *testing.T) {
	b := newTestBus()

	var got Event
	b.Subscribe(func(ev Event) { got = ev })

	b.Publish([]byte(`{"items":[{"itemType":"product","productId":"p1","quantity":3,"price":100}]}`))

	require.NotNil(t, got.Cart)
	assert.Equal(t, 300.0, got.Cart.Subtotal)
	require.NotNil(t, got.Count)
	assert.Equal(t, 3, *got.Count)
}

func TestPublish_UnrecognizedPayload(t *testing.T) {
	b := newTestBus()

	var got Event
	called := false
	b.Subscribe(func(ev Event) { got = ev; called = true })

	b.Publish([]byte(`{"message":"ok"}`))

	assert.True(t, called, "event must fire even when nothing normalizes")
	assert.Nil(t, got.Cart)
	assert.Nil(t, got.Count)
}

func TestPublishCount(t *testing.T) {
	b := newTestBus()

	var got Event
	b.Subscribe(func(ev Event) { got = ev })

	b.PublishCount(7)

	assert.Nil(t, got.Cart)
	require.NotNil(t, got.Count)
	assert.Equal(t, 7, *got.Count)
}

func TestSubscribe_OrderAndUnsubscribe(t *testing.T) {
	b := newTestBus()

	var order []string
	unsubA := b.Subscribe(func(Event) { order = append(order, "a") })
	b.Subscribe(func(Event) { order = append(order, "b") })

	b.PublishCount(1)
	assert.Equal(t, []string{"a", "b"}, order)

	unsubA()
	b.PublishCount(2)
	assert.Equal(t, []string{"a", "b", "b"}, order)

	// Second unsubscribe is a no-op.
	unsubA()
	b.PublishCount(3)
	assert.Equal(t, []string{"a", "b", "b", "b"}, order)
}

func TestPublish_PanickingHandlerDoesNotStopOthers(t *testing.T) {
	b := newTestBus()

	b.Subscribe(func(Event) { panic("boom") })

	delivered := false
	b.Subscribe(func(Event) { delivered = true })

	assert.NotPanics(t, func() {
		b.Publish(&domain.Cart{Items: []domain.CartItem{
			{ItemType: domain.ItemTypeProduct, ProductID: strptr("p1"), Quantity: 1, Price: 10},
		}})
	})
	assert.True(t, delivered)
}

func TestPublish_TypedCart(t *testing.T) {
	b := newTestBus()

	var got Event
	b.Subscribe(func(ev Event) { got = ev })

	b.Publish(&domain.Cart{Items: []domain.CartItem{
		{ItemType: domain.ItemTypeMedicine, MedicineID: strptr("m1"), Quantity: 2, Price: 250},
	}})

	require.NotNil(t, got.Cart)
	assert.Equal(t, 500.0, got.Cart.Subtotal)
	assert.Equal(t, 0.0, got.Cart.DeliveryFee)
	require.NotNil(t, got.Count)
	assert.Equal(t, 2, *got.Count)
}
