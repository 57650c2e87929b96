package checkout

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mayuri-bharti/medical-shop-frontend-sub002/internal/domain"
	apperrors "github.com/mayuri-bharti/medical-shop-frontend-sub002/pkg/errors"
)

func strptr(s string) *string { return &s }

func testCart(lines ...domain.CartItem) *domain.Cart {
	cart := &domain.Cart{Items: lines}
	cart.RecomputeTotals()
	return cart
}

func productLine(id string, qty int, price float64) domain.CartItem {
	return domain.CartItem{ItemType: domain.ItemTypeProduct, ProductID: strptr(id), Quantity: qty, Price: price}
}

func medicineLine(id string, qty int, price float64) domain.CartItem {
	return domain.CartItem{ItemType: domain.ItemTypeMedicine, MedicineID: strptr(id), Quantity: qty, Price: price}
}

func key(itemType, id string) domain.ItemKey {
	return domain.ItemKey{ItemType: itemType, ID: id}
}

// ---------------------------------------------------------------------------
// Reconcile
// ---------------------------------------------------------------------------

func TestReconcile_EmptyCart(t *testing.T) {
	prev := Selection{key("product", "p1"): {}}
	sel := Reconcile(prev, testCart())
	assert.Empty(t, sel)
}

func TestReconcile_FirstVisitSelectsAll(t *testing.T) {
	cart := testCart(productLine("p1", 1, 10), medicineLine("m1", 1, 20))
	sel := Reconcile(Selection{}, cart)
	assert.Len(t, sel, 2)
	assert.True(t, sel.Contains(key("product", "p1")))
	assert.True(t, sel.Contains(key("medicine", "m1")))
}

func TestReconcile_IntersectsWithCart(t *testing.T) {
	cart := testCart(productLine("p1", 1, 10), productLine("p2", 1, 10))
	prev := Selection{
		key("product", "p1"): {},
		key("product", "gone"): {},
	}

	sel := Reconcile(prev, cart)
	assert.Len(t, sel, 1)
	assert.True(t, sel.Contains(key("product", "p1")))
}

func TestReconcile_EmptyIntersectionSelectsAll(t *testing.T) {
	cart := testCart(productLine("p1", 1, 10))
	prev := Selection{key("product", "gone"): {}}

	sel := Reconcile(prev, cart)
	assert.Len(t, sel, 1)
	assert.True(t, sel.Contains(key("product", "p1")))
}

func TestSelection_KeysAreSortedAndStable(t *testing.T) {
	sel := Selection{
		key("product", "b"):  {},
		key("medicine", "a"): {},
		key("product", "a"):  {},
	}
	assert.Equal(t, []string{"medicine:a", "product:a", "product:b"}, sel.Keys())

	// Round trip through the wire form, dropping garbage.
	restored := FromKeys(append(sel.Keys(), "not-a-key", "widget:1"))
	assert.Equal(t, sel, restored)
}

// ---------------------------------------------------------------------------
// Summarize
// ---------------------------------------------------------------------------

func TestSummarize_FullSelectionMatchesCart(t *testing.T) {
	cart := testCart(productLine("p1", 5, 100))
	summary := Summarize(cart, SelectAll(cart))

	assert.Equal(t, cart.Subtotal, summary.Subtotal)
	assert.Equal(t, cart.DeliveryFee, summary.DeliveryFee)
	assert.Equal(t, cart.Taxes, summary.Taxes)
	assert.Equal(t, cart.Total, summary.Total)
}

func TestSummarize_PartialSelectionProratesTaxes(t *testing.T) {
	cart := testCart(productLine("p1", 1, 300), productLine("p2", 1, 100))
	// Cart: subtotal 400, taxes 72.

	sel := Selection{key("product", "p2"): {}}
	summary := Summarize(cart, sel)

	assert.Equal(t, 100.0, summary.Subtotal)
	assert.Equal(t, 18.0, summary.Taxes, "quarter of the cart's 72")
	assert.Equal(t, 50.0, summary.DeliveryFee)
	assert.Equal(t, 168.0, summary.Total)
}

func TestSummarize_FeeThresholdOnSelectedSubtotal(t *testing.T) {
	cart := testCart(productLine("p1", 1, 600), productLine("p2", 1, 100))

	full := Summarize(cart, SelectAll(cart))
	assert.Equal(t, 0.0, full.DeliveryFee)

	onlyCheap := Summarize(cart, Selection{key("product", "p2"): {}})
	assert.Equal(t, 50.0, onlyCheap.DeliveryFee)
}

func TestSummarize_EmptySelection(t *testing.T) {
	cart := testCart(productLine("p1", 1, 100))
	summary := Summarize(cart, Selection{})

	assert.Empty(t, summary.Items)
	assert.Equal(t, 0.0, summary.Subtotal)
	assert.Equal(t, 0.0, summary.DeliveryFee, "no fee on an empty selection")
	assert.Equal(t, 0.0, summary.Taxes)
	assert.Equal(t, 0.0, summary.Total)
}

func TestSummarize_PreservesCartOrder(t *testing.T) {
	cart := testCart(productLine("p1", 1, 10), medicineLine("m1", 1, 20), productLine("p2", 1, 30))
	sel := Selection{
		key("product", "p2"):  {},
		key("product", "p1"):  {},
		key("medicine", "m1"): {},
	}

	summary := Summarize(cart, sel)
	require.Len(t, summary.Items, 3)
	assert.Equal(t, "p1", *summary.Items[0].ProductID)
	assert.Equal(t, "m1", *summary.Items[1].MedicineID)
	assert.Equal(t, "p2", *summary.Items[2].ProductID)
}

// ---------------------------------------------------------------------------
// SelectionStore + Service
// ---------------------------------------------------------------------------

func newTestService(t *testing.T) (*Service, *SelectionStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	store := NewSelectionStore(client, 30*time.Minute)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, logger), store
}

func TestSelectionStore_RoundTrip(t *testing.T) {
	_, store := newTestService(t)
	ctx := context.Background()

	sel := Selection{key("product", "p1"): {}, key("medicine", "m1"): {}}
	require.NoError(t, store.Save(ctx, "owner-1", sel))

	got, err := store.Load(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, sel, got)
}

func TestSelectionStore_MissingIsEmpty(t *testing.T) {
	_, store := newTestService(t)

	got, err := store.Load(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestService_View_PersistsReconciledSelection(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	cart := testCart(productLine("p1", 1, 100), productLine("p2", 1, 200))

	sel, summary := svc.View(ctx, "owner-1", cart)
	assert.Len(t, sel, 2)
	assert.Equal(t, 300.0, summary.Subtotal)

	stored, err := store.Load(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, sel, stored)
}

func TestService_Select_DropsUnknownKeys(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	cart := testCart(productLine("p1", 1, 100), productLine("p2", 1, 200))

	sel, summary := svc.Select(ctx, "owner-1", cart, []string{"product:p2", "product:ghost"})
	assert.Len(t, sel, 1)
	assert.True(t, sel.Contains(key("product", "p2")))
	assert.Equal(t, 200.0, summary.Subtotal)
}

func TestService_Begin_Success(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	cart := testCart(productLine("p1", 2, 300))

	summary, err := svc.Begin(ctx, "owner-1", cart)
	require.NoError(t, err)
	require.Len(t, summary.Items, 1)
	assert.Equal(t, 600.0, summary.Subtotal)
	assert.Equal(t, 0.0, summary.DeliveryFee)
}

func TestService_Begin_EmptyCartRejected(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.Begin(ctx, "owner-1", testCart())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	// Rejection writes nothing.
	got, err := store.Load(ctx, "owner-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestService_Begin_AfterExplicitEmptySelection(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	cart := testCart(productLine("p1", 1, 100))

	// Deselecting everything leaves an empty stored selection; reconciling
	// it selects the whole cart again, so checkout proceeds.
	sel, _ := svc.Select(ctx, "owner-1", cart, nil)
	assert.Empty(t, sel)

	summary, err := svc.Begin(ctx, "owner-1", cart)
	require.NoError(t, err)
	assert.Len(t, summary.Items, 1)
}

func TestService_SelectionSurvivesCartReorder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cart := testCart(productLine("p1", 1, 100), productLine("p2", 1, 200))
	svc.Select(ctx, "owner-1", cart, []string{"product:p1"})

	reordered := testCart(productLine("p2", 1, 200), productLine("p1", 1, 100))
	sel, summary := svc.View(ctx, "owner-1", reordered)
	assert.Len(t, sel, 1)
	assert.True(t, sel.Contains(key("product", "p1")))
	assert.Equal(t, 100.0, summary.Subtotal)
}
