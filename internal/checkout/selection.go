// Package checkout implements partial checkout: the user picks a subset of
// cart lines, sees totals for just that subset, and hands the picked lines
// off to order placement.
package checkout

import (
	"math"
	"sort"

	"github.com/mayuri-bharti/medical-shop-frontend-sub002/internal/domain"
)

// Selection is the set of cart lines picked for checkout. Membership is
// order-independent.
type Selection map[domain.ItemKey]struct{}

// SelectAll returns a selection covering every line in the cart.
func SelectAll(cart *domain.Cart) Selection {
	sel := make(Selection, len(cart.Items))
	for _, item := range cart.Items {
		sel[item.Key()] = struct{}{}
	}
	return sel
}

// Contains reports whether the key is selected.
func (s Selection) Contains(key domain.ItemKey) bool {
	_, ok := s[key]
	return ok
}

// Keys returns the selection as sorted key strings, the stable form used
// for persistence and the wire.
func (s Selection) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)
	return keys
}

// FromKeys parses key strings into a selection, ignoring malformed entries.
func FromKeys(keys []string) Selection {
	sel := make(Selection, len(keys))
	for _, s := range keys {
		key, err := domain.ParseItemKey(s)
		if err != nil {
			continue
		}
		sel[key] = struct{}{}
	}
	return sel
}

// Reconcile aligns a previous selection with the cart's current contents:
//
//   - an empty cart yields an empty selection;
//   - a first visit (no previous selection) selects everything;
//   - otherwise the previous picks survive where the lines still exist;
//   - if none survive, everything is selected again rather than presenting
//     a checkout page with nothing picked.
func Reconcile(prev Selection, cart *domain.Cart) Selection {
	if len(cart.Items) == 0 {
		return Selection{}
	}
	if len(prev) == 0 {
		return SelectAll(cart)
	}

	current := cart.Keys()
	sel := make(Selection)
	for key := range prev {
		if _, ok := current[key]; ok {
			sel[key] = struct{}{}
		}
	}
	if len(sel) == 0 {
		return SelectAll(cart)
	}
	return sel
}

// SelectedItems returns the cart lines covered by the selection, in cart
// display order.
func SelectedItems(cart *domain.Cart, sel Selection) []domain.CartItem {
	items := make([]domain.CartItem, 0, len(sel))
	for _, item := range cart.Items {
		if sel.Contains(item.Key()) {
			items = append(items, item)
		}
	}
	return items
}

// Summary holds the totals for the selected subset of the cart.
type Summary struct {
	Items       []domain.CartItem `json:"items"`
	Subtotal    float64           `json:"subtotal"`
	DeliveryFee float64           `json:"deliveryFee"`
	Taxes       float64           `json:"taxes"`
	Total       float64           `json:"total"`
}

// Summarize computes totals for the selected lines. Taxes are prorated from
// the full cart by the ratio of selected to total subtotal, so the summary
// never shows more tax than the cart does. The delivery fee threshold is
// re-evaluated against the selected subtotal; an empty selection carries no
// fee at all.
func Summarize(cart *domain.Cart, sel Selection) Summary {
	items := SelectedItems(cart, sel)

	var subtotal float64
	for _, item := range items {
		subtotal += item.Price * float64(item.Quantity)
	}

	var taxes float64
	if cart.Subtotal > 0 {
		taxes = math.Round(cart.Taxes * subtotal / cart.Subtotal)
	}

	var fee float64
	if subtotal > 0 {
		fee = domain.DeliveryFeeFor(subtotal)
	}

	return Summary{
		Items:       items,
		Subtotal:    subtotal,
		DeliveryFee: fee,
		Taxes:       taxes,
		Total:       subtotal + fee + taxes,
	}
}
