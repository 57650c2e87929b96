package domain

import (
	"fmt"
	"math"
	"strings"
)

// Item types discriminate which catalogue entity a cart line references.
const (
	ItemTypeProduct  = "product"
	ItemTypeMedicine = "medicine"
)

// Pricing rules applied to every cart, guest or authenticated.
const (
	// FreeDeliveryThreshold is the subtotal at or above which delivery is free.
	FreeDeliveryThreshold = 499.0
	// StandardDeliveryFee is the flat fee charged below the threshold.
	StandardDeliveryFee = 50.0
	// TaxRate is the GST rate applied to the subtotal.
	TaxRate = 0.18
)

// CartItem is one line in a cart. Exactly one of ProductID/MedicineID is set,
// chosen by ItemType; the counterpart stays nil and serializes as JSON null so
// persisted snapshots are diff-stable. Name, Image and Price are denormalized
// snapshots taken at add-time on the guest path; the authenticated cart sources
// them from the server-side catalogue record instead.
type CartItem struct {
	ItemType   string  `json:"itemType"`
	ProductID  *string `json:"productId"`
	MedicineID *string `json:"medicineId"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
	Name       string  `json:"name,omitempty"`
	Image      string  `json:"image,omitempty"`
}

// Cart is the canonical aggregate. Items keep insertion order, which is
// display order. The totals are derived from Items and recomputed on every
// mutation, never stored independently.
type Cart struct {
	Items       []CartItem `json:"items"`
	Subtotal    float64    `json:"subtotal"`
	DeliveryFee float64    `json:"deliveryFee"`
	Taxes       float64    `json:"taxes"`
	Total       float64    `json:"total"`
}

// ItemKey identifies a cart line by its catalogue reference.
type ItemKey struct {
	ItemType string
	ID       string
}

// String renders the key in "itemType:id" form, used in URLs and the
// checkout selection record.
func (k ItemKey) String() string {
	return k.ItemType + ":" + k.ID
}

// ParseItemKey parses the "itemType:id" form produced by String.
func ParseItemKey(s string) (ItemKey, error) {
	itemType, id, ok := strings.Cut(s, ":")
	if !ok || id == "" {
		return ItemKey{}, fmt.Errorf("malformed item key %q", s)
	}
	if itemType != ItemTypeProduct && itemType != ItemTypeMedicine {
		return ItemKey{}, fmt.Errorf("unknown item type %q", itemType)
	}
	return ItemKey{ItemType: itemType, ID: id}, nil
}

// Key returns the ItemKey for this line. The identifier is chosen by
// ItemType; when ItemType is missing, whichever identifier is present wins.
func (i CartItem) Key() ItemKey {
	switch i.ItemType {
	case ItemTypeMedicine:
		return ItemKey{ItemType: ItemTypeMedicine, ID: deref(i.MedicineID)}
	case ItemTypeProduct:
		return ItemKey{ItemType: ItemTypeProduct, ID: deref(i.ProductID)}
	}
	if i.MedicineID != nil {
		return ItemKey{ItemType: ItemTypeMedicine, ID: *i.MedicineID}
	}
	return ItemKey{ItemType: ItemTypeProduct, ID: deref(i.ProductID)}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// NewEmptyCart creates an empty cart with totals recomputed, so the
// delivery-fee rule already applies to the zero subtotal.
func NewEmptyCart() *Cart {
	c := &Cart{Items: []CartItem{}}
	c.RecomputeTotals()
	return c
}

// FindItemIndex returns the index of the line matching the given key, or -1.
func (c *Cart) FindItemIndex(key ItemKey) int {
	for i := range c.Items {
		if c.Items[i].Key() == key {
			return i
		}
	}
	return -1
}

// ItemCount sums the quantities of all lines. Negative quantities (possible
// in payloads that were never normalized) count as zero.
func (c *Cart) ItemCount() int {
	var count int
	for _, item := range c.Items {
		if item.Quantity > 0 {
			count += item.Quantity
		}
	}
	return count
}

// DeliveryFeeFor applies the threshold rule to a subtotal.
func DeliveryFeeFor(subtotal float64) float64 {
	if subtotal >= FreeDeliveryThreshold {
		return 0
	}
	return StandardDeliveryFee
}

// TaxesFor computes the rounded tax amount for a subtotal. Rounding is
// half-away-from-zero and applies to taxes only; subtotal and total stay
// exact sums.
func TaxesFor(subtotal float64) float64 {
	return math.Round(subtotal * TaxRate)
}

// RecomputeTotals derives subtotal, delivery fee, taxes and total from the
// current items. Called after every mutation; a cart whose totals do not
// satisfy total == subtotal + deliveryFee + taxes is a bug.
func (c *Cart) RecomputeTotals() {
	var subtotal float64
	for _, item := range c.Items {
		subtotal += item.Price * float64(item.Quantity)
	}
	c.Subtotal = subtotal
	c.DeliveryFee = DeliveryFeeFor(subtotal)
	c.Taxes = TaxesFor(subtotal)
	c.Total = c.Subtotal + c.DeliveryFee + c.Taxes
}

// Keys returns the set of item keys currently in the cart.
func (c *Cart) Keys() map[ItemKey]struct{} {
	keys := make(map[ItemKey]struct{}, len(c.Items))
	for _, item := range c.Items {
		keys[item.Key()] = struct{}{}
	}
	return keys
}
