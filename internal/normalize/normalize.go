// Package normalize reduces the remote cart API's inconsistent response
// envelopes to the one canonical cart structure the rest of the storefront
// consumes. The shape list is a closed, ordered table; payloads matching none
// of the shapes yield nil ("nothing to update"), never an error.
package normalize

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/mayuri-bharti/medical-shop-frontend-sub002/internal/domain"
)

// flexID decodes a catalogue identifier that may arrive as a string, a
// number, or a populated sub-document carrying its own id.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = []byte(strings.TrimSpace(string(data)))
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*f = ""
			return nil
		}
		*f = flexID(s)
	case '{':
		var ref struct {
			ID      string `json:"id"`
			MongoID string `json:"_id"`
		}
		if err := json.Unmarshal(data, &ref); err != nil {
			*f = ""
			return nil
		}
		if ref.ID != "" {
			*f = flexID(ref.ID)
		} else {
			*f = flexID(ref.MongoID)
		}
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			*f = ""
			return nil
		}
		*f = flexID(n.String())
	}
	return nil
}

// flexInt decodes a quantity that may arrive as a number, a numeric string,
// null, or garbage. Anything non-numeric coerces to 0.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	*f = 0
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		*f = flexInt(v)
	}
	return nil
}

// flexFloat decodes a price with the same tolerance as flexInt.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	*f = 0
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		*f = flexFloat(v)
	}
	return nil
}

// catalogRef is the nested product/medicine sub-record the authenticated
// cart API returns in place of denormalized name/image/price fields.
type catalogRef struct {
	ID      flexID    `json:"id"`
	MongoID flexID    `json:"_id"`
	Name    string    `json:"name"`
	Image   string    `json:"image"`
	Price   flexFloat `json:"price"`
}

func (r *catalogRef) id() string {
	if r == nil {
		return ""
	}
	if r.ID != "" {
		return string(r.ID)
	}
	return string(r.MongoID)
}

// looseItem is the tolerant wire form of one cart line.
type looseItem struct {
	ItemType   string      `json:"itemType"`
	ProductID  flexID      `json:"productId"`
	MedicineID flexID      `json:"medicineId"`
	Quantity   flexInt     `json:"quantity"`
	Price      flexFloat   `json:"price"`
	Name       string      `json:"name"`
	Image      string      `json:"image"`
	Product    *catalogRef `json:"product"`
	Medicine   *catalogRef `json:"medicine"`
}

// The closed envelope table, attempted in priority order:
//
//  1. {items:[...]}
//  2. {data:{items:[...]}}
//  3. {data:{cart:{items:[...]}}}
//  4. {cart:{items:[...]}}
//  5. {data:[...]}
//
// A probe matches when it unmarshals cleanly and its items field is present
// (non-nil), even if empty.
var shapes = []func(raw []byte) ([]looseItem, bool){
	func(raw []byte) ([]looseItem, bool) {
		var p struct {
			Items *[]looseItem `json:"items"`
		}
		if json.Unmarshal(raw, &p) != nil || p.Items == nil {
			return nil, false
		}
		return *p.Items, true
	},
	func(raw []byte) ([]looseItem, bool) {
		var p struct {
			Data *struct {
				Items *[]looseItem `json:"items"`
			} `json:"data"`
		}
		if json.Unmarshal(raw, &p) != nil || p.Data == nil || p.Data.Items == nil {
			return nil, false
		}
		return *p.Data.Items, true
	},
	func(raw []byte) ([]looseItem, bool) {
		var p struct {
			Data *struct {
				Cart *struct {
					Items *[]looseItem `json:"items"`
				} `json:"cart"`
			} `json:"data"`
		}
		if json.Unmarshal(raw, &p) != nil || p.Data == nil || p.Data.Cart == nil || p.Data.Cart.Items == nil {
			return nil, false
		}
		return *p.Data.Cart.Items, true
	},
	func(raw []byte) ([]looseItem, bool) {
		var p struct {
			Cart *struct {
				Items *[]looseItem `json:"items"`
			} `json:"cart"`
		}
		if json.Unmarshal(raw, &p) != nil || p.Cart == nil || p.Cart.Items == nil {
			return nil, false
		}
		return *p.Cart.Items, true
	},
	func(raw []byte) ([]looseItem, bool) {
		var p struct {
			Data *[]looseItem `json:"data"`
		}
		if json.Unmarshal(raw, &p) != nil || p.Data == nil {
			return nil, false
		}
		return *p.Data, true
	},
}

// Normalize reduces any cart-bearing payload to the canonical cart. Accepted
// inputs: *domain.Cart / domain.Cart (pass-through with totals recomputed),
// raw JSON ([]byte, json.RawMessage, string), or any JSON-marshalable value.
// Returns nil when the payload carries no recognizable cart.
func Normalize(payload any) *domain.Cart {
	switch v := payload.(type) {
	case nil:
		return nil
	case *domain.Cart:
		if v == nil {
			return nil
		}
		return canonicalizeCart(v)
	case domain.Cart:
		return canonicalizeCart(&v)
	case json.RawMessage:
		return fromJSON(v)
	case []byte:
		return fromJSON(v)
	case string:
		return fromJSON([]byte(v))
	default:
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil
		}
		return fromJSON(raw)
	}
}

// CountItems sums the quantities of a normalized cart. Missing or negative
// quantities count as zero; a nil cart counts as zero items.
func CountItems(cart *domain.Cart) int {
	if cart == nil {
		return 0
	}
	return cart.ItemCount()
}

func fromJSON(raw []byte) *domain.Cart {
	if len(raw) == 0 {
		return nil
	}
	for _, probe := range shapes {
		if items, ok := probe(raw); ok {
			return buildCart(items)
		}
	}
	return nil
}

func buildCart(items []looseItem) *domain.Cart {
	cart := &domain.Cart{Items: make([]domain.CartItem, 0, len(items))}
	for _, li := range items {
		cart.Items = append(cart.Items, canonicalizeItem(li))
	}
	cart.RecomputeTotals()
	return cart
}

// canonicalizeItem flattens one loose line: the nested catalogue sub-record
// fills whatever the top-level fields left blank, the item type is inferred
// from whichever reference is present, and the unused identifier is forced
// to nil.
func canonicalizeItem(li looseItem) domain.CartItem {
	itemType := li.ItemType
	if itemType == "" {
		if li.MedicineID != "" || li.Medicine != nil {
			itemType = domain.ItemTypeMedicine
		} else {
			itemType = domain.ItemTypeProduct
		}
	}

	item := domain.CartItem{
		ItemType: itemType,
		Quantity: int(li.Quantity),
		Price:    float64(li.Price),
		Name:     li.Name,
		Image:    li.Image,
	}

	var ref *catalogRef
	switch itemType {
	case domain.ItemTypeMedicine:
		ref = li.Medicine
		id := string(li.MedicineID)
		if id == "" {
			id = ref.id()
		}
		if id != "" {
			item.MedicineID = &id
		}
	default:
		ref = li.Product
		id := string(li.ProductID)
		if id == "" {
			id = ref.id()
		}
		if id != "" {
			item.ProductID = &id
		}
	}

	if ref != nil {
		if item.Name == "" {
			item.Name = ref.Name
		}
		if item.Image == "" {
			item.Image = ref.Image
		}
		if item.Price == 0 {
			item.Price = float64(ref.Price)
		}
	}

	return item
}

// canonicalizeCart copies an already-typed cart, ensuring a non-nil items
// slice and freshly derived totals. Normalizing a normalized cart is a no-op.
func canonicalizeCart(src *domain.Cart) *domain.Cart {
	cart := &domain.Cart{Items: make([]domain.CartItem, len(src.Items))}
	copy(cart.Items, src.Items)
	cart.RecomputeTotals()
	return cart
}
