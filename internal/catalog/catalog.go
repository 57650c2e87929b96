// Package catalog serves the storefront's browsable inventory: general
// wellness products and medicines. The catalogue is read-only at runtime
// and ships embedded in the binary; it is the source for item snapshots
// taken when a guest adds to cart.
package catalog

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	apperrors "github.com/mayuri-bharti/medical-shop-frontend-sub002/pkg/errors"
	"github.com/mayuri-bharti/medical-shop-frontend-sub002/pkg/pagination"
	"github.com/mayuri-bharti/medical-shop-frontend-sub002/pkg/slug"
)

//go:embed data/products.json data/medicines.json
var dataFS embed.FS

// Product is a general (non-medicine) catalogue entry.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
	InStock     bool    `json:"inStock"`
}

// Medicine is a pharmaceutical catalogue entry.
type Medicine struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	Slug                 string  `json:"slug"`
	Description          string  `json:"description"`
	Category             string  `json:"category"`
	Manufacturer         string  `json:"manufacturer"`
	Dosage               string  `json:"dosage"`
	PrescriptionRequired bool    `json:"prescriptionRequired"`
	Price                float64 `json:"price"`
	Image                string  `json:"image"`
	InStock              bool    `json:"inStock"`
}

// SearchHit is one search result row, tagged with the entity kind so the
// client can route to the right detail page.
type SearchHit struct {
	ItemType string  `json:"itemType"`
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Slug     string  `json:"slug"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Image    string  `json:"image"`
}

// Catalogue is the in-memory index over products and medicines. Lookups by
// slug back the detail pages; the search index is a simple substring match
// over name, description and category.
type Catalogue struct {
	mu        sync.RWMutex
	products  []Product
	medicines []Medicine
	bySlug    map[string]any
}

// NewFromEmbedded loads the catalogue shipped with the binary.
func NewFromEmbedded() (*Catalogue, error) {
	var products []Product
	if err := loadJSON("data/products.json", &products); err != nil {
		return nil, err
	}
	var medicines []Medicine
	if err := loadJSON("data/medicines.json", &medicines); err != nil {
		return nil, err
	}
	return New(products, medicines), nil
}

// New builds a catalogue from the given entries. Entries without a slug get
// one generated from their name.
func New(products []Product, medicines []Medicine) *Catalogue {
	c := &Catalogue{
		products:  products,
		medicines: medicines,
		bySlug:    make(map[string]any, len(products)+len(medicines)),
	}
	for i := range c.products {
		if c.products[i].Slug == "" {
			c.products[i].Slug = slug.Generate(c.products[i].Name)
		}
		c.bySlug["product:"+c.products[i].Slug] = &c.products[i]
	}
	for i := range c.medicines {
		if c.medicines[i].Slug == "" {
			c.medicines[i].Slug = slug.Generate(c.medicines[i].Name)
		}
		c.bySlug["medicine:"+c.medicines[i].Slug] = &c.medicines[i]
	}
	return c
}

func loadJSON(path string, out any) error {
	data, err := dataFS.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalogue data %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse catalogue data %s: %w", path, err)
	}
	return nil
}

// Products returns one page of products, optionally filtered by category.
func (c *Catalogue) Products(_ context.Context, category string, params pagination.Params) pagination.Result[Product] {
	c.mu.RLock()
	defer c.mu.RUnlock()

	filtered := make([]Product, 0, len(c.products))
	for _, p := range c.products {
		if category == "" || strings.EqualFold(p.Category, category) {
			filtered = append(filtered, p)
		}
	}
	return pagination.NewResult(paginate(filtered, params), len(filtered), params)
}

// Medicines returns one page of medicines, optionally filtered by category.
func (c *Catalogue) Medicines(_ context.Context, category string, params pagination.Params) pagination.Result[Medicine] {
	c.mu.RLock()
	defer c.mu.RUnlock()

	filtered := make([]Medicine, 0, len(c.medicines))
	for _, m := range c.medicines {
		if category == "" || strings.EqualFold(m.Category, category) {
			filtered = append(filtered, m)
		}
	}
	return pagination.NewResult(paginate(filtered, params), len(filtered), params)
}

// ProductBySlug looks up one product.
func (c *Catalogue) ProductBySlug(_ context.Context, s string) (*Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if p, ok := c.bySlug["product:"+s].(*Product); ok {
		return p, nil
	}
	return nil, apperrors.NotFound("product", s)
}

// MedicineBySlug looks up one medicine.
func (c *Catalogue) MedicineBySlug(_ context.Context, s string) (*Medicine, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if m, ok := c.bySlug["medicine:"+s].(*Medicine); ok {
		return m, nil
	}
	return nil, apperrors.NotFound("medicine", s)
}

// ProductByID looks up one product by identifier.
func (c *Catalogue) ProductByID(_ context.Context, id string) (*Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for i := range c.products {
		if c.products[i].ID == id {
			return &c.products[i], nil
		}
	}
	return nil, apperrors.NotFound("product", id)
}

// MedicineByID looks up one medicine by identifier.
func (c *Catalogue) MedicineByID(_ context.Context, id string) (*Medicine, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for i := range c.medicines {
		if c.medicines[i].ID == id {
			return &c.medicines[i], nil
		}
	}
	return nil, apperrors.NotFound("medicine", id)
}

// Search matches products and medicines whose name, description or category
// contains the query, case-insensitively. Name matches rank before the
// rest; ties break alphabetically so results are stable.
func (c *Catalogue) Search(_ context.Context, query string, params pagination.Params) pagination.Result[SearchHit] {
	c.mu.RLock()
	defer c.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return pagination.NewResult([]SearchHit{}, 0, params)
	}

	type scored struct {
		hit       SearchHit
		nameMatch bool
	}
	var hits []scored

	for _, p := range c.products {
		if ok, name := matches(q, p.Name, p.Description, p.Category); ok {
			hits = append(hits, scored{
				hit: SearchHit{
					ItemType: "product", ID: p.ID, Name: p.Name, Slug: p.Slug,
					Category: p.Category, Price: p.Price, Image: p.Image,
				},
				nameMatch: name,
			})
		}
	}
	for _, m := range c.medicines {
		if ok, name := matches(q, m.Name, m.Description, m.Category); ok {
			hits = append(hits, scored{
				hit: SearchHit{
					ItemType: "medicine", ID: m.ID, Name: m.Name, Slug: m.Slug,
					Category: m.Category, Price: m.Price, Image: m.Image,
				},
				nameMatch: name,
			})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].nameMatch != hits[j].nameMatch {
			return hits[i].nameMatch
		}
		return hits[i].hit.Name < hits[j].hit.Name
	})

	results := make([]SearchHit, len(hits))
	for i, h := range hits {
		results[i] = h.hit
	}
	return pagination.NewResult(paginate(results, params), len(results), params)
}

func matches(q, name, description, category string) (matched, nameMatch bool) {
	if strings.Contains(strings.ToLower(name), q) {
		return true, true
	}
	if strings.Contains(strings.ToLower(description), q) || strings.Contains(strings.ToLower(category), q) {
		return true, false
	}
	return false, false
}

func paginate[T any](items []T, params pagination.Params) []T {
	offset := params.Offset
	if offset > len(items) {
		offset = len(items)
	}
	end := offset + params.PerPage
	if end > len(items) {
		end = len(items)
	}
	page := make([]T, end-offset)
	copy(page, items[offset:end])
	return page
}
