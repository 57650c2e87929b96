package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mayuri-bharti/medical-shop-frontend-sub002/internal/catalog"
	"github.com/mayuri-bharti/medical-shop-frontend-sub002/internal/domain"
	apperrors "github.com/mayuri-bharti/medical-shop-frontend-sub002/pkg/errors"
	"github.com/mayuri-bharti/medical-shop-frontend-sub002/pkg/httputil"
	"github.com/mayuri-bharti/medical-shop-frontend-sub002/pkg/validator"
)

// GuestCart is the guest-side cart the handler dispatches to when no bearer
// token is present.
type GuestCart interface {
	Read(ctx context.Context, sessionID string) *domain.Cart
	ItemCount(ctx context.Context, sessionID string) int
	Add(ctx context.Context, sessionID string, item domain.CartItem) *domain.Cart
	UpdateQuantity(ctx context.Context, sessionID string, key domain.ItemKey, quantity int) *domain.Cart
	Remove(ctx context.Context, sessionID string, key domain.ItemKey) *domain.Cart
	Clear(ctx context.Context, sessionID string) *domain.Cart
}

// UpstreamCart is the authenticated-side cart, owned by the remote cart
// service.
type UpstreamCart interface {
	Fetch(ctx context.Context, token string) (*domain.Cart, error)
	AddItem(ctx context.Context, token string, key domain.ItemKey, quantity int) (*domain.Cart, error)
	UpdateItem(ctx context.Context, token, itemID string, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, token, itemID string) (*domain.Cart, error)
	Clear(ctx context.Context, token string) (*domain.Cart, error)
}

// SnapshotSource resolves catalogue entries when a guest adds to cart, so
// the stored line carries the price, name and image as of add time.
type SnapshotSource interface {
	ProductByID(ctx context.Context, id string) (*catalog.Product, error)
	MedicineByID(ctx context.Context, id string) (*catalog.Medicine, error)
}

// CartHandler serves the cart endpoints. Every request lands on exactly one
// of the two cart implementations: a bearer token routes to the remote cart
// service, its absence routes to the guest store.
type CartHandler struct {
	guest    GuestCart
	upstream UpstreamCart
	catalog  SnapshotSource
	logger   *slog.Logger
}

// NewCartHandler creates a cart HTTP handler.
func NewCartHandler(guest GuestCart, upstream UpstreamCart, cat SnapshotSource, logger *slog.Logger) *CartHandler {
	return &CartHandler{guest: guest, upstream: upstream, catalog: cat, logger: logger}
}

// AddItemRequest is the JSON body for adding an item to the cart.
type AddItemRequest struct {
	ItemType   string `json:"itemType" validate:"required,oneof=product medicine"`
	ProductID  string `json:"productId" validate:"required_if=ItemType product"`
	MedicineID string `json:"medicineId" validate:"required_if=ItemType medicine"`
	Quantity   int    `json:"quantity" validate:"gte=0"`
}

func (r AddItemRequest) key() domain.ItemKey {
	if r.ItemType == domain.ItemTypeMedicine {
		return domain.ItemKey{ItemType: domain.ItemTypeMedicine, ID: r.MedicineID}
	}
	return domain.ItemKey{ItemType: domain.ItemTypeProduct, ID: r.ProductID}
}

// UpdateQuantityRequest is the JSON body for overwriting a line's quantity.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// countResponse is the payload for the item-count endpoint.
type countResponse struct {
	Count int `json:"count"`
}

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	id := IdentityFromContext(r.Context())

	if id.Authenticated() {
		cart, err := h.upstream.Fetch(r.Context(), id.Token)
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: orEmpty(cart)})
		return
	}

	cart := h.guest.Read(r.Context(), id.SessionID)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// GetCount handles GET /api/v1/cart/count
func (h *CartHandler) GetCount(w http.ResponseWriter, r *http.Request) {
	id := IdentityFromContext(r.Context())

	if id.Authenticated() {
		cart, err := h.upstream.Fetch(r.Context(), id.Token)
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: countResponse{Count: orEmpty(cart).ItemCount()}})
		return
	}

	count := h.guest.ItemCount(r.Context(), id.SessionID)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: countResponse{Count: count}})
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	id := IdentityFromContext(r.Context())

	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if id.Authenticated() {
		cart, err := h.upstream.AddItem(r.Context(), id.Token, req.key(), req.Quantity)
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: orEmpty(cart)})
		return
	}

	item, err := h.snapshot(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	cart := h.guest.Add(r.Context(), id.SessionID, item)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// UpdateItem handles PUT /api/v1/cart/items/{itemID}
//
// For guests the path parameter is the "itemType:id" key of the line; for
// authenticated users it is the line id assigned by the cart service.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id := IdentityFromContext(r.Context())
	itemID := chi.URLParam(r, "itemID")

	var req UpdateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if id.Authenticated() {
		cart, err := h.upstream.UpdateItem(r.Context(), id.Token, itemID, req.Quantity)
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: orEmpty(cart)})
		return
	}

	key, err := domain.ParseItemKey(itemID)
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput(err.Error()), h.logger)
		return
	}

	cart := h.guest.UpdateQuantity(r.Context(), id.SessionID, key, req.Quantity)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// RemoveItem handles DELETE /api/v1/cart/items/{itemID}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id := IdentityFromContext(r.Context())
	itemID := chi.URLParam(r, "itemID")

	if id.Authenticated() {
		cart, err := h.upstream.RemoveItem(r.Context(), id.Token, itemID)
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: orEmpty(cart)})
		return
	}

	key, err := domain.ParseItemKey(itemID)
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput(err.Error()), h.logger)
		return
	}

	cart := h.guest.Remove(r.Context(), id.SessionID, key)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	id := IdentityFromContext(r.Context())

	if id.Authenticated() {
		cart, err := h.upstream.Clear(r.Context(), id.Token)
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: orEmpty(cart)})
		return
	}

	cart := h.guest.Clear(r.Context(), id.SessionID)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// snapshot builds the cart line for a guest add from the catalogue record.
func (h *CartHandler) snapshot(ctx context.Context, req AddItemRequest) (domain.CartItem, error) {
	key := req.key()
	item := domain.CartItem{ItemType: key.ItemType, Quantity: req.Quantity}

	switch key.ItemType {
	case domain.ItemTypeMedicine:
		m, err := h.catalog.MedicineByID(ctx, key.ID)
		if err != nil {
			return domain.CartItem{}, err
		}
		item.MedicineID = &m.ID
		item.Price = m.Price
		item.Name = m.Name
		item.Image = m.Image
	default:
		p, err := h.catalog.ProductByID(ctx, key.ID)
		if err != nil {
			return domain.CartItem{}, err
		}
		item.ProductID = &p.ID
		item.Price = p.Price
		item.Name = p.Name
		item.Image = p.Image
	}
	return item, nil
}

// orEmpty substitutes an empty cart when the cart service answered with a
// body carrying no recognizable cart.
func orEmpty(cart *domain.Cart) *domain.Cart {
	if cart == nil {
		return domain.NewEmptyCart()
	}
	return cart
}
