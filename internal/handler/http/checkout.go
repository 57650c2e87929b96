package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mayuri-bharti/medical-shop-frontend-sub002/internal/checkout"
	"github.com/mayuri-bharti/medical-shop-frontend-sub002/internal/domain"
	"github.com/mayuri-bharti/medical-shop-frontend-sub002/pkg/httputil"
)

// CheckoutHandler serves the checkout selection endpoints. The cart comes
// from whichever side of the guest/authenticated split the request lands
// on; the selection is keyed by the caller's owner id so it survives login.
type CheckoutHandler struct {
	guest    GuestCart
	upstream UpstreamCart
	checkout *checkout.Service
	logger   *slog.Logger
}

// NewCheckoutHandler creates a checkout HTTP handler.
func NewCheckoutHandler(guest GuestCart, upstream UpstreamCart, svc *checkout.Service, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{guest: guest, upstream: upstream, checkout: svc, logger: logger}
}

// SelectionResponse pairs the selected keys with the totals for that
// subset.
type SelectionResponse struct {
	Selected []string         `json:"selected"`
	Summary  checkout.Summary `json:"summary"`
}

// SetSelectionRequest is the JSON body for replacing the selection.
type SetSelectionRequest struct {
	Keys []string `json:"keys"`
}

// GetSelection handles GET /api/v1/checkout/selection
func (h *CheckoutHandler) GetSelection(w http.ResponseWriter, r *http.Request) {
	id := IdentityFromContext(r.Context())

	cart, err := h.currentCart(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	sel, summary := h.checkout.View(r.Context(), id.OwnerID(), cart)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: SelectionResponse{Selected: sel.Keys(), Summary: summary},
	})
}

// SetSelection handles PUT /api/v1/checkout/selection
func (h *CheckoutHandler) SetSelection(w http.ResponseWriter, r *http.Request) {
	id := IdentityFromContext(r.Context())

	var req SetSelectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	cart, err := h.currentCart(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	sel, summary := h.checkout.Select(r.Context(), id.OwnerID(), cart, req.Keys)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: SelectionResponse{Selected: sel.Keys(), Summary: summary},
	})
}

// Begin handles POST /api/v1/checkout
func (h *CheckoutHandler) Begin(w http.ResponseWriter, r *http.Request) {
	id := IdentityFromContext(r.Context())

	cart, err := h.currentCart(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	summary, err := h.checkout.Begin(r.Context(), id.OwnerID(), cart)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: summary})
}

func (h *CheckoutHandler) currentCart(ctx context.Context, id Identity) (*domain.Cart, error) {
	if id.Authenticated() {
		cart, err := h.upstream.Fetch(ctx, id.Token)
		if err != nil {
			return nil, err
		}
		return orEmpty(cart), nil
	}
	return h.guest.Read(ctx, id.SessionID), nil
}
