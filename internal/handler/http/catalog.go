package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mayuri-bharti/medical-shop-frontend-sub002/internal/catalog"
	apperrors "github.com/mayuri-bharti/medical-shop-frontend-sub002/pkg/errors"
	"github.com/mayuri-bharti/medical-shop-frontend-sub002/pkg/httputil"
	"github.com/mayuri-bharti/medical-shop-frontend-sub002/pkg/pagination"
)

// CatalogHandler serves the browse and search endpoints.
type CatalogHandler struct {
	catalog *catalog.Catalogue
	logger  *slog.Logger
}

// NewCatalogHandler creates a catalogue HTTP handler.
func NewCatalogHandler(cat *catalog.Catalogue, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: cat, logger: logger}
}

// ListProducts handles GET /api/v1/products
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)
	category := r.URL.Query().Get("category")

	result := h.catalog.Products(r.Context(), category, params)
	httputil.WriteJSON(w, http.StatusOK, result)
}

// GetProduct handles GET /api/v1/products/{slug}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.ProductBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: p})
}

// ListMedicines handles GET /api/v1/medicines
func (h *CatalogHandler) ListMedicines(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)
	category := r.URL.Query().Get("category")

	result := h.catalog.Medicines(r.Context(), category, params)
	httputil.WriteJSON(w, http.StatusOK, result)
}

// GetMedicine handles GET /api/v1/medicines/{slug}
func (h *CatalogHandler) GetMedicine(w http.ResponseWriter, r *http.Request) {
	m, err := h.catalog.MedicineBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: m})
}

// Search handles GET /api/v1/search?q=
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("query parameter q is required"), h.logger)
		return
	}

	result := h.catalog.Search(r.Context(), query, pagination.FromRequest(r))
	httputil.WriteJSON(w, http.StatusOK, result)
}
