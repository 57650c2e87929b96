package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mayuri-bharti/medical-shop-frontend-sub002/pkg/health"
	"github.com/mayuri-bharti/medical-shop-frontend-sub002/pkg/middleware"
)

// RouterConfig carries the knobs the router needs beyond its handlers.
type RouterConfig struct {
	JWTSecret      string
	SessionTTL     time.Duration
	RateLimitRPS   int
	RateLimitBurst int
	CORS           middleware.CORSConfig
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(
	cartHandler *CartHandler,
	checkoutHandler *CheckoutHandler,
	catalogHandler *CatalogHandler,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("storefront"))
	r.Use(middleware.Tracing("storefront"))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS))
	if cfg.RateLimitRPS > 0 {
		r.Use(RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, logger))
	}

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Catalogue browsing and search are public and stateless.
		r.Get("/products", catalogHandler.ListProducts)
		r.Get("/products/{slug}", catalogHandler.GetProduct)
		r.Get("/medicines", catalogHandler.ListMedicines)
		r.Get("/medicines/{slug}", catalogHandler.GetMedicine)
		r.Get("/search", catalogHandler.Search)

		// Cart and checkout need a resolved identity.
		r.Group(func(r chi.Router) {
			r.Use(Session(cfg.JWTSecret, cfg.SessionTTL, logger))
			r.Use(ContentTypeJSON)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Delete("/", cartHandler.ClearCart)
				r.Get("/count", cartHandler.GetCount)

				r.Post("/items", cartHandler.AddItem)
				r.Put("/items/{itemID}", cartHandler.UpdateItem)
				r.Delete("/items/{itemID}", cartHandler.RemoveItem)
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Post("/", checkoutHandler.Begin)
				r.Get("/selection", checkoutHandler.GetSelection)
				r.Put("/selection", checkoutHandler.SetSelection)
			})
		})
	})

	return r
}
