package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_storefront/internal/countries"
	"github.com/fjod/go_storefront/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	Cart     *CartHandler
	Products *ProductHandler
	Checkout *CheckoutHandler
	Address  *AddressHandler
	Metrics  *metrics.ServerMetrics

	// Ping reports readiness on /health. Optional.
	Ping           func(ctx context.Context) error
	RequestTimeout time.Duration
}

func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/health", health(cfg.Ping))
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/countries", ListCountries)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", cfg.Products.List)
			r.Get("/{handle}", cfg.Products.Get)
		})

		r.Group(func(r chi.Router) {
			r.Use(SessionMiddleware)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cfg.Cart.GetCart)
				r.Delete("/", cfg.Cart.ClearCart)
				r.Post("/items", cfg.Cart.AddItem)
				r.Put("/items/{variant_id}", cfg.Cart.UpdateQuantity)
				r.Delete("/items/{variant_id}", cfg.Cart.RemoveItem)
			})

			r.Post("/checkout/quote", cfg.Checkout.Quote)
			r.Post("/checkout", cfg.Checkout.InitiateCheckout)
		})

		r.Route("/account/addresses", func(r chi.Router) {
			r.Use(MockAuthMiddleware)
			r.Get("/", cfg.Address.List)
			r.Post("/", cfg.Address.Create)
			r.Get("/{id}", cfg.Address.Get)
			r.Patch("/{id}", cfg.Address.Update)
			r.Delete("/{id}", cfg.Address.Delete)
		})
	})

	return r
}

type CountriesResponse struct {
	Countries []countries.Country `json:"countries"`
}

// GET /api/v1/countries
func ListCountries(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, CountriesResponse{Countries: countries.All()})
}

func health(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
