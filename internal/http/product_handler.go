package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/commerce"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type ProductHandler struct {
	catalog catalog.Catalog
	timeout time.Duration
}

func NewProductHandler(c catalog.Catalog, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		catalog: c,
		timeout: timeout,
	}
}

// ProductsResponse carries facets computed over the whole catalog, so the
// filter options do not shrink as filters are applied.
type ProductsResponse struct {
	Products []domain.Product `json:"products"`
	Total    int              `json:"total"`
	Facets   catalog.Facets   `json:"facets"`
}

// GET /api/v1/products?q=&category=&material=&min_price=&max_price=
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	filter, err := parseFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_price", err.Error())
		return
	}

	products, err := h.catalog.Products(ctx)
	if err != nil {
		respondCatalogError(w, r, err)
		return
	}

	matched := catalog.Apply(products, filter)
	respondJSON(w, http.StatusOK, &ProductsResponse{
		Products: matched,
		Total:    len(matched),
		Facets:   catalog.BuildFacets(products),
	})
}

// GET /api/v1/products/{handle}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	product, err := h.catalog.ProductByHandle(ctx, chi.URLParam(r, "handle"))
	if err != nil {
		respondCatalogError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func parseFilter(r *http.Request) (catalog.Filter, error) {
	q := r.URL.Query()
	f := catalog.Filter{
		Query:    q.Get("q"),
		Category: q.Get("category"),
		Material: q.Get("material"),
	}
	for param, dst := range map[string]**decimal.Decimal{
		"min_price": &f.MinPrice,
		"max_price": &f.MaxPrice,
	} {
		v := q.Get(param)
		if v == "" {
			continue
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return catalog.Filter{}, errors.New(param + " must be a decimal number")
		}
		*dst = &d
	}
	return f, nil
}

func respondCatalogError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", "product not found")
	case errors.Is(err, commerce.ErrUnavailable):
		respondError(w, http.StatusServiceUnavailable, "catalog_unavailable", "catalog is unavailable, try again")
	default:
		respondInternalError(w, r, err)
	}
}
