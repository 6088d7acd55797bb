package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fjod/go_storefront/internal/cart"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type CartOpener interface {
	Open(ctx context.Context, sessionID string) (*cart.Store, error)
}

type ProductLookup interface {
	ProductByHandle(ctx context.Context, handle string) (*domain.Product, error)
}

type CartHandler struct {
	carts    CartOpener
	products ProductLookup
	timeout  time.Duration
}

func NewCartHandler(carts CartOpener, products ProductLookup, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:    carts,
		products: products,
		timeout:  timeout,
	}
}

type AddItemRequestDTO struct {
	ProductHandle string `json:"product_handle"`
	VariantID     string `json:"variant_id"`
	// Quantity defaults to 1 when omitted.
	Quantity int `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartLineDTO struct {
	Product   domain.ProductRef `json:"product"`
	Variant   domain.Variant    `json:"variant"`
	Quantity  int               `json:"quantity"`
	LineTotal decimal.Decimal   `json:"line_total"`
}

type CartResponseDTO struct {
	SessionID string          `json:"session_id"`
	Lines     []CartLineDTO   `json:"lines"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Currency  string          `json:"currency,omitempty"`
}

func toCartResponse(sessionID string, c domain.Cart) CartResponseDTO {
	lines := make([]CartLineDTO, len(c.Lines))
	for i, l := range c.Lines {
		lines[i] = CartLineDTO{
			Product:   l.Product,
			Variant:   l.Variant,
			Quantity:  l.Quantity,
			LineTotal: l.LineTotal(),
		}
	}
	return CartResponseDTO{
		SessionID: sessionID,
		Lines:     lines,
		ItemCount: c.ItemCount(),
		Subtotal:  c.Subtotal(),
		Currency:  c.Currency(),
	}
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	store, ok := h.open(ctx, w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, toCartResponse(store.SessionID(), store.Cart()))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductHandle == "" || req.VariantID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "product_handle and variant_id are required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	product, err := h.products.ProductByHandle(ctx, req.ProductHandle)
	if err != nil {
		respondCatalogError(w, r, err)
		return
	}

	variant, found := product.Variant(req.VariantID)
	if !found {
		respondError(w, http.StatusNotFound, "variant_not_found", "variant not found")
		return
	}
	if !variant.AvailableForSale {
		respondError(w, http.StatusConflict, "variant_unavailable", "variant is not available for sale")
		return
	}

	store, ok := h.open(ctx, w, r)
	if !ok {
		return
	}
	if err := store.AddToCart(ctx, product.Ref(), variant, req.Quantity); err != nil {
		h.respondCartError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, toCartResponse(store.SessionID(), store.Cart()))
}

// PUT /api/v1/cart/items/{variant_id}
// A quantity of zero or less removes the line.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	store, ok := h.open(ctx, w, r)
	if !ok {
		return
	}
	if err := store.UpdateQuantity(ctx, chi.URLParam(r, "variant_id"), req.Quantity); err != nil {
		h.respondCartError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartResponse(store.SessionID(), store.Cart()))
}

// DELETE /api/v1/cart/items/{variant_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	store, ok := h.open(ctx, w, r)
	if !ok {
		return
	}
	if err := store.RemoveFromCart(ctx, chi.URLParam(r, "variant_id")); err != nil {
		h.respondCartError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartResponse(store.SessionID(), store.Cart()))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	store, ok := h.open(ctx, w, r)
	if !ok {
		return
	}
	if err := store.ClearCart(ctx); err != nil {
		h.respondCartError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartResponse(store.SessionID(), store.Cart()))
}

func (h *CartHandler) open(ctx context.Context, w http.ResponseWriter, r *http.Request) (*cart.Store, bool) {
	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session", "cart session is required")
		return nil, false
	}
	store, err := h.carts.Open(ctx, sessionID)
	if err != nil {
		respondInternalError(w, r, err)
		return nil, false
	}
	return store, true
}

func (h *CartHandler) respondCartError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, cart.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, cart.ErrCurrencyMismatch):
		respondError(w, http.StatusConflict, "currency_mismatch", err.Error())
	default:
		respondInternalError(w, r, err)
	}
}
