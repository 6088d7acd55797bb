package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_storefront/internal/checkout"
	"github.com/fjod/go_storefront/internal/domain"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type CheckoutService interface {
	Quote(ctx context.Context, sessionID, countryCode string, useReducedRate bool) (*checkout.Quote, error)
	Checkout(ctx context.Context, req checkout.Request) (*checkout.Result, error)
}

type CheckoutHandler struct {
	service CheckoutService
	timeout time.Duration
}

func NewCheckoutHandler(service CheckoutService, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		service: service,
		timeout: timeout,
	}
}

type QuoteRequestDTO struct {
	Country        string `json:"country"`
	UseReducedRate bool   `json:"use_reduced_rate"`
}

type QuoteResponseDTO struct {
	Cart    CartResponseDTO        `json:"cart"`
	Billing domain.CheckoutBilling `json:"billing"`
}

type InitiateCheckoutRequestDTO struct {
	// IdempotencyKey is used when the Idempotency-Key header is absent.
	IdempotencyKey  string                 `json:"idempotency_key"`
	ShippingAddress domain.ShippingAddress `json:"shipping_address"`
	UseReducedRate  bool                   `json:"use_reduced_rate"`
}

type CheckoutResponseDTO struct {
	CheckoutID  string                 `json:"checkout_id"`
	CheckoutURL string                 `json:"checkout_url"`
	Billing     domain.CheckoutBilling `json:"billing"`
	Replayed    bool                   `json:"replayed,omitempty"`
}

// POST /api/v1/checkout/quote
func (h *CheckoutHandler) Quote(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req QuoteRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session", "cart session is required")
		return
	}

	quote, err := h.service.Quote(ctx, sessionID, req.Country, req.UseReducedRate)
	if err != nil {
		respondInternalError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, QuoteResponseDTO{
		Cart:    toCartResponse(sessionID, quote.Cart),
		Billing: quote.Billing,
	})
}

// POST /api/v1/checkout
func (h *CheckoutHandler) InitiateCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req InitiateCheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session", "cart session is required")
		return
	}

	key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if key == "" {
		key = strings.TrimSpace(req.IdempotencyKey)
	}

	res, err := h.service.Checkout(ctx, checkout.Request{
		SessionID:      sessionID,
		IdempotencyKey: key,
		Address:        req.ShippingAddress,
		UseReducedRate: req.UseReducedRate,
	})
	if err != nil {
		respondCheckoutError(w, r, err)
		return
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	respondJSON(w, status, CheckoutResponseDTO{
		CheckoutID:  res.CheckoutID,
		CheckoutURL: res.CheckoutURL,
		Billing:     res.Billing,
		Replayed:    res.Replayed,
	})
}

// respondCheckoutError keeps the two user-visible failure kinds apart:
// a rejection shows the platform's message, an outage asks to try again.
func respondCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	var rejected *checkout.RejectedError
	switch {
	case errors.As(err, &rejected):
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   rejected.Message,
			Code:    "checkout_rejected",
			Details: strings.Join(rejected.Field, "."),
		})
	case errors.Is(err, checkout.ErrCheckoutRejected):
		respondError(w, http.StatusUnprocessableEntity, "checkout_rejected", err.Error())
	case errors.Is(err, checkout.ErrCheckoutUnavailable):
		respondError(w, http.StatusServiceUnavailable, "checkout_unavailable",
			"checkout is temporarily unavailable, please try again")
	case errors.Is(err, checkout.ErrCheckoutInProgress):
		respondError(w, http.StatusConflict, "checkout_in_progress", err.Error())
	case errors.Is(err, checkout.ErrIdempotencyConflict):
		respondError(w, http.StatusConflict, "idempotency_conflict", err.Error())
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", err.Error())
	case errors.Is(err, checkout.ErrInvalidAddress):
		respondError(w, http.StatusBadRequest, "invalid_address", err.Error())
	default:
		respondInternalError(w, r, err)
	}
}
