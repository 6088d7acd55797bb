package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/fjod/go_storefront/internal/checkout"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const checkoutBody = `{
	"idempotency_key": "body-key",
	"use_reduced_rate": true,
	"shipping_address": {
		"first_name": "Ada", "last_name": "Lovelace", "address": "1 Main St",
		"city": "Dublin", "postal_code": "D01", "country": "IE", "email": "ada@example.com"
	}
}`

func TestQuote(t *testing.T) {
	ts := newTestServer()
	ts.checkout.QuoteResult = &checkout.Quote{
		Cart: domain.Cart{Lines: []domain.CartLine{{
			Variant:  domain.Variant{ID: "v-gray", Price: eur("14.99")},
			Quantity: 2,
		}}},
		Billing: domain.CheckoutBilling{
			Subtotal: decimal.RequireFromString("29.98"),
			Total:    decimal.RequireFromString("46.8754"),
			Currency: "EUR",
		},
	}

	rec := ts.do(http.MethodPost, "/api/v1/checkout/quote", `{"country":"ie"}`, SessionHeader, "s1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "s1", ts.checkout.LastRequest.SessionID)
	assert.Equal(t, "ie", ts.checkout.LastCountry)

	var resp QuoteResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Cart.ItemCount)
	assert.Equal(t, "46.8754", resp.Billing.Total.String())
}

func TestInitiateCheckout_Success(t *testing.T) {
	ts := newTestServer()
	ts.checkout.Result = &checkout.Result{CheckoutID: "c1", CheckoutURL: "https://shop.example.com/checkouts/c1"}

	rec := ts.do(http.MethodPost, "/api/v1/checkout", checkoutBody, SessionHeader, "s1")

	require.Equal(t, http.StatusCreated, rec.Code)
	req := ts.checkout.LastRequest
	assert.Equal(t, "s1", req.SessionID)
	assert.Equal(t, "body-key", req.IdempotencyKey)
	assert.True(t, req.UseReducedRate)
	assert.Equal(t, "Dublin", req.Address.City)

	var resp CheckoutResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "https://shop.example.com/checkouts/c1", resp.CheckoutURL)
	assert.False(t, resp.Replayed)
}

func TestInitiateCheckout_HeaderKeyWins(t *testing.T) {
	ts := newTestServer()
	ts.checkout.Result = &checkout.Result{CheckoutID: "c1", CheckoutURL: "u"}

	ts.do(http.MethodPost, "/api/v1/checkout", checkoutBody, SessionHeader, "s1", IdempotencyKeyHeader, "header-key")

	assert.Equal(t, "header-key", ts.checkout.LastRequest.IdempotencyKey)
}

func TestInitiateCheckout_Replay(t *testing.T) {
	ts := newTestServer()
	ts.checkout.Result = &checkout.Result{CheckoutID: "c1", CheckoutURL: "u", Replayed: true}

	rec := ts.do(http.MethodPost, "/api/v1/checkout", checkoutBody, SessionHeader, "s1")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInitiateCheckout_InvalidJSON(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(http.MethodPost, "/api/v1/checkout", `nope`, SessionHeader, "s1")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInitiateCheckout_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"rejected", &checkout.RejectedError{Code: "INVALID", Field: []string{"input", "email"}, Message: "Email is invalid"},
			http.StatusUnprocessableEntity, "checkout_rejected"},
		{"unavailable", fmt.Errorf("%w: timeout", checkout.ErrCheckoutUnavailable), http.StatusServiceUnavailable, "checkout_unavailable"},
		{"in progress", checkout.ErrCheckoutInProgress, http.StatusConflict, "checkout_in_progress"},
		{"conflict", checkout.ErrIdempotencyConflict, http.StatusConflict, "idempotency_conflict"},
		{"empty cart", checkout.ErrEmptyCart, http.StatusBadRequest, "empty_cart"},
		{"invalid address", fmt.Errorf("%w: email required", checkout.ErrInvalidAddress), http.StatusBadRequest, "invalid_address"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer()
			ts.checkout.Err = tt.err

			rec := ts.do(http.MethodPost, "/api/v1/checkout", checkoutBody, SessionHeader, "s1")

			assert.Equal(t, tt.status, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestInitiateCheckout_RejectionShowsPlatformMessage(t *testing.T) {
	ts := newTestServer()
	ts.checkout.Err = &checkout.RejectedError{Field: []string{"input", "email"}, Message: "Email is invalid"}

	rec := ts.do(http.MethodPost, "/api/v1/checkout", checkoutBody, SessionHeader, "s1")

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Email is invalid", resp.Error)
	assert.Equal(t, "input.email", resp.Details)
}
