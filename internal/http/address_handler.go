package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fjod/go_storefront/internal/address"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

type AddressService interface {
	List(ctx context.Context, userID string) ([]*domain.Address, error)
	Get(ctx context.Context, userID, addressID string) (*domain.Address, error)
	Create(ctx context.Context, userID string, in domain.AddressInput) (*domain.Address, error)
	Update(ctx context.Context, userID, addressID string, patch domain.AddressPatch) (*domain.Address, error)
	Delete(ctx context.Context, userID, addressID string) error
}

type AddressHandler struct {
	service AddressService
	timeout time.Duration
}

func NewAddressHandler(service AddressService, timeout time.Duration) *AddressHandler {
	return &AddressHandler{
		service: service,
		timeout: timeout,
	}
}

type AddressesResponse struct {
	Addresses []*domain.Address `json:"addresses"`
}

// GET /api/v1/account/addresses
func (h *AddressHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	addresses, err := h.service.List(ctx, userID)
	if err != nil {
		respondAddressError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, AddressesResponse{Addresses: addresses})
}

// GET /api/v1/account/addresses/{id}
func (h *AddressHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	a, err := h.service.Get(ctx, userID, chi.URLParam(r, "id"))
	if err != nil {
		respondAddressError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

// POST /api/v1/account/addresses
func (h *AddressHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var in domain.AddressInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	a, err := h.service.Create(ctx, userID, in)
	if err != nil {
		respondAddressError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, a)
}

// PATCH /api/v1/account/addresses/{id}
func (h *AddressHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var patch domain.AddressPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	a, err := h.service.Update(ctx, userID, chi.URLParam(r, "id"), patch)
	if err != nil {
		respondAddressError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

// DELETE /api/v1/account/addresses/{id}
func (h *AddressHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, userID, chi.URLParam(r, "id")); err != nil {
		respondAddressError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return "", false
	}
	return userID, true
}

func respondAddressError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, address.ErrInvalidAddress):
		respondError(w, http.StatusBadRequest, "invalid_address", err.Error())
	case errors.Is(err, address.ErrAddressNotFound):
		respondError(w, http.StatusNotFound, "not_found", "address not found")
	default:
		respondInternalError(w, r, err)
	}
}
