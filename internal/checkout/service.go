package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fjod/go_storefront/internal/cart"
	"github.com/fjod/go_storefront/internal/domain"
	r "github.com/fjod/go_storefront/internal/repository"
	"github.com/fjod/go_storefront/pkg/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Repository interface {
	GetCheckoutSessionByIdempotencyKey(ctx context.Context, key string) (*domain.CheckoutSession, error)
	CreateCheckoutSession(ctx context.Context, session *domain.CheckoutSession) error
	ReopenCheckoutSession(ctx context.Context, checkoutID string, snapshot []byte) error
	FailCheckoutSession(ctx context.Context, checkoutID string, status domain.CheckoutStatus, reason string) error
	CompleteCheckoutSession(ctx context.Context, checkoutID, checkoutURL string, payload []byte) error
}

type CartOpener interface {
	Open(ctx context.Context, sessionID string) (*cart.Store, error)
}

type Quoter interface {
	Quote(subtotal decimal.Decimal, currency, countryCode string, useReducedRate bool) domain.CheckoutBilling
}

type CheckoutInitiator interface {
	Initiate(ctx context.Context, lines []domain.CartLine, addr domain.ShippingAddress, billing domain.CheckoutBilling) (string, error)
}

type Request struct {
	SessionID      string
	IdempotencyKey string
	Address        domain.ShippingAddress
	UseReducedRate bool
}

type Result struct {
	CheckoutID  string
	CheckoutURL string
	Billing     domain.CheckoutBilling
	// Replayed is set when an earlier handoff with the same key is returned again.
	Replayed bool
}

type Quote struct {
	Cart    domain.Cart
	Billing domain.CheckoutBilling
}

type Service struct {
	repo      Repository
	carts     CartOpener
	quoter    Quoter
	initiator CheckoutInitiator
	metrics   *metrics.ServerMetrics
	logger    *slog.Logger
	inFlight  sync.Map
}

func NewService(repo Repository, carts CartOpener, quoter Quoter, initiator CheckoutInitiator, m *metrics.ServerMetrics, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		carts:     carts,
		quoter:    quoter,
		initiator: initiator,
		metrics:   m,
		logger:    logger,
	}
}

// Quote prices the session's current cart for a destination country.
func (s *Service) Quote(ctx context.Context, sessionID, countryCode string, useReducedRate bool) (*Quote, error) {
	store, err := s.carts.Open(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to open cart: %w", err)
	}
	c := store.Cart()
	return &Quote{
		Cart:    c,
		Billing: s.quoter.Quote(c.Subtotal(), c.Currency(), countryCode, useReducedRate),
	}, nil
}

// Checkout hands the session's cart to the platform. The cart is cleared only
// after the platform accepted it; a rejected or failed attempt leaves it intact.
func (s *Service) Checkout(ctx context.Context, req Request) (*Result, error) {
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.NewString()
	}
	if err := validateAddress(req.Address); err != nil {
		return nil, err
	}

	if _, busy := s.inFlight.LoadOrStore(req.SessionID, struct{}{}); busy {
		return nil, ErrCheckoutInProgress
	}
	defer s.inFlight.Delete(req.SessionID)

	existing, err := s.repo.GetCheckoutSessionByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil && !errors.Is(err, r.ErrCheckoutSessionNotFound) {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}
	if existing != nil {
		if existing.SessionID != req.SessionID {
			return nil, ErrIdempotencyConflict
		}
		s.logger.InfoContext(ctx, "duplicate checkout request",
			"idempotency_key", req.IdempotencyKey, "checkout_id", existing.ID, "status", existing.Status)

		switch {
		case existing.Status == domain.CheckoutStatusHandedOff:
			s.metrics.CheckoutOutcome("replayed")
			return replayResult(existing), nil
		case !existing.Status.Retryable():
			return nil, ErrCheckoutInProgress
		}
	}

	store, err := s.carts.Open(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to open cart: %w", err)
	}
	c, revision := store.CartWithRevision()
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}

	billing := s.quoter.Quote(c.Subtotal(), c.Currency(), req.Address.Country, req.UseReducedRate)
	snapshot, err := json.Marshal(domain.CheckoutSnapshot{
		Lines:      c.Lines,
		Address:    req.Address,
		Billing:    billing,
		CapturedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checkout snapshot: %w", err)
	}

	checkoutID, err := s.openSession(ctx, existing, req, snapshot)
	if err != nil {
		return nil, err
	}

	checkoutURL, err := s.initiator.Initiate(ctx, c.Lines, req.Address, billing)
	if err != nil {
		s.fail(ctx, checkoutID, err)
		return nil, err
	}

	if err := s.complete(ctx, checkoutID, req.SessionID, checkoutURL, c, revision, billing); err != nil {
		// the platform already holds the checkout; the stale session is reaped later
		s.logger.ErrorContext(ctx, "failed to record checkout handoff",
			"checkout_id", checkoutID, "error", err)
	}
	if err := s.releaseCart(ctx, store, c, revision); err != nil {
		s.logger.WarnContext(ctx, "failed to clear cart after handoff",
			"checkout_id", checkoutID, "session_id", req.SessionID, "error", err)
	}

	s.metrics.CheckoutOutcome("handed_off")
	s.logger.InfoContext(ctx, "checkout handed off", "checkout_id", checkoutID, "session_id", req.SessionID)
	return &Result{
		CheckoutID:  checkoutID,
		CheckoutURL: checkoutURL,
		Billing:     billing,
	}, nil
}

func (s *Service) openSession(ctx context.Context, existing *domain.CheckoutSession, req Request, snapshot []byte) (string, error) {
	if existing != nil {
		if !domain.CanTransitionTo(existing.Status, domain.CheckoutStatusInitiated) {
			return "", ErrIllegalTransition
		}
		if err := s.repo.ReopenCheckoutSession(ctx, existing.ID, snapshot); err != nil {
			return "", fmt.Errorf("failed to reopen checkout session: %w", err)
		}
		return existing.ID, nil
	}

	session := &domain.CheckoutSession{
		ID:             uuid.NewString(),
		SessionID:      req.SessionID,
		IdempotencyKey: req.IdempotencyKey,
		Status:         domain.CheckoutStatusInitiated,
		Snapshot:       snapshot,
		Attempts:       1,
	}
	if err := s.repo.CreateCheckoutSession(ctx, session); err != nil {
		if errors.Is(err, r.ErrDuplicateIdempotencyKey) {
			return "", ErrCheckoutInProgress
		}
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}
	return session.ID, nil
}

func (s *Service) fail(ctx context.Context, checkoutID string, cause error) {
	status := domain.CheckoutStatusFailed
	outcome := "unavailable"
	if errors.Is(cause, ErrCheckoutRejected) {
		status = domain.CheckoutStatusRejected
		outcome = "rejected"
	}
	s.metrics.CheckoutOutcome(outcome)

	if err := s.repo.FailCheckoutSession(ctx, checkoutID, status, cause.Error()); err != nil {
		s.logger.ErrorContext(ctx, "failed to record checkout failure",
			"checkout_id", checkoutID, "status", status, "error", err)
	}
}

// releaseCart drops the handed-off lines. Lines added while the platform
// call was in flight stay in the cart.
func (s *Service) releaseCart(ctx context.Context, store *cart.Store, handed domain.Cart, revision uint64) error {
	cleared, err := store.ClearIfRevision(ctx, revision)
	if err != nil || cleared {
		return err
	}
	return store.SubtractLines(ctx, handed.Lines)
}

func (s *Service) complete(ctx context.Context, checkoutID, sessionID, checkoutURL string, c domain.Cart, revision uint64, billing domain.CheckoutBilling) error {
	payload := map[string]interface{}{
		"checkout_id":   checkoutID,
		"session_id":    sessionID,
		"checkout_url":  checkoutURL,
		"cart_revision": revision,
		"lines":         c.Lines,
		"item_count":    c.ItemCount(),
		"billing":       billing,
		"handed_off_at": time.Now().UTC(),
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal checkout payload: %w", err)
	}
	return s.repo.CompleteCheckoutSession(ctx, checkoutID, checkoutURL, payloadJSON)
}

func replayResult(session *domain.CheckoutSession) *Result {
	res := &Result{CheckoutID: session.ID, Replayed: true}
	if session.CheckoutURL != nil {
		res.CheckoutURL = *session.CheckoutURL
	}
	var snap domain.CheckoutSnapshot
	if err := json.Unmarshal(session.Snapshot, &snap); err == nil {
		res.Billing = snap.Billing
	}
	return res
}

func validateAddress(addr domain.ShippingAddress) error {
	required := []struct {
		field string
		value string
	}{
		{"first_name", addr.FirstName},
		{"last_name", addr.LastName},
		{"address", addr.Address},
		{"city", addr.City},
		{"postal_code", addr.PostalCode},
		{"country", addr.Country},
		{"email", addr.Email},
	}
	var missing []string
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.field)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidAddress, strings.Join(missing, ", "))
	}
	return nil
}
