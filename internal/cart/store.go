package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fjod/go_storefront/internal/cart/storage"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity  = errors.New("quantity must be a positive integer")
	ErrCurrencyMismatch = errors.New("variant currency differs from the cart currency")
)

// Store owns the cart of one browsing session. Every mutation persists the
// full snapshot before it becomes visible, so a failed save leaves the cart
// as it was and readers never see totals out of step with the lines.
// The revision grows by one with every persisted mutation.
type Store struct {
	mu        sync.RWMutex
	sessionID string
	storage   storage.SnapshotStorage
	lines     []domain.CartLine
	revision  uint64
	logger    *slog.Logger
}

type snapshot struct {
	Revision uint64            `json:"revision"`
	Lines    []domain.CartLine `json:"lines"`
}

// Load restores the session's cart. A missing snapshot is an empty cart and so
// is one that cannot be parsed (logged, not returned). Storage errors are returned.
func Load(ctx context.Context, st storage.SnapshotStorage, sessionID string, logger *slog.Logger) (*Store, error) {
	s := &Store{
		sessionID: sessionID,
		storage:   st,
		logger:    logger,
	}

	data, err := st.Load(ctx, sessionID)
	if errors.Is(err, storage.ErrSnapshotNotFound) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart snapshot: %w", err)
	}

	snap, err := decodeSnapshot(data)
	if err != nil {
		logger.WarnContext(ctx, "failed to parse cart snapshot, starting with an empty cart",
			"session_id", sessionID, "error", err)
		return s, nil
	}
	s.lines = snap.Lines
	s.revision = snap.Revision
	return s, nil
}

func (s *Store) SessionID() string {
	return s.sessionID
}

// Cart returns a copy of the current lines.
func (s *Store) Cart() domain.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.Cart{Lines: cloneLines(s.lines)}
}

// CartWithRevision returns a copy of the lines together with the revision they belong to.
func (s *Store) CartWithRevision() (domain.Cart, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.Cart{Lines: cloneLines(s.lines)}, s.revision
}

func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

func (s *Store) Subtotal() decimal.Decimal {
	return s.Cart().Subtotal()
}

func (s *Store) ItemCount() int {
	return s.Cart().ItemCount()
}

// AddToCart merges into the line for variant.ID if there is one, otherwise appends.
// All lines of a cart share one currency.
func (s *Store) AddToCart(ctx context.Context, product domain.ProductRef, variant domain.Variant, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.lines) > 0 && s.lines[0].Variant.Price.CurrencyCode != variant.Price.CurrencyCode {
		return fmt.Errorf("%w: cart is in %s, variant %s is in %s", ErrCurrencyMismatch,
			s.lines[0].Variant.Price.CurrencyCode, variant.ID, variant.Price.CurrencyCode)
	}

	next := cloneLines(s.lines)
	if i := indexOf(next, variant.ID); i >= 0 {
		next[i].Quantity += quantity
	} else {
		next = append(next, domain.CartLine{
			Product:  product,
			Variant:  variant,
			Quantity: quantity,
		})
	}
	return s.commit(ctx, next)
}

// UpdateQuantity sets the quantity of a line exactly. Zero or less removes it;
// an unknown variant is ignored.
func (s *Store) UpdateQuantity(ctx context.Context, variantID string, quantity int) error {
	if quantity <= 0 {
		return s.RemoveFromCart(ctx, variantID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.lines, variantID)
	if i < 0 {
		return nil
	}
	next := cloneLines(s.lines)
	next[i].Quantity = quantity
	return s.commit(ctx, next)
}

func (s *Store) RemoveFromCart(ctx context.Context, variantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.lines, variantID)
	if i < 0 {
		return nil
	}
	next := make([]domain.CartLine, 0, len(s.lines)-1)
	next = append(next, s.lines[:i]...)
	next = append(next, s.lines[i+1:]...)
	return s.commit(ctx, next)
}

func (s *Store) ClearCart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(ctx, []domain.CartLine{})
}

// ClearIfRevision empties the cart only if nothing was written since revision.
// It reports whether the cart was cleared.
func (s *Store) ClearIfRevision(ctx context.Context, revision uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.revision != revision {
		return false, nil
	}
	if err := s.commit(ctx, []domain.CartLine{}); err != nil {
		return false, err
	}
	return true, nil
}

// SubtractLines takes the quantities of lines out of the cart, removing lines
// that reach zero. Lines added since are kept.
func (s *Store) SubtractLines(ctx context.Context, lines []domain.CartLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := cloneLines(s.lines)
	changed := false
	for _, l := range lines {
		i := indexOf(next, l.Variant.ID)
		if i < 0 {
			continue
		}
		changed = true
		next[i].Quantity -= l.Quantity
		if next[i].Quantity <= 0 {
			next = append(next[:i], next[i+1:]...)
		}
	}
	if !changed {
		return nil
	}
	return s.commit(ctx, next)
}

// commit must be called with mu held.
func (s *Store) commit(ctx context.Context, next []domain.CartLine) error {
	data, err := encodeSnapshot(snapshot{Revision: s.revision + 1, Lines: next})
	if err != nil {
		return fmt.Errorf("failed to marshal cart snapshot: %w", err)
	}
	if err := s.storage.Save(ctx, s.sessionID, data); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist cart snapshot", "session_id", s.sessionID, "error", err)
		return fmt.Errorf("failed to persist cart snapshot: %w", err)
	}
	s.lines = next
	s.revision++
	return nil
}

func indexOf(lines []domain.CartLine, variantID string) int {
	for i := range lines {
		if lines[i].Variant.ID == variantID {
			return i
		}
	}
	return -1
}

func cloneLines(lines []domain.CartLine) []domain.CartLine {
	out := make([]domain.CartLine, len(lines))
	copy(out, lines)
	return out
}

func encodeSnapshot(snap snapshot) ([]byte, error) {
	if snap.Lines == nil {
		snap.Lines = []domain.CartLine{}
	}
	return json.Marshal(snap)
}

// decodeSnapshot also accepts a bare line array, read as revision 0.
func decodeSnapshot(data []byte) (snapshot, error) {
	var snap snapshot
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &snap.Lines); err != nil {
			return snapshot{}, err
		}
	} else if err := json.Unmarshal(data, &snap); err != nil {
		return snapshot{}, err
	}

	// drop anything a well-behaved writer could not have produced
	seen := make(map[string]bool, len(snap.Lines))
	valid := snap.Lines[:0]
	var currency string
	for _, line := range snap.Lines {
		if line.Variant.ID == "" || line.Quantity < 1 || seen[line.Variant.ID] {
			continue
		}
		if currency == "" {
			currency = line.Variant.Price.CurrencyCode
		} else if line.Variant.Price.CurrencyCode != currency {
			continue
		}
		seen[line.Variant.ID] = true
		valid = append(valid, line)
	}
	snap.Lines = valid
	return snap, nil
}
