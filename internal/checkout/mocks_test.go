package checkout

import (
	"context"
	"sync"

	"github.com/fjod/go_storefront/internal/commerce"
	"github.com/fjod/go_storefront/internal/domain"
	r "github.com/fjod/go_storefront/internal/repository"
)

// MockRepository implements Repository in memory for testing
type MockRepository struct {
	mu       sync.Mutex
	sessions    map[string]*domain.CheckoutSession // by idempotency key
	events      [][]byte
	GetErr      error
	CreateErr   error
	CompleteErr error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{sessions: make(map[string]*domain.CheckoutSession)}
}

func (m *MockRepository) GetCheckoutSessionByIdempotencyKey(_ context.Context, key string) (*domain.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	s, ok := m.sessions[key]
	if !ok {
		return nil, r.ErrCheckoutSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockRepository) CreateCheckoutSession(_ context.Context, session *domain.CheckoutSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	if _, ok := m.sessions[session.IdempotencyKey]; ok {
		return r.ErrDuplicateIdempotencyKey
	}
	cp := *session
	m.sessions[session.IdempotencyKey] = &cp
	return nil
}

func (m *MockRepository) ReopenCheckoutSession(_ context.Context, checkoutID string, snapshot []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.byID(checkoutID)
	if s == nil {
		return r.ErrCheckoutSessionNotFound
	}
	s.Status = domain.CheckoutStatusInitiated
	s.Snapshot = snapshot
	s.FailureReason = nil
	s.Attempts++
	return nil
}

func (m *MockRepository) FailCheckoutSession(_ context.Context, checkoutID string, status domain.CheckoutStatus, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.byID(checkoutID)
	if s == nil {
		return r.ErrCheckoutSessionNotFound
	}
	s.Status = status
	s.FailureReason = &reason
	return nil
}

func (m *MockRepository) CompleteCheckoutSession(_ context.Context, checkoutID, checkoutURL string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CompleteErr != nil {
		return m.CompleteErr
	}
	s := m.byID(checkoutID)
	if s == nil {
		return r.ErrCheckoutSessionNotFound
	}
	s.Status = domain.CheckoutStatusHandedOff
	s.CheckoutURL = &checkoutURL
	m.events = append(m.events, payload)
	return nil
}

func (m *MockRepository) session(key string) *domain.CheckoutSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[key]
}

func (m *MockRepository) byID(id string) *domain.CheckoutSession {
	for _, s := range m.sessions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// MockInitiator implements CheckoutInitiator for testing
type MockInitiator struct {
	URL     string
	Err     error
	Calls   int
	Lines   []domain.CartLine
	Billing domain.CheckoutBilling
	// Block, when set, is waited on before returning.
	Block chan struct{}
	// Started is closed on the first call.
	Started chan struct{}
}

func (m *MockInitiator) Initiate(_ context.Context, lines []domain.CartLine, _ domain.ShippingAddress, billing domain.CheckoutBilling) (string, error) {
	m.Calls++
	m.Lines = lines
	m.Billing = billing
	if m.Started != nil {
		close(m.Started)
		m.Started = nil
	}
	if m.Block != nil {
		<-m.Block
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.URL, nil
}

// MockPlatformClient implements PlatformClient for testing
type MockPlatformClient struct {
	Result *commerce.CheckoutResult
	Err    error
	Calls  int
	Input  commerce.CheckoutInput
}

func (m *MockPlatformClient) CreateCheckout(_ context.Context, input commerce.CheckoutInput) (*commerce.CheckoutResult, error) {
	m.Calls++
	m.Input = input
	return m.Result, m.Err
}
