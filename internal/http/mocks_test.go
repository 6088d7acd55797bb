package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/fjod/go_storefront/internal/address"
	"github.com/fjod/go_storefront/internal/cart"
	"github.com/fjod/go_storefront/internal/cart/storage"
	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/checkout"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/pkg/logger"
	"github.com/fjod/go_storefront/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

func eur(amount string) domain.Money {
	return domain.Money{Amount: decimal.RequireFromString(amount), CurrencyCode: "EUR"}
}

var testProducts = []domain.Product{
	{
		ID:          "mock-1",
		Title:       "Geometric Vase",
		Description: "Low-poly vase",
		Handle:      "geometric-vase",
		PriceRange:  eur("29.99"),
		Variants: []domain.Variant{
			{ID: "v-white", Title: "White", Price: eur("29.99"), AvailableForSale: true},
			{ID: "v-black", Title: "Black", Price: eur("29.99"), AvailableForSale: false},
		},
		Category:  "Home Decor",
		Materials: []string{"PLA", "White"},
	},
	{
		ID:          "mock-2",
		Title:       "Phone Stand",
		Description: "Adjustable stand",
		Handle:      "phone-stand",
		PriceRange:  eur("14.99"),
		Variants: []domain.Variant{
			{ID: "v-gray", Title: "Gray", Price: eur("14.99"), AvailableForSale: true},
		},
		Category:  "Gadgets",
		Materials: []string{"ABS", "Gray"},
	},
}

// MockCatalog implements catalog.Catalog for testing
type MockCatalog struct {
	Items []domain.Product
	Err   error
}

func (m *MockCatalog) Products(context.Context) ([]domain.Product, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Items, nil
}

func (m *MockCatalog) ProductByHandle(_ context.Context, handle string) (*domain.Product, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	for i := range m.Items {
		if m.Items[i].Handle == handle {
			p := m.Items[i]
			return &p, nil
		}
	}
	return nil, catalog.ErrProductNotFound
}

// MockCheckoutService implements CheckoutService for testing
type MockCheckoutService struct {
	mu          sync.Mutex
	LastRequest checkout.Request
	LastCountry string
	Result      *checkout.Result
	QuoteResult *checkout.Quote
	Err         error
}

func (m *MockCheckoutService) Quote(_ context.Context, sessionID, countryCode string, _ bool) (*checkout.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRequest.SessionID = sessionID
	m.LastCountry = countryCode
	if m.Err != nil {
		return nil, m.Err
	}
	return m.QuoteResult, nil
}

func (m *MockCheckoutService) Checkout(_ context.Context, req checkout.Request) (*checkout.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRequest = req
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Result, nil
}

// MockAddressService implements AddressService for testing
type MockAddressService struct {
	UserID    string
	Created   *domain.AddressInput
	DeletedID string
	Err       error
}

func (m *MockAddressService) List(_ context.Context, userID string) ([]*domain.Address, error) {
	m.UserID = userID
	if m.Err != nil {
		return nil, m.Err
	}
	return []*domain.Address{{ID: "a1", UserID: userID, IsDefault: true}}, nil
}

func (m *MockAddressService) Get(_ context.Context, userID, addressID string) (*domain.Address, error) {
	m.UserID = userID
	if m.Err != nil {
		return nil, m.Err
	}
	return &domain.Address{ID: addressID, UserID: userID}, nil
}

func (m *MockAddressService) Create(_ context.Context, userID string, in domain.AddressInput) (*domain.Address, error) {
	m.UserID = userID
	m.Created = &in
	if m.Err != nil {
		return nil, m.Err
	}
	return &domain.Address{ID: "new", UserID: userID, Name: in.Name}, nil
}

func (m *MockAddressService) Update(_ context.Context, userID, addressID string, _ domain.AddressPatch) (*domain.Address, error) {
	m.UserID = userID
	if m.Err != nil {
		return nil, m.Err
	}
	return &domain.Address{ID: addressID, UserID: userID}, nil
}

func (m *MockAddressService) Delete(_ context.Context, userID, addressID string) error {
	m.UserID = userID
	m.DeletedID = addressID
	return m.Err
}

var _ AddressService = (*address.Service)(nil)

type testServer struct {
	router    chi.Router
	catalog   *MockCatalog
	checkout  *MockCheckoutService
	addresses *MockAddressService
	metrics   *metrics.ServerMetrics
	pingErr   error
}

func newTestServer() *testServer {
	ts := &testServer{
		catalog:   &MockCatalog{Items: testProducts},
		checkout:  &MockCheckoutService{},
		addresses: &MockAddressService{},
		metrics:   metrics.NewServerMetrics(),
	}
	carts := cart.NewManager(storage.NewMemoryStorage(), logger.Discard())
	ts.router = NewRouter(RouterConfig{
		Cart:     NewCartHandler(carts, ts.catalog, 5*time.Second),
		Products: NewProductHandler(ts.catalog, 5*time.Second),
		Checkout: NewCheckoutHandler(ts.checkout, 5*time.Second),
		Address:  NewAddressHandler(ts.addresses, 5*time.Second),
		Metrics:  ts.metrics,
		Ping:     func(context.Context) error {
			return ts.pingErr
		},
	})
	return ts
}

// do sends a request; headers are given as "Name", "value" pairs.
func (ts *testServer) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}
