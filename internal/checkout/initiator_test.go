package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fjod/go_storefront/internal/commerce"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/pkg/circuitbreaker"
	"github.com/fjod/go_storefront/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLines() []domain.CartLine {
	return []domain.CartLine{
		{
			Product:  domain.ProductRef{ID: "p1", Title: "Geometric Vase", Handle: "geometric-vase"},
			Variant:  domain.Variant{ID: "v1", Title: "White", Price: domain.Money{Amount: decimal.RequireFromString("29.99"), CurrencyCode: "EUR"}},
			Quantity: 2,
		},
		{
			Product:  domain.ProductRef{ID: "p2", Title: "Phone Stand", Handle: "phone-stand"},
			Variant:  domain.Variant{ID: "v2", Title: "Gray", Price: domain.Money{Amount: decimal.RequireFromString("19.99"), CurrencyCode: "EUR"}},
			Quantity: 1,
		},
	}
}

func testAddress() domain.ShippingAddress {
	return domain.ShippingAddress{
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Address:    "Unter den Linden 1",
		City:       "Berlin",
		PostalCode: "10117",
		Country:    "DE",
		Email:      "ada@example.com",
		Phone:      "+49 30 123456",
	}
}

func testBilling() domain.CheckoutBilling {
	return domain.CheckoutBilling{
		Subtotal:     decimal.RequireFromString("79.97"),
		VATRate:      decimal.NewFromInt(19),
		VATAmount:    decimal.RequireFromString("15.1943"),
		ShippingCost: decimal.NewFromInt(10),
		Total:        decimal.RequireFromString("105.1643"),
		Currency:     "EUR",
	}
}

func newTestInitiator(client PlatformClient, trip uint32) *Initiator {
	settings := circuitbreaker.DefaultSettings("test-checkout")
	settings.ConsecutiveFailures = trip
	settings.OpenTimeout = time.Minute
	settings.Logger = logger.Discard()
	breaker := circuitbreaker.New[*commerce.CheckoutResult](settings)
	return NewInitiator(client, breaker, time.Second, logger.Discard())
}

func TestInitiate_Success(t *testing.T) {
	client := &MockPlatformClient{Result: &commerce.CheckoutResult{WebURL: "https://shop.example.com/checkouts/1"}}
	initiator := newTestInitiator(client, 5)

	url, err := initiator.Initiate(context.Background(), testLines(), testAddress(), testBilling())

	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com/checkouts/1", url)

	in := client.Input
	require.Len(t, in.LineItems, 2)
	assert.Equal(t, commerce.LineItem{VariantID: "v1", Quantity: 2}, in.LineItems[0])
	assert.Equal(t, commerce.LineItem{VariantID: "v2", Quantity: 1}, in.LineItems[1])
	assert.Equal(t, "Unter den Linden 1", in.ShippingAddress.Address1)
	assert.Equal(t, "10117", in.ShippingAddress.Zip)
	assert.Equal(t, "DE", in.ShippingAddress.Country)
	assert.Equal(t, "ada@example.com", in.Email)
	assert.Contains(t, in.CustomAttributes, commerce.Attribute{Key: "total", Value: "105.1643"})
	assert.Contains(t, in.CustomAttributes, commerce.Attribute{Key: "vat_rate", Value: "19"})
}

func TestInitiate_RejectedCarriesFirstMessage(t *testing.T) {
	client := &MockPlatformClient{Result: &commerce.CheckoutResult{UserErrors: []commerce.UserError{
		{Code: "INVALID", Field: []string{"shippingAddress", "zip"}, Message: "Zip is invalid"},
		{Code: "INVALID", Message: "Email is invalid"},
	}}}
	initiator := newTestInitiator(client, 5)

	url, err := initiator.Initiate(context.Background(), testLines(), testAddress(), testBilling())

	assert.Empty(t, url)
	require.ErrorIs(t, err, ErrCheckoutRejected)
	assert.NotErrorIs(t, err, ErrCheckoutUnavailable)

	var rejected *RejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, "Zip is invalid", rejected.Message)
	assert.Equal(t, []string{"shippingAddress", "zip"}, rejected.Field)
}

func TestInitiate_TransportFailureIsUnavailable(t *testing.T) {
	client := &MockPlatformClient{Err: errors.Join(commerce.ErrUnavailable, errors.New("connection reset"))}
	initiator := newTestInitiator(client, 5)

	_, err := initiator.Initiate(context.Background(), testLines(), testAddress(), testBilling())

	assert.ErrorIs(t, err, ErrCheckoutUnavailable)
	assert.NotErrorIs(t, err, ErrCheckoutRejected)
}

func TestInitiate_MissingURLIsUnavailable(t *testing.T) {
	client := &MockPlatformClient{Result: &commerce.CheckoutResult{}}
	initiator := newTestInitiator(client, 5)

	_, err := initiator.Initiate(context.Background(), testLines(), testAddress(), testBilling())

	assert.ErrorIs(t, err, ErrCheckoutUnavailable)
}

func TestInitiate_RejectionsDoNotTripBreaker(t *testing.T) {
	client := &MockPlatformClient{Result: &commerce.CheckoutResult{UserErrors: []commerce.UserError{{Message: "bad"}}}}
	initiator := newTestInitiator(client, 2)

	for i := 0; i < 5; i++ {
		_, err := initiator.Initiate(context.Background(), testLines(), testAddress(), testBilling())
		assert.ErrorIs(t, err, ErrCheckoutRejected)
	}
	assert.Equal(t, 5, client.Calls)
}

func TestInitiate_OpenBreakerShortCircuits(t *testing.T) {
	client := &MockPlatformClient{Err: commerce.ErrUnavailable}
	initiator := newTestInitiator(client, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := initiator.Initiate(ctx, testLines(), testAddress(), testBilling())
		assert.ErrorIs(t, err, ErrCheckoutUnavailable)
	}
	require.Equal(t, 2, client.Calls)

	_, err := initiator.Initiate(ctx, testLines(), testAddress(), testBilling())

	assert.ErrorIs(t, err, ErrCheckoutUnavailable)
	assert.Equal(t, 2, client.Calls)
}
