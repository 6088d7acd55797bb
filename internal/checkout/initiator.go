package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/go_storefront/internal/commerce"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/pkg/circuitbreaker"
)

type PlatformClient interface {
	CreateCheckout(ctx context.Context, input commerce.CheckoutInput) (*commerce.CheckoutResult, error)
}

// Initiator hands a cart over to the platform's hosted checkout.
type Initiator struct {
	client  PlatformClient
	breaker *circuitbreaker.Breaker[*commerce.CheckoutResult]
	timeout time.Duration
	logger  *slog.Logger
}

func NewInitiator(client PlatformClient, breaker *circuitbreaker.Breaker[*commerce.CheckoutResult], timeout time.Duration, logger *slog.Logger) *Initiator {
	return &Initiator{
		client:  client,
		breaker: breaker,
		timeout: timeout,
		logger:  logger,
	}
}

// Initiate returns the hosted checkout URL. Any failure is either a
// *RejectedError (ErrCheckoutRejected) or wraps ErrCheckoutUnavailable.
func (i *Initiator) Initiate(ctx context.Context, lines []domain.CartLine, addr domain.ShippingAddress, billing domain.CheckoutBilling) (string, error) {
	input := buildCheckoutInput(lines, addr, billing)

	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	// platform validation errors come back with a nil error and do not trip the breaker
	result, err := i.breaker.Execute(func() (*commerce.CheckoutResult, error) {
		return i.client.CreateCheckout(ctx, input)
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrOpen) {
			i.logger.WarnContext(ctx, "checkout breaker open, refusing handoff")
		} else {
			i.logger.ErrorContext(ctx, "checkout handoff failed", "error", err)
		}
		return "", fmt.Errorf("%w: %v", ErrCheckoutUnavailable, err)
	}

	if len(result.UserErrors) > 0 {
		first := result.UserErrors[0]
		i.logger.InfoContext(ctx, "checkout rejected by platform",
			"code", first.Code, "message", first.Message, "errors", len(result.UserErrors))
		return "", &RejectedError{Code: first.Code, Field: first.Field, Message: first.Message}
	}
	if result.WebURL == "" {
		return "", fmt.Errorf("%w: platform returned no checkout url", ErrCheckoutUnavailable)
	}
	return result.WebURL, nil
}

func buildCheckoutInput(lines []domain.CartLine, addr domain.ShippingAddress, billing domain.CheckoutBilling) commerce.CheckoutInput {
	items := make([]commerce.LineItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, commerce.LineItem{
			VariantID: line.Variant.ID,
			Quantity:  line.Quantity,
		})
	}

	return commerce.CheckoutInput{
		LineItems: items,
		ShippingAddress: commerce.MailingAddress{
			Address1:  addr.Address,
			City:      addr.City,
			Country:   addr.Country,
			FirstName: addr.FirstName,
			LastName:  addr.LastName,
			Phone:     addr.Phone,
			Zip:       addr.PostalCode,
		},
		Email: addr.Email,
		CustomAttributes: []commerce.Attribute{
			{Key: "subtotal", Value: billing.Subtotal.String()},
			{Key: "vat_rate", Value: billing.VATRate.String()},
			{Key: "vat_amount", Value: billing.VATAmount.String()},
			{Key: "shipping_cost", Value: billing.ShippingCost.String()},
			{Key: "total", Value: billing.Total.String()},
			{Key: "currency", Value: billing.Currency},
		},
	}
}
