package commerce

import (
	"context"
	"fmt"
)

const checkoutCreateMutation = `
mutation checkoutCreate($input: CheckoutCreateInput!) {
  checkoutCreate(input: $input) {
    checkout {
      id
      webUrl
    }
    checkoutUserErrors {
      code
      field
      message
    }
  }
}`

type LineItem struct {
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

type MailingAddress struct {
	Address1  string `json:"address1"`
	City      string `json:"city"`
	Country   string `json:"country"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Province  string `json:"province"`
	Zip       string `json:"zip"`
}

type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type CheckoutInput struct {
	LineItems        []LineItem     `json:"lineItems"`
	ShippingAddress  MailingAddress `json:"shippingAddress"`
	Email            string         `json:"email,omitempty"`
	CustomAttributes []Attribute    `json:"customAttributes,omitempty"`
}

type UserError struct {
	Code    string   `json:"code"`
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

// CheckoutResult holds either the hosted checkout URL or the validation
// errors the platform returned instead.
type CheckoutResult struct {
	CheckoutID string
	WebURL     string
	UserErrors []UserError
}

func (c *Client) CreateCheckout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	var data struct {
		CheckoutCreate *struct {
			Checkout *struct {
				ID     string `json:"id"`
				WebURL string `json:"webUrl"`
			} `json:"checkout"`
			CheckoutUserErrors []UserError `json:"checkoutUserErrors"`
		} `json:"checkoutCreate"`
	}
	if err := c.do(ctx, checkoutCreateMutation, map[string]any{"input": input}, &data); err != nil {
		return nil, err
	}
	if data.CheckoutCreate == nil {
		return nil, fmt.Errorf("%w: checkoutCreate missing from response", ErrUnavailable)
	}

	result := &CheckoutResult{UserErrors: data.CheckoutCreate.CheckoutUserErrors}
	if len(result.UserErrors) > 0 {
		return result, nil
	}
	if data.CheckoutCreate.Checkout == nil || data.CheckoutCreate.Checkout.WebURL == "" {
		return nil, fmt.Errorf("%w: checkout created without a web url", ErrUnavailable)
	}
	result.CheckoutID = data.CheckoutCreate.Checkout.ID
	result.WebURL = data.CheckoutCreate.Checkout.WebURL
	return result, nil
}
