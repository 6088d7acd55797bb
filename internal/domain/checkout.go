package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CheckoutBilling is the computed breakdown sent along with a checkout.
type CheckoutBilling struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	VATAmount    decimal.Decimal `json:"vat_amount"`
	VATRate      decimal.Decimal `json:"vat_rate"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	Total        decimal.Decimal `json:"total"`
	Currency     string          `json:"currency"`
}

// CheckoutSnapshot is the cart state captured when a checkout is attempted.
type CheckoutSnapshot struct {
	Lines      []CartLine      `json:"lines"`
	Address    ShippingAddress `json:"shipping_address"`
	Billing    CheckoutBilling `json:"billing"`
	CapturedAt time.Time       `json:"captured_at"`
}

type CheckoutSession struct {
	ID             string
	SessionID      string
	IdempotencyKey string
	Status         CheckoutStatus
	Snapshot       []byte
	CheckoutURL    *string
	FailureReason  *string
	Attempts       int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
