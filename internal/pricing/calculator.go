package pricing

import (
	"strings"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type VATResult struct {
	PriceWithVAT decimal.Decimal `json:"price_with_vat"`
	VATAmount    decimal.Decimal `json:"vat_amount"`
	VATRate      decimal.Decimal `json:"vat_rate"`
}

// CalculateVAT applies the VAT of countryCode to subtotal.
// Countries outside the table are charged 0% and get the subtotal back unchanged.
// No rounding happens here.
func CalculateVAT(subtotal decimal.Decimal, countryCode string, useReducedRate bool) VATResult {
	country, ok := LookupRate(countryCode)
	if !ok {
		return VATResult{
			PriceWithVAT: subtotal,
			VATAmount:    decimal.Zero,
			VATRate:      decimal.Zero,
		}
	}

	vatRate := country.StandardRate
	if useReducedRate && len(country.ReducedRates) > 0 {
		vatRate = country.ReducedRates[0]
	}

	vatAmount := subtotal.Mul(vatRate).Div(hundred)
	return VATResult{
		PriceWithVAT: subtotal.Add(vatAmount),
		VATAmount:    vatAmount,
		VATRate:      vatRate,
	}
}

// Calculator assembles checkout totals. VAT is charged on the subtotal only;
// shipping is added untaxed.
type Calculator struct {
	shippingCost decimal.Decimal
}

func NewCalculator(shippingCost decimal.Decimal) *Calculator {
	return &Calculator{shippingCost: shippingCost}
}

func (c *Calculator) ShippingCost() decimal.Decimal {
	return c.shippingCost
}

func (c *Calculator) Quote(subtotal decimal.Decimal, currency, countryCode string, useReducedRate bool) domain.CheckoutBilling {
	vat := CalculateVAT(subtotal, countryCode, useReducedRate)
	return domain.CheckoutBilling{
		Subtotal:     subtotal,
		VATAmount:    vat.VATAmount,
		VATRate:      vat.VATRate,
		ShippingCost: c.shippingCost,
		Total:        subtotal.Add(c.shippingCost).Add(vat.VATAmount),
		Currency:     currency,
	}
}

func normalizeCountry(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
