package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "expected %s, got %s", want, got.String())
}

func TestCalculateVAT_Germany(t *testing.T) {
	res := CalculateVAT(dec("100"), "DE", false)

	assertDecimal(t, "19", res.VATRate)
	assertDecimal(t, "19", res.VATAmount)
	assertDecimal(t, "119", res.PriceWithVAT)
}

func TestCalculateVAT_UnknownCountry(t *testing.T) {
	for _, code := range []string{"XX", "US", "GB", ""} {
		res := CalculateVAT(dec("100"), code, false)

		assertDecimal(t, "0", res.VATRate)
		assertDecimal(t, "0", res.VATAmount)
		assertDecimal(t, "100", res.PriceWithVAT)
	}
}

func TestCalculateVAT_ReducedRateUsesFirstEntry(t *testing.T) {
	res := CalculateVAT(dec("100"), "IE", true)

	assertDecimal(t, "9", res.VATRate)
	assertDecimal(t, "9", res.VATAmount)
	assertDecimal(t, "109", res.PriceWithVAT)
}

func TestCalculateVAT_ReducedRateMissingFallsBackToStandard(t *testing.T) {
	res := CalculateVAT(dec("100"), "DK", true)

	assertDecimal(t, "25", res.VATRate)
	assertDecimal(t, "25", res.VATAmount)
}

func TestCalculateVAT_FractionalRateKeepsPrecision(t *testing.T) {
	res := CalculateVAT(dec("29.99"), "FR", true)

	assertDecimal(t, "5.5", res.VATRate)
	assertDecimal(t, "1.64945", res.VATAmount)
	assertDecimal(t, "31.63945", res.PriceWithVAT)
}

func TestCalculateVAT_RepeatedRecomputationIsStable(t *testing.T) {
	subtotal := dec("59.97")
	first := CalculateVAT(subtotal, "IE", false)
	for _, code := range []string{"DE", "FR", "XX", "IE"} {
		_ = CalculateVAT(subtotal, code, false)
	}
	again := CalculateVAT(subtotal, "IE", false)

	assert.True(t, first.VATAmount.Equal(again.VATAmount))
	assertDecimal(t, "13.7931", again.VATAmount)
}

func TestCalculateVAT_CountryCodeNormalized(t *testing.T) {
	res := CalculateVAT(dec("100"), " de ", false)
	assertDecimal(t, "19", res.VATRate)
}

func TestRates_CoverEUMembers(t *testing.T) {
	rates := Rates()
	require.Len(t, rates, 27)

	de, ok := LookupRate("DE")
	require.True(t, ok)
	assert.Equal(t, "Germany", de.Name)
	require.Len(t, de.ReducedRates, 1)
	assertDecimal(t, "7", de.ReducedRates[0])

	rates[0].Name = "changed"
	at, _ := LookupRate("AT")
	assert.Equal(t, "Austria", at.Name)
}

func TestCalculator_QuoteTaxesSubtotalOnly(t *testing.T) {
	calc := NewCalculator(dec("10"))

	billing := calc.Quote(dec("100"), "EUR", "DE", false)

	assertDecimal(t, "100", billing.Subtotal)
	assertDecimal(t, "19", billing.VATRate)
	assertDecimal(t, "19", billing.VATAmount)
	assertDecimal(t, "10", billing.ShippingCost)
	assertDecimal(t, "129", billing.Total)
	assert.Equal(t, "EUR", billing.Currency)
}

func TestCalculator_QuoteUnsupportedCountry(t *testing.T) {
	calc := NewCalculator(dec("10"))

	billing := calc.Quote(dec("42.50"), "EUR", "US", false)

	assertDecimal(t, "0", billing.VATAmount)
	assertDecimal(t, "52.50", billing.Total)
}

func TestCalculator_QuoteEmptyCart(t *testing.T) {
	calc := NewCalculator(dec("10"))

	billing := calc.Quote(decimal.Zero, "", "DE", false)

	assertDecimal(t, "0", billing.VATAmount)
	assertDecimal(t, "10", billing.Total)
}
