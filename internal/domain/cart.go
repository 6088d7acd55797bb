package domain

import "github.com/shopspring/decimal"

type CartLine struct {
	Product  ProductRef `json:"product"`
	Variant  Variant    `json:"variant"`
	Quantity int        `json:"quantity"`
}

func (l CartLine) LineTotal() decimal.Decimal {
	return l.Variant.Price.Amount.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is an insertion-ordered set of lines, at most one per variant.
// Totals are always computed from Lines, never stored.
type Cart struct {
	Lines []CartLine `json:"lines"`
}

func (c Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Lines {
		total = total.Add(line.LineTotal())
	}
	return total
}

func (c Cart) ItemCount() int {
	count := 0
	for _, line := range c.Lines {
		count += line.Quantity
	}
	return count
}

// Currency reports the currency of the first line, empty for an empty cart.
func (c Cart) Currency() string {
	if len(c.Lines) == 0 {
		return ""
	}
	return c.Lines[0].Variant.Price.CurrencyCode
}

func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

func (c Cart) Line(variantID string) (CartLine, bool) {
	for _, line := range c.Lines {
		if line.Variant.ID == variantID {
			return line, true
		}
	}
	return CartLine{}, false
}
