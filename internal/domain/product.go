package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money mirrors the platform price shape: a decimal amount and an ISO currency code.
type Money struct {
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currencyCode"`
}

// Display rounds to two places, the only place a price gets rounded.
func (m Money) Display() string {
	return fmt.Sprintf("%s %s", m.Amount.StringFixed(2), m.CurrencyCode)
}

type Image struct {
	URL     string `json:"url"`
	AltText string `json:"altText,omitempty"`
}

type Variant struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Price            Money  `json:"price"`
	AvailableForSale bool   `json:"availableForSale"`
}

type Product struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Handle      string    `json:"handle"`
	PriceRange  Money     `json:"priceRange"`
	Images      []Image   `json:"images"`
	Variants    []Variant `json:"variants,omitempty"`
	Category    string    `json:"category,omitempty"`
	Materials   []string  `json:"materials,omitempty"`
}

func (p *Product) Variant(id string) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

// Ref returns the display metadata a cart line keeps about its product.
func (p *Product) Ref() ProductRef {
	ref := ProductRef{
		ID:     p.ID,
		Title:  p.Title,
		Handle: p.Handle,
	}
	if len(p.Images) > 0 {
		img := p.Images[0]
		ref.Image = &img
	}
	return ref
}

// ProductRef is the product identity stored with a cart line.
type ProductRef struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Handle string `json:"handle"`
	Image  *Image `json:"image,omitempty"`
}
