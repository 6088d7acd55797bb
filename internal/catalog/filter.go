package catalog

import (
	"slices"
	"strings"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/shopspring/decimal"
)

const uncategorized = "Uncategorized"

// Filter narrows a product listing. Zero values match everything.
type Filter struct {
	Query    string
	Category string
	Material string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

func (f Filter) IsZero() bool {
	return f.Query == "" && f.Category == "" && f.Material == "" && f.MinPrice == nil && f.MaxPrice == nil
}

// Matches compares price bounds inclusively against the product's minimum variant price.
func (f Filter) Matches(p domain.Product) bool {
	if f.Query != "" {
		term := strings.ToLower(strings.TrimSpace(f.Query))
		if !strings.Contains(strings.ToLower(p.Title), term) &&
			!strings.Contains(strings.ToLower(p.Description), term) {
			return false
		}
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Material != "" && !slices.Contains(p.Materials, f.Material) {
		return false
	}
	price := p.PriceRange.Amount
	if f.MinPrice != nil && price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && price.GreaterThan(*f.MaxPrice) {
		return false
	}
	return true
}

// Apply keeps the order of products.
func Apply(products []domain.Product, f Filter) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if f.Matches(p) {
			out = append(out, p)
		}
	}
	return out
}

type Facets struct {
	Categories []string `json:"categories"`
	Materials  []string `json:"materials"`
}

// BuildFacets lists distinct categories and materials in first-seen order.
// Products without a category are reported as "Uncategorized".
func BuildFacets(products []domain.Product) Facets {
	facets := Facets{Categories: []string{}, Materials: []string{}}
	seenCategory := make(map[string]bool)
	seenMaterial := make(map[string]bool)
	for _, p := range products {
		category := p.Category
		if category == "" {
			category = uncategorized
		}
		if !seenCategory[category] {
			seenCategory[category] = true
			facets.Categories = append(facets.Categories, category)
		}
		for _, m := range p.Materials {
			if !seenMaterial[m] {
				seenMaterial[m] = true
				facets.Materials = append(facets.Materials, m)
			}
		}
	}
	return facets
}
