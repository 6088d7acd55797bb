package commerce

import (
	"context"

	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/domain"
)

const productsQuery = `
query GetProducts {
  products(first: 100) {
    edges {
      node {
        id
        title
        description
        handle
        priceRange { minVariantPrice { amount currencyCode } }
        images(first: 1) { edges { node { url altText } } }
      }
    }
  }
}`

const productByHandleQuery = `
query GetProduct($handle: String!) {
  product(handle: $handle) {
    id
    title
    description
    handle
    priceRange { minVariantPrice { amount currencyCode } }
    images(first: 5) { edges { node { url altText } } }
    variants(first: 10) {
      edges {
        node {
          id
          title
          price { amount currencyCode }
          availableForSale
        }
      }
    }
  }
}`

type imageEdge struct {
	Node struct {
		URL     string  `json:"url"`
		AltText *string `json:"altText"`
	} `json:"node"`
}

type variantEdge struct {
	Node domain.Variant `json:"node"`
}

type productNode struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Handle      string `json:"handle"`
	PriceRange  struct {
		MinVariantPrice domain.Money `json:"minVariantPrice"`
	} `json:"priceRange"`
	Images struct {
		Edges []imageEdge `json:"edges"`
	} `json:"images"`
	Variants struct {
		Edges []variantEdge `json:"edges"`
	} `json:"variants"`
}

func (n productNode) toDomain() domain.Product {
	p := domain.Product{
		ID:          n.ID,
		Title:       n.Title,
		Description: n.Description,
		Handle:      n.Handle,
		PriceRange:  n.PriceRange.MinVariantPrice,
		Images:      make([]domain.Image, 0, len(n.Images.Edges)),
	}
	for _, e := range n.Images.Edges {
		img := domain.Image{URL: e.Node.URL}
		if e.Node.AltText != nil {
			img.AltText = *e.Node.AltText
		}
		p.Images = append(p.Images, img)
	}
	for _, e := range n.Variants.Edges {
		p.Variants = append(p.Variants, e.Node)
	}
	return p
}

// Products lists up to the first hundred products, without variants.
func (c *Client) Products(ctx context.Context) ([]domain.Product, error) {
	var data struct {
		Products struct {
			Edges []struct {
				Node productNode `json:"node"`
			} `json:"edges"`
		} `json:"products"`
	}
	if err := c.do(ctx, productsQuery, nil, &data); err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(data.Products.Edges))
	for _, e := range data.Products.Edges {
		products = append(products, e.Node.toDomain())
	}
	return products, nil
}

func (c *Client) ProductByHandle(ctx context.Context, handle string) (*domain.Product, error) {
	var data struct {
		Product *productNode `json:"product"`
	}
	if err := c.do(ctx, productByHandleQuery, map[string]any{"handle": handle}, &data); err != nil {
		return nil, err
	}
	if data.Product == nil {
		return nil, catalog.ErrProductNotFound
	}
	p := data.Product.toDomain()
	return &p, nil
}
