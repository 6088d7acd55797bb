package catalog

import (
	"context"
	"errors"

	"github.com/fjod/go_storefront/internal/domain"
)

var ErrProductNotFound = errors.New("product not found")

// Catalog is the read side of the product catalog, backed either by the
// commerce platform or by the local development database.
type Catalog interface {
	Products(ctx context.Context) ([]domain.Product, error)
	ProductByHandle(ctx context.Context, handle string) (*domain.Product, error)
}
