package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/fjod/go_storefront/internal/commerce"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListProducts_All(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(http.MethodGet, "/api/v1/products", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ProductsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, []string{"Home Decor", "Gadgets"}, resp.Facets.Categories)
}

func TestListProducts_Filtered(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(http.MethodGet, "/api/v1/products?category=Gadgets&max_price=14.99", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ProductsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "phone-stand", resp.Products[0].Handle)
	// facets still describe the whole catalog
	assert.Len(t, resp.Facets.Categories, 2)
}

func TestListProducts_Query(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(http.MethodGet, "/api/v1/products?q=VASE", "")

	var resp ProductsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "geometric-vase", resp.Products[0].Handle)
}

func TestListProducts_InvalidPrice(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(http.MethodGet, "/api/v1/products?min_price=cheap", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListProducts_CatalogUnavailable(t *testing.T) {
	ts := newTestServer()
	ts.catalog.Err = fmt.Errorf("%w: timeout", commerce.ErrUnavailable)

	rec := ts.do(http.MethodGet, "/api/v1/products", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetProduct(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(http.MethodGet, "/api/v1/products/geometric-vase", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodGet, "/api/v1/products/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
