package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/fjod/go_storefront/internal/address"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddresses_RequireUser(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(http.MethodGet, "/api/v1/account/addresses", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAddresses_List(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(http.MethodGet, "/api/v1/account/addresses", "", UserIDHeader, "user-1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", ts.addresses.UserID)
	var resp AddressesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Addresses, 1)
	assert.True(t, resp.Addresses[0].IsDefault)
}

func TestAddresses_Create(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(http.MethodPost, "/api/v1/account/addresses",
		`{"name":"Home","address_line1":"Main St 1","city":"Berlin","postal_code":"10115","country":"DE","is_default":true}`,
		UserIDHeader, "user-1")

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, ts.addresses.Created)
	assert.Equal(t, "Home", ts.addresses.Created.Name)
	require.NotNil(t, ts.addresses.Created.IsDefault)
	assert.True(t, *ts.addresses.Created.IsDefault)
}

func TestAddresses_UpdateAndGet(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(http.MethodPatch, "/api/v1/account/addresses/a1", `{"city":"Munich"}`, UserIDHeader, "user-1")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodGet, "/api/v1/account/addresses/a1", "", UserIDHeader, "user-1")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAddresses_Delete(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(http.MethodDelete, "/api/v1/account/addresses/a1", "", UserIDHeader, "user-1")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "a1", ts.addresses.DeletedID)
}

func TestAddresses_Errors(t *testing.T) {
	ts := newTestServer()

	ts.addresses.Err = address.ErrAddressNotFound
	rec := ts.do(http.MethodGet, "/api/v1/account/addresses/missing", "", UserIDHeader, "user-1")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	ts.addresses.Err = fmt.Errorf("%w: city required", address.ErrInvalidAddress)
	rec = ts.do(http.MethodPost, "/api/v1/account/addresses", `{"name":"x"}`, UserIDHeader, "user-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
