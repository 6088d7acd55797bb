package domain

import "time"

// ShippingAddress is entered per checkout attempt and is not saved to the account.
type ShippingAddress struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
}

// Address is a saved account address.
type Address struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	Name              string    `json:"name"`
	AddressLine1      string    `json:"address_line1"`
	AddressLine2      *string   `json:"address_line2,omitempty"`
	City              string    `json:"city"`
	State             *string   `json:"state,omitempty"`
	PostalCode        string    `json:"postal_code"`
	Country           string    `json:"country"`
	PhoneNumber       *string   `json:"phone_number,omitempty"`
	IsDefault         bool      `json:"is_default"`
	IsShippingAddress bool      `json:"is_shipping_address"`
	IsBillingAddress  bool      `json:"is_billing_address"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// AddressInput creates an address. A nil IsDefault means "not specified".
type AddressInput struct {
	Name              string  `json:"name"`
	AddressLine1      string  `json:"address_line1"`
	AddressLine2      *string `json:"address_line2,omitempty"`
	City              string  `json:"city"`
	State             *string `json:"state,omitempty"`
	PostalCode        string  `json:"postal_code"`
	Country           string  `json:"country"`
	PhoneNumber       *string `json:"phone_number,omitempty"`
	IsDefault         *bool   `json:"is_default,omitempty"`
	IsShippingAddress *bool   `json:"is_shipping_address,omitempty"`
	IsBillingAddress  *bool   `json:"is_billing_address,omitempty"`
}

// AddressPatch is a partial update; nil fields are left unchanged.
type AddressPatch struct {
	Name              *string `json:"name,omitempty"`
	AddressLine1      *string `json:"address_line1,omitempty"`
	AddressLine2      *string `json:"address_line2,omitempty"`
	City              *string `json:"city,omitempty"`
	State             *string `json:"state,omitempty"`
	PostalCode        *string `json:"postal_code,omitempty"`
	Country           *string `json:"country,omitempty"`
	PhoneNumber       *string `json:"phone_number,omitempty"`
	IsDefault         *bool   `json:"is_default,omitempty"`
	IsShippingAddress *bool   `json:"is_shipping_address,omitempty"`
	IsBillingAddress  *bool   `json:"is_billing_address,omitempty"`
}
