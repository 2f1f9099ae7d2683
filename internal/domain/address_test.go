package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddressFieldsMissingFields(t *testing.T) {
	complete := AddressFields{Street: "Main", City: "Springfield", House: "12", Country: "US"}
	assert.Empty(t, complete.MissingFields(), "postal code is optional")

	blank := AddressFields{Street: "  ", City: "Springfield", House: "", Country: "US"}
	assert.Equal(t, []string{"street", "house"}, blank.MissingFields())

	assert.Len(t, AddressFields{}.MissingFields(), 4)
}

func TestAddressFieldsNormalize(t *testing.T) {
	got := AddressFields{Street: " Main ", City: "City\n", PostalCode: " 123 "}.Normalize()
	assert.Equal(t, "Main", got.Street)
	assert.Equal(t, "City", got.City)
	assert.Equal(t, "123", got.PostalCode)
}

func TestAddressTypeValid(t *testing.T) {
	assert.True(t, AddressPayment.Valid())
	assert.True(t, AddressDelivery.Valid())
	assert.False(t, AddressType("billing").Valid())
}
