package domain

import (
	"strings"

	"github.com/google/uuid"
)

// AddressType tags the role an address plays for a user
type AddressType string

const (
	AddressPayment  AddressType = "payment"
	AddressDelivery AddressType = "delivery"
)

// Valid reports whether t is one of the two address slots
func (t AddressType) Valid() bool {
	return t == AddressPayment || t == AddressDelivery
}

// AddressFields holds the user-editable part of an address
type AddressFields struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	House      string `json:"house"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Normalize trims surrounding whitespace from every field
func (f AddressFields) Normalize() AddressFields {
	return AddressFields{
		Street:     strings.TrimSpace(f.Street),
		City:       strings.TrimSpace(f.City),
		House:      strings.TrimSpace(f.House),
		PostalCode: strings.TrimSpace(f.PostalCode),
		Country:    strings.TrimSpace(f.Country),
	}
}

// MissingFields lists the required fields that are blank. Postal code is optional.
func (f AddressFields) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(f.Street) == "" {
		missing = append(missing, "street")
	}
	if strings.TrimSpace(f.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(f.House) == "" {
		missing = append(missing, "house")
	}
	if strings.TrimSpace(f.Country) == "" {
		missing = append(missing, "country")
	}
	return missing
}

// Address is a user's payment or delivery address. A user holds at most one per type.
type Address struct {
	ID     uuid.UUID   `json:"id" db:"id"`
	UserID uuid.UUID   `json:"user_id" db:"user_id"`
	Type   AddressType `json:"type" db:"address_type"`
	AddressFields
}
