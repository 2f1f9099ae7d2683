package service

import (
	"context"
	"fmt"

	"bookstore/internal/domain"
	"bookstore/internal/repository"

	"github.com/google/uuid"
)

// AddressService manages the payment and delivery addresses of a user
type AddressService interface {
	SaveAddress(ctx context.Context, userID uuid.UUID, addressType domain.AddressType, fields domain.AddressFields) (*domain.Address, error)
	ListAddresses(ctx context.Context, userID uuid.UUID) ([]*domain.Address, error)
}

type addressService struct {
	addresses repository.AddressRepository
}

// NewAddressService creates a new instance of AddressService
func NewAddressService(addresses repository.AddressRepository) AddressService {
	return &addressService{addresses: addresses}
}

// SaveAddress validates and upserts the user's address of the given type.
// Saving identical fields twice leaves one unchanged row.
func (s *addressService) SaveAddress(ctx context.Context, userID uuid.UUID, addressType domain.AddressType, fields domain.AddressFields) (*domain.Address, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	if !addressType.Valid() {
		return nil, ErrInvalidAddressType
	}

	fields = fields.Normalize()
	if missing := fields.MissingFields(); len(missing) > 0 {
		return nil, &IncompleteAddressError{Kind: addressType, Fields: missing}
	}

	address := &domain.Address{UserID: userID, Type: addressType, AddressFields: fields}
	if err := s.addresses.Upsert(ctx, address); err != nil {
		return nil, fmt.Errorf("failed to save address: %w", err)
	}

	return address, nil
}

func (s *addressService) ListAddresses(ctx context.Context, userID uuid.UUID) ([]*domain.Address, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}

	addresses, err := s.addresses.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	return addresses, nil
}
