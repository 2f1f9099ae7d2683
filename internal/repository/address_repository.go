package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bookstore/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrAddressNotFound = errors.New("address not found")
)

// AddressRepository defines the interface for address data access
type AddressRepository interface {
	Upsert(ctx context.Context, address *domain.Address) error
	FindByUserAndType(ctx context.Context, userID uuid.UUID, addressType domain.AddressType) (*domain.Address, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Address, error)
}

type addressRepository struct {
	db DBTX
}

// NewAddressRepository creates a new instance of AddressRepository
func NewAddressRepository(db DBTX) AddressRepository {
	return &addressRepository{db: db}
}

// Upsert inserts the address or overwrites the fields of the existing one for
// the same (user, type). address.ID is set to the stored row's id.
func (r *addressRepository) Upsert(ctx context.Context, address *domain.Address) error {
	if address.ID == uuid.Nil {
		address.ID = uuid.New()
	}

	query := `
		INSERT INTO addresses (id, user_id, address_type, street, city, house, postal_code, country)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, address_type) DO UPDATE
		SET street = EXCLUDED.street,
		    city = EXCLUDED.city,
		    house = EXCLUDED.house,
		    postal_code = EXCLUDED.postal_code,
		    country = EXCLUDED.country
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		address.ID,
		address.UserID,
		address.Type,
		address.Street,
		address.City,
		address.House,
		address.PostalCode,
		address.Country,
	).Scan(&address.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert address: %w", err)
	}

	return nil
}

// FindByUserAndType returns the user's address in the given slot
func (r *addressRepository) FindByUserAndType(ctx context.Context, userID uuid.UUID, addressType domain.AddressType) (*domain.Address, error) {
	query := `
		SELECT id, user_id, address_type, street, city, house, postal_code, country
		FROM addresses
		WHERE user_id = $1 AND address_type = $2
	`

	address, err := scanAddress(r.db.QueryRowContext(ctx, query, userID, addressType))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAddressNotFound
		}
		return nil, fmt.Errorf("failed to find address: %w", err)
	}

	return address, nil
}

// ListByUser returns all addresses of a user ordered by type
func (r *addressRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Address, error) {
	query := `
		SELECT id, user_id, address_type, street, city, house, postal_code, country
		FROM addresses
		WHERE user_id = $1
		ORDER BY address_type
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	defer rows.Close()

	addresses := []*domain.Address{}
	for rows.Next() {
		address, err := scanAddress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		addresses = append(addresses, address)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating addresses: %w", err)
	}

	return addresses, nil
}

func scanAddress(row interface{ Scan(...any) error }) (*domain.Address, error) {
	a := &domain.Address{}
	err := row.Scan(&a.ID, &a.UserID, &a.Type, &a.Street, &a.City, &a.House, &a.PostalCode, &a.Country)
	return a, err
}
