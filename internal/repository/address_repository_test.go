package repository

import (
	"context"
	"testing"

	"bookstore/internal/domain"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Feature: bookstore-checkout, Property 12: Address upsert keeps one row per (user, type)
func TestProperty_AddressUpsertIsIdempotent(t *testing.T) {
	repo := NewAddressRepository(testDB)
	ctx := context.Background()

	properties := gopter.NewProperties(nil)

	properties.Property("saving the same address twice leaves exactly one row", prop.ForAll(
		func(street, city, house string, delivery bool) bool {
			user := createTestUser(t, "0")
			kind := domain.AddressPayment
			if delivery {
				kind = domain.AddressDelivery
			}

			fields := domain.AddressFields{Street: street, City: city, House: house, Country: "Norway"}

			first := &domain.Address{UserID: user.ID, Type: kind, AddressFields: fields}
			if err := repo.Upsert(ctx, first); err != nil {
				t.Logf("first upsert: %v", err)
				return false
			}

			second := &domain.Address{UserID: user.ID, Type: kind, AddressFields: fields}
			if err := repo.Upsert(ctx, second); err != nil {
				t.Logf("second upsert: %v", err)
				return false
			}

			var count int
			if err := testDB.QueryRow(
				`SELECT COUNT(*) FROM addresses WHERE user_id = $1 AND address_type = $2`, user.ID, kind,
			).Scan(&count); err != nil {
				return false
			}

			return count == 1 && first.ID == second.ID
		},
		gen.RegexMatch(`[A-Za-z ]{3,30}`),
		gen.RegexMatch(`[A-Za-z]{3,20}`),
		gen.RegexMatch(`[0-9]{1,4}`),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestAddressRepository_UpsertOverwritesInPlace(t *testing.T) {
	ctx := context.Background()
	repo := NewAddressRepository(testDB)
	user := createTestUser(t, "0")

	addr := &domain.Address{UserID: user.ID, Type: domain.AddressDelivery, AddressFields: domain.AddressFields{
		Street: "Main St", City: "Oslo", House: "1", Country: "Norway",
	}}
	require.NoError(t, repo.Upsert(ctx, addr))
	originalID := addr.ID

	moved := &domain.Address{UserID: user.ID, Type: domain.AddressDelivery, AddressFields: domain.AddressFields{
		Street: "Side St", City: "Bergen", House: "2", PostalCode: "5003", Country: "Norway",
	}}
	require.NoError(t, repo.Upsert(ctx, moved))
	assert.Equal(t, originalID, moved.ID)

	stored, err := repo.FindByUserAndType(ctx, user.ID, domain.AddressDelivery)
	require.NoError(t, err)
	assert.Equal(t, "Bergen", stored.City)
	assert.Equal(t, "5003", stored.PostalCode)

	_, err = repo.FindByUserAndType(ctx, user.ID, domain.AddressPayment)
	assert.ErrorIs(t, err, ErrAddressNotFound)

	all, err := repo.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
