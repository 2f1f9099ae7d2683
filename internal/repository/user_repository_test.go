package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"bookstore/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// Feature: bookstore-checkout, Property 1: Registration stores hashed passwords
func TestProperty_RegistrationStoresHashedPasswords(t *testing.T) {
	repo := NewUserRepository(testDB)
	ctx := context.Background()

	properties := gopter.NewProperties(nil)

	properties.Property("passwords are stored as bcrypt hashes, never plaintext", prop.ForAll(
		func(username string, password string) bool {
			username = username + "_" + uuid.New().String()[:6]

			hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
			if err != nil {
				t.Logf("Failed to hash password: %v", err)
				return false
			}

			user := &domain.User{
				ID:           uuid.New(),
				Role:         domain.RoleCustomer,
				Username:     username,
				Email:        username + "@example.com",
				PasswordHash: string(hashedPassword),
				CreatedAt:    time.Now(),
				UpdatedAt:    time.Now(),
			}

			if err := repo.Create(ctx, user); err != nil {
				t.Logf("Failed to create user: %v", err)
				return false
			}

			retrieved, err := repo.FindByUsername(ctx, username)
			if err != nil {
				t.Logf("Failed to find user: %v", err)
				return false
			}

			if retrieved.PasswordHash == password {
				t.Logf("Password was stored as plaintext!")
				return false
			}

			if err := bcrypt.CompareHashAndPassword([]byte(retrieved.PasswordHash), []byte(password)); err != nil {
				t.Logf("Stored password is not a valid bcrypt hash: %v", err)
				return false
			}

			return retrieved.Balance.IsZero() && retrieved.Role == domain.RoleCustomer
		},
		gen.RegexMatch(`[a-z]{5,10}`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestUserRepository_DuplicateUsername(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testDB)
	existing := createTestUser(t, "0")

	dup := &domain.User{
		ID:           uuid.New(),
		Role:         domain.RoleCustomer,
		Username:     existing.Username,
		Email:        uuid.New().String()[:8] + "@example.com",
		PasswordHash: "hash",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	err := repo.Create(ctx, dup)
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestUserRepository_DebitIsConditional(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testDB)
	user := createTestUser(t, "100.00")

	balance, err := repo.Debit(ctx, user.ID, decimal.RequireFromString("90.00"))
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("10.00")), "balance = %s", balance)

	_, err = repo.Debit(ctx, user.ID, decimal.RequireFromString("10.01"))
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	stored, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(decimal.RequireFromString("10.00")), "balance = %s", stored.Balance)
}

func TestUserRepository_CreditAndCredentials(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testDB)
	user := createTestUser(t, "5.50")

	balance, err := repo.Credit(ctx, user.ID, decimal.RequireFromString("4.50"))
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(10)))

	newName := "renamed_" + uuid.New().String()[:8]
	require.NoError(t, repo.UpdateCredentials(ctx, user.ID, newName, "new-hash"))

	stored, err := repo.FindByUsername(ctx, newName)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", stored.PasswordHash)

	_, err = repo.FindByUsername(ctx, user.Username)
	assert.True(t, errors.Is(err, ErrUserNotFound))

	_, err = repo.Credit(ctx, uuid.New(), decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testDB)
	user := createTestUser(t, "0")

	user.FirstName = "Ada"
	user.MiddleName = "King"
	user.LastName = "Lovelace"
	user.Phone = "+44 20 7946 0000"
	require.NoError(t, repo.UpdateProfile(ctx, user))

	stored, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", stored.FirstName)
	assert.Equal(t, "King", stored.MiddleName)
	assert.Equal(t, "Lovelace", stored.LastName)
	assert.Equal(t, "+44 20 7946 0000", stored.Phone)
}
