package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bookstore/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user with this username or email already exists")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.User, error)
	UpdateProfile(ctx context.Context, user *domain.User) error
	UpdateCredentials(ctx context.Context, id uuid.UUID, username, passwordHash string) error
	Credit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
	Debit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
}

type userRepository struct {
	db DBTX
}

// NewUserRepository creates a new instance of UserRepository
func NewUserRepository(db DBTX) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, role, username, email, password_hash, first_name, middle_name, last_name, phone, balance, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.ID,
		&user.Role,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.MiddleName,
		&user.LastName,
		&user.Phone,
		&user.Balance,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

// Create inserts a new user into the database using parameterized queries
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, role, username, email, password_hash, first_name, middle_name, last_name, phone, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Role,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.MiddleName,
		user.LastName,
		user.Phone,
		user.Balance,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// FindByUsername retrieves a user by login name
func (r *userRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}

	return user, nil
}

// FindByID retrieves a user by ID
func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return user, nil
}

// FindByIDForUpdate retrieves a user and locks the row until the surrounding
// transaction ends. Outside a transaction the lock is released immediately.
func (r *userRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to lock user: %w", err)
	}

	return user, nil
}

// UpdateProfile overwrites the personal data fields of a user
func (r *userRepository) UpdateProfile(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET first_name = $2, middle_name = $3, last_name = $4, phone = $5, email = $6
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		user.ID, user.FirstName, user.MiddleName, user.LastName, user.Phone, user.Email)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to update profile: %w", err)
	}

	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}

	return nil
}

// UpdateCredentials sets a new username and password hash
func (r *userRepository) UpdateCredentials(ctx context.Context, id uuid.UUID, username, passwordHash string) error {
	query := `UPDATE users SET username = $2, password_hash = $3 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, username, passwordHash)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to update credentials: %w", err)
	}

	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}

	return nil
}

// Credit adds amount to the balance and returns the new balance
func (r *userRepository) Credit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	query := `UPDATE users SET balance = balance + $2 WHERE id = $1 RETURNING balance`

	var balance decimal.Decimal
	if err := r.db.QueryRowContext(ctx, query, id, amount).Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, ErrUserNotFound
		}
		return decimal.Zero, fmt.Errorf("failed to credit balance: %w", err)
	}

	return balance, nil
}

// Debit subtracts amount only if the balance covers it. A short balance
// yields ErrInsufficientFunds and leaves the row untouched.
func (r *userRepository) Debit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	query := `UPDATE users SET balance = balance - $2 WHERE id = $1 AND balance >= $2 RETURNING balance`

	var balance decimal.Decimal
	if err := r.db.QueryRowContext(ctx, query, id, amount).Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, ErrInsufficientFunds
		}
		if isPgError(err, pgCheckViolation) {
			return decimal.Zero, ErrInsufficientFunds
		}
		return decimal.Zero, fmt.Errorf("failed to debit balance: %w", err)
	}

	return balance, nil
}
