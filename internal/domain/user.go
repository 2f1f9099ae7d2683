package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Role is the account type of a user
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

// Valid reports whether r is a known account type
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleCustomer
}

// User represents a registered account together with its balance ledger
type User struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	Role         Role            `json:"role" db:"role"`
	Username     string          `json:"username" db:"username"`
	Email        string          `json:"email" db:"email"`
	PasswordHash string          `json:"-" db:"password_hash"`
	FirstName    string          `json:"first_name" db:"first_name"`
	MiddleName   string          `json:"middle_name" db:"middle_name"`
	LastName     string          `json:"last_name" db:"last_name"`
	Phone        string          `json:"phone" db:"phone"`
	Balance      decimal.Decimal `json:"balance" db:"balance"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// RefreshToken represents a long-lived token used to mint access tokens
type RefreshToken struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Token     string    `json:"token" db:"token"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	Revoked   bool      `json:"revoked" db:"revoked"`
}
