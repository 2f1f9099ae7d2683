package service

import (
	"errors"
	"fmt"
	"strings"

	"bookstore/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrUnauthenticated         = errors.New("authentication required")
	ErrEmptyCart               = errors.New("cart is empty")
	ErrInsufficientBalance     = errors.New("insufficient balance")
	ErrConcurrentStockConflict = errors.New("stock changed while placing the order, please retry")
	ErrInvalidPaymentMethod    = errors.New("invalid payment method")
	ErrInvalidQuantity         = errors.New("quantity must be at least 1")
	ErrInvalidAmount           = errors.New("amount must be greater than zero")
	ErrInvalidAddressType      = errors.New("address type must be payment or delivery")
	ErrInvalidStatusTransition = errors.New("order status transition not allowed")
)

// InsufficientStockError is raised at checkout when a line asks for more
// copies than are on hand
type InsufficientStockError struct {
	BookID    uuid.UUID
	Title     string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d", e.Title, e.Requested, e.Available)
}

// QuantityExceedsStockError is raised when a cart line would exceed stock
type QuantityExceedsStockError struct {
	BookID    uuid.UUID
	Title     string
	Available int
}

func (e *QuantityExceedsStockError) Error() string {
	return fmt.Sprintf("quantity for %q exceeds stock: available %d", e.Title, e.Available)
}

// OutOfStockError is raised when adding a book with no copies left
type OutOfStockError struct {
	BookID uuid.UUID
	Title  string
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("%q is out of stock", e.Title)
}

// MissingAddressError names the address slot a checkout still needs
type MissingAddressError struct {
	Kind domain.AddressType
}

func (e *MissingAddressError) Error() string {
	return fmt.Sprintf("%s address is missing", e.Kind)
}

// IncompleteAddressError lists the blank required fields of an address
type IncompleteAddressError struct {
	Kind   domain.AddressType
	Fields []string
}

func (e *IncompleteAddressError) Error() string {
	return fmt.Sprintf("%s address is incomplete: missing %s", e.Kind, strings.Join(e.Fields, ", "))
}
