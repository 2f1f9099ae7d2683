package domain

import (
	"time"

	"bookstore/internal/pricing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart is a user's single mutable staging area, created lazily
type Cart struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CartItem is keyed by (cart, product); quantity is always >= 1
type CartItem struct {
	CartID    uuid.UUID `json:"cart_id" db:"cart_id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
}

// CartLine is a cart item joined with the live price and stock of its book
type CartLine struct {
	ProductID uuid.UUID
	Title     string
	Price     decimal.Decimal
	Discount  decimal.Decimal
	Quantity  int
	Stock     int
}

// UnitPrice is the discounted price of one copy
func (l CartLine) UnitPrice() decimal.Decimal {
	return pricing.EffectiveUnitPrice(l.Price, l.Discount)
}

// LineTotal is UnitPrice times the requested quantity
func (l CartLine) LineTotal() decimal.Decimal {
	return pricing.LineTotal(l.UnitPrice(), l.Quantity)
}
