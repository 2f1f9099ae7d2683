package domain

import (
	"strings"
	"time"

	"bookstore/internal/pricing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductTypeBook is the discriminator stored for products extended by a book
const ProductTypeBook = "book"

// Product is the priced, discountable root of every sellable item
type Product struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Discount  decimal.Decimal `json:"discount" db:"discount"`
	Type      string          `json:"product_type" db:"product_type"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// EffectivePrice returns the unit price after the product's discount
func (p Product) EffectivePrice() decimal.Decimal {
	return pricing.EffectiveUnitPrice(p.Price, p.Discount)
}

// Book extends a Product with catalog metadata and live stock
type Book struct {
	Product
	ISBN             string     `json:"isbn" db:"isbn"`
	Title            string     `json:"title" db:"title"`
	Publisher        string     `json:"publisher" db:"publisher"`
	PublishDate      *time.Time `json:"publish_date,omitempty" db:"publish_date"`
	Description      string     `json:"description" db:"description"`
	Genre            string     `json:"genre" db:"genre"`
	Quantity         int        `json:"quantity" db:"quantity"`
	ReservedQuantity int        `json:"reserved_quantity" db:"reserved_quantity"`
	Pages            int        `json:"pages" db:"pages"`
	Authors          []Author   `json:"authors,omitempty"`
}

// InStock reports whether at least one copy can be sold
func (b Book) InStock() bool {
	return b.Quantity > 0
}

// Author writes books; many-to-many with Book
type Author struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	FirstName  string     `json:"first_name" db:"first_name"`
	MiddleName string     `json:"middle_name" db:"middle_name"`
	LastName   string     `json:"last_name" db:"last_name"`
	BirthDate  *time.Time `json:"birth_date,omitempty" db:"birth_date"`
	Country    string     `json:"country" db:"country"`
	Biography  string     `json:"biography" db:"biography"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// FullName joins the non-empty name parts
func (a Author) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{a.FirstName, a.MiddleName, a.LastName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}
