package domain

import (
	"time"

	"bookstore/internal/pricing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusProcessing: {OrderStatusCompleted, OrderStatusCancelled},
}

// Valid reports whether s is a known status
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether an order in status s may move to next.
// Completed and cancelled are terminal.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PaymentMethod selects how an order is paid
type PaymentMethod string

const (
	// PaymentBalance debits the user's internal balance at checkout
	PaymentBalance PaymentMethod = "balance"
	// PaymentOnDelivery is settled outside the system; no debit happens
	PaymentOnDelivery PaymentMethod = "on_delivery"
)

// Valid reports whether m is a supported payment method
func (m PaymentMethod) Valid() bool {
	return m == PaymentBalance || m == PaymentOnDelivery
}

// Order is created once at checkout and is read-only afterwards
type Order struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	UserID            uuid.UUID       `json:"user_id" db:"user_id"`
	PaymentMethod     PaymentMethod   `json:"payment_method" db:"payment_method"`
	Status            OrderStatus     `json:"status" db:"status"`
	TotalAmount       decimal.Decimal `json:"total_amount" db:"total_amount"`
	PaymentAddressID  uuid.UUID       `json:"payment_address_id" db:"payment_address_id"`
	DeliveryAddressID uuid.UUID       `json:"delivery_address_id" db:"delivery_address_id"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	Items             []OrderItem     `json:"items"`
}

// OrderItem captures the price paid per unit at the moment of sale
type OrderItem struct {
	OrderID         uuid.UUID       `json:"order_id" db:"order_id"`
	ProductID       uuid.UUID       `json:"product_id" db:"product_id"`
	Title           string          `json:"title,omitempty"`
	Quantity        int             `json:"quantity" db:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase" db:"price_at_purchase"`
}

// LineTotal is the captured unit price times quantity
func (i OrderItem) LineTotal() decimal.Decimal {
	return pricing.LineTotal(i.PriceAtPurchase, i.Quantity)
}
