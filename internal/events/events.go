// Package events publishes domain notifications to a message broker.
package events

import (
	"context"
	"time"

	"bookstore/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RoutingKeyOrderPlaced is published once per committed order
const RoutingKeyOrderPlaced = "order.placed"

// Publisher sends a JSON-encoded payload under a routing key
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
	Close() error
}

// OrderPlacedLine is one purchased book in an OrderPlaced event
type OrderPlacedLine struct {
	BookID          uuid.UUID       `json:"book_id"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
}

// OrderPlaced is the payload of RoutingKeyOrderPlaced
type OrderPlaced struct {
	OrderID       uuid.UUID            `json:"order_id"`
	UserID        uuid.UUID            `json:"user_id"`
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
	TotalAmount   decimal.Decimal      `json:"total_amount"`
	Lines         []OrderPlacedLine    `json:"lines"`
	PlacedAt      time.Time            `json:"placed_at"`
}

// NewOrderPlaced builds the event payload for a committed order
func NewOrderPlaced(order *domain.Order) OrderPlaced {
	lines := make([]OrderPlacedLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, OrderPlacedLine{
			BookID:          item.ProductID,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.PriceAtPurchase,
		})
	}
	return OrderPlaced{
		OrderID:       order.ID,
		UserID:        order.UserID,
		PaymentMethod: order.PaymentMethod,
		TotalAmount:   order.TotalAmount,
		Lines:         lines,
		PlacedAt:      order.CreatedAt,
	}
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
func (NopPublisher) Close() error                               { return nil }
