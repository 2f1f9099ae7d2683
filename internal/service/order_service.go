package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookstore/internal/domain"
	"bookstore/internal/events"
	"bookstore/internal/pricing"
	"bookstore/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CheckoutPreview is the confirmation screen shown before an order is placed
type CheckoutPreview struct {
	Lines             []CartLineView       `json:"lines"`
	Total             decimal.Decimal      `json:"total"`
	PaymentMethod     domain.PaymentMethod `json:"payment_method"`
	PaymentAddress    *domain.Address      `json:"payment_address"`
	DeliveryAddress   *domain.Address      `json:"delivery_address"`
	Balance           decimal.Decimal      `json:"balance"`
	BalanceSufficient bool                 `json:"balance_sufficient"`
	Ready             bool                 `json:"ready"`
}

// OrderService turns carts into orders and reads order history
type OrderService interface {
	PreviewCheckout(ctx context.Context, userID uuid.UUID, method domain.PaymentMethod) (*CheckoutPreview, error)
	PlaceOrder(ctx context.Context, userID uuid.UUID, method domain.PaymentMethod) (*domain.Order, error)
	ListOrders(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*domain.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) (*domain.Order, error)
}

type orderService struct {
	repos     repository.Repositories
	tx        repository.Transactor
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(repos repository.Repositories, tx repository.Transactor, publisher events.Publisher, logger *zap.Logger) OrderService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &orderService{
		repos:     repos,
		tx:        tx,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// PreviewCheckout validates identity, cart and stock without writing anything.
// Missing addresses and a short balance are reported through Ready rather
// than as errors.
func (s *orderService) PreviewCheckout(ctx context.Context, userID uuid.UUID, method domain.PaymentMethod) (*CheckoutPreview, error) {
	if method == "" {
		method = domain.PaymentBalance
	}
	if !method.Valid() {
		return nil, ErrInvalidPaymentMethod
	}

	user, lines, err := loadCheckout(ctx, s.repos, userID, false)
	if err != nil {
		return nil, err
	}

	views, total := priceLines(lines)
	preview := &CheckoutPreview{
		Lines:         views,
		Total:         total,
		PaymentMethod: method,
		Balance:       user.Balance,
	}

	if preview.PaymentAddress, err = findAddress(ctx, s.repos.Addresses, userID, domain.AddressPayment); err != nil {
		return nil, err
	}
	if preview.DeliveryAddress, err = findAddress(ctx, s.repos.Addresses, userID, domain.AddressDelivery); err != nil {
		return nil, err
	}

	preview.BalanceSufficient = user.Balance.GreaterThanOrEqual(total)
	preview.Ready = preview.PaymentAddress != nil && preview.DeliveryAddress != nil &&
		(method != domain.PaymentBalance || preview.BalanceSufficient)

	return preview, nil
}

// PlaceOrder validates the cart and commits the order in one transaction.
// Prices are read again at commit time. Nothing is written when any check fails.
func (s *orderService) PlaceOrder(ctx context.Context, userID uuid.UUID, method domain.PaymentMethod) (*domain.Order, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	if !method.Valid() {
		return nil, ErrInvalidPaymentMethod
	}

	var order *domain.Order
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		// Locks the user row, then the cart lines and book rows in product id order
		user, lines, err := loadCheckout(ctx, repos, userID, true)
		if err != nil {
			return err
		}

		paymentAddr, err := findAddress(ctx, repos.Addresses, userID, domain.AddressPayment)
		if err != nil {
			return err
		}
		if paymentAddr == nil {
			return &MissingAddressError{Kind: domain.AddressPayment}
		}

		deliveryAddr, err := findAddress(ctx, repos.Addresses, userID, domain.AddressDelivery)
		if err != nil {
			return err
		}
		if deliveryAddr == nil {
			return &MissingAddressError{Kind: domain.AddressDelivery}
		}

		items := make([]domain.OrderItem, 0, len(lines))
		totals := make([]decimal.Decimal, 0, len(lines))
		for _, l := range lines {
			item := domain.OrderItem{
				ProductID:       l.ProductID,
				Title:           l.Title,
				Quantity:        l.Quantity,
				PriceAtPurchase: l.UnitPrice(),
			}
			items = append(items, item)
			totals = append(totals, item.LineTotal())
		}
		total := pricing.Sum(totals...)

		if method == domain.PaymentBalance && user.Balance.LessThan(total) {
			return ErrInsufficientBalance
		}

		order = &domain.Order{
			ID:                uuid.New(),
			UserID:            user.ID,
			PaymentMethod:     method,
			Status:            domain.OrderStatusProcessing,
			TotalAmount:       total,
			PaymentAddressID:  paymentAddr.ID,
			DeliveryAddressID: deliveryAddr.ID,
			CreatedAt:         s.now(),
			Items:             items,
		}

		if err := repos.Orders.Create(ctx, order); err != nil {
			return err
		}

		for _, item := range items {
			if err := repos.Books.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				if errors.Is(err, repository.ErrStockConflict) {
					return ErrConcurrentStockConflict
				}
				return err
			}
		}

		if method == domain.PaymentBalance {
			if _, err := repos.Users.Debit(ctx, user.ID, total); err != nil {
				if errors.Is(err, repository.ErrInsufficientFunds) {
					return ErrInsufficientBalance
				}
				return err
			}
		}

		cart, err := repos.Carts.FindByUserID(ctx, user.ID)
		if err != nil {
			return err
		}
		purchased := make([]uuid.UUID, 0, len(items))
		for _, item := range items {
			purchased = append(purchased, item.ProductID)
		}
		return repos.Carts.RemoveLines(ctx, cart.ID, purchased)
	})
	if err != nil {
		if errors.Is(err, repository.ErrSerialization) {
			return nil, ErrConcurrentStockConflict
		}
		return nil, err
	}

	s.logger.Info("Order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", order.UserID.String()),
		zap.String("payment_method", string(order.PaymentMethod)),
		zap.String("total", order.TotalAmount.StringFixed(pricing.CurrencyPlaces)),
	)

	if err := s.publisher.Publish(ctx, events.RoutingKeyOrderPlaced, events.NewOrderPlaced(order)); err != nil {
		s.logger.Warn("Failed to publish order event",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	}

	return order, nil
}

// ListOrders returns the user's orders, newest first
func (s *orderService) ListOrders(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}

	orders, err := s.repos.Orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// GetOrder returns one of the user's orders with its lines. Orders of other
// users are reported as not found.
func (s *orderService) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*domain.Order, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}

	order, err := s.repos.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

// UpdateStatus moves an order along its allowed transitions
func (s *orderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	var order *domain.Order
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		order, err = repos.Orders.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(status) {
			return ErrInvalidStatusTransition
		}
		if err := repos.Orders.UpdateStatus(ctx, orderID, status); err != nil {
			return err
		}
		order.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// loadCheckout runs the identity, cart and stock preconditions in order.
// With lock set the user row and book rows are locked for the transaction.
func loadCheckout(ctx context.Context, repos repository.Repositories, userID uuid.UUID, lock bool) (*domain.User, []domain.CartLine, error) {
	if userID == uuid.Nil {
		return nil, nil, ErrUnauthenticated
	}

	var (
		user *domain.User
		err  error
	)
	if lock {
		user, err = repos.Users.FindByIDForUpdate(ctx, userID)
	} else {
		user, err = repos.Users.FindByID(ctx, userID)
	}
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil, ErrUnauthenticated
		}
		return nil, nil, err
	}

	cart, err := repos.Carts.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return nil, nil, ErrEmptyCart
		}
		return nil, nil, err
	}

	var lines []domain.CartLine
	if lock {
		lines, err = repos.Carts.ListLinesForUpdate(ctx, cart.ID)
	} else {
		lines, err = repos.Carts.ListLines(ctx, cart.ID)
	}
	if err != nil {
		return nil, nil, err
	}
	if len(lines) == 0 {
		return nil, nil, ErrEmptyCart
	}

	for _, l := range lines {
		if l.Stock < l.Quantity {
			return nil, nil, &InsufficientStockError{
				BookID:    l.ProductID,
				Title:     l.Title,
				Requested: l.Quantity,
				Available: l.Stock,
			}
		}
	}

	return user, lines, nil
}

// findAddress returns nil without error when the slot is empty
func findAddress(ctx context.Context, addresses repository.AddressRepository, userID uuid.UUID, kind domain.AddressType) (*domain.Address, error) {
	address, err := addresses.FindByUserAndType(ctx, userID, kind)
	if err != nil {
		if errors.Is(err, repository.ErrAddressNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return address, nil
}
