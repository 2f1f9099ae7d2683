package service

import (
	"context"
	"errors"
	"fmt"

	"bookstore/internal/domain"
	"bookstore/internal/pricing"
	"bookstore/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartLineView is a priced cart line as shown to the customer
type CartLineView struct {
	BookID    uuid.UUID       `json:"book_id"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Discount  decimal.Decimal `json:"discount"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// CartView is the read-only projection of a cart
type CartView struct {
	CartID uuid.UUID       `json:"cart_id"`
	Lines  []CartLineView  `json:"lines"`
	Total  decimal.Decimal `json:"total"`
}

// CartService defines the cart operations of a single user
type CartService interface {
	GetOrCreateCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	AddItem(ctx context.Context, userID, bookID uuid.UUID, increment int) (*domain.CartItem, error)
	SetQuantity(ctx context.Context, userID, bookID uuid.UUID, quantity int) (*domain.CartItem, error)
	RemoveItem(ctx context.Context, userID, bookID uuid.UUID) error
	View(ctx context.Context, userID uuid.UUID) (*CartView, error)
}

type cartService struct {
	users repository.UserRepository
	carts repository.CartRepository
	books repository.BookRepository
}

// NewCartService creates a new instance of CartService
func NewCartService(users repository.UserRepository, carts repository.CartRepository, books repository.BookRepository) CartService {
	return &cartService{users: users, carts: carts, books: books}
}

// GetOrCreateCart returns the user's cart, creating it on first use
func (s *cartService) GetOrCreateCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return cart, nil
}

// AddItem adds increment copies of a book, checking live stock
func (s *cartService) AddItem(ctx context.Context, userID, bookID uuid.UUID, increment int) (*domain.CartItem, error) {
	if increment < 1 {
		return nil, ErrInvalidQuantity
	}

	cart, err := s.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	book, err := s.books.FindByID(ctx, bookID)
	if err != nil {
		return nil, err
	}

	current := 0
	existing, err := s.carts.FindItem(ctx, cart.ID, bookID)
	switch {
	case err == nil:
		current = existing.Quantity
	case errors.Is(err, repository.ErrCartItemNotFound):
		if book.Quantity < 1 {
			return nil, &OutOfStockError{BookID: book.ID, Title: book.Title}
		}
	default:
		return nil, fmt.Errorf("failed to read cart line: %w", err)
	}

	if current+increment > book.Quantity {
		return nil, &QuantityExceedsStockError{BookID: book.ID, Title: book.Title, Available: book.Quantity}
	}

	item := &domain.CartItem{CartID: cart.ID, ProductID: bookID, Quantity: current + increment}
	if err := s.carts.UpsertItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to add to cart: %w", err)
	}

	return item, nil
}

// SetQuantity overwrites a line's quantity. A quantity below one removes
// the line and returns a nil item.
func (s *cartService) SetQuantity(ctx context.Context, userID, bookID uuid.UUID, quantity int) (*domain.CartItem, error) {
	cart, err := s.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if _, err := s.carts.FindItem(ctx, cart.ID, bookID); err != nil {
		return nil, err
	}

	if quantity < 1 {
		if err := s.carts.DeleteItem(ctx, cart.ID, bookID); err != nil {
			return nil, fmt.Errorf("failed to remove cart line: %w", err)
		}
		return nil, nil
	}

	book, err := s.books.FindByID(ctx, bookID)
	if err != nil {
		return nil, err
	}

	if quantity > book.Quantity {
		return nil, &QuantityExceedsStockError{BookID: book.ID, Title: book.Title, Available: book.Quantity}
	}

	item := &domain.CartItem{CartID: cart.ID, ProductID: bookID, Quantity: quantity}
	if err := s.carts.UpsertItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to update cart line: %w", err)
	}

	return item, nil
}

// RemoveItem deletes a line; removing an absent line is a no-op
func (s *cartService) RemoveItem(ctx context.Context, userID, bookID uuid.UUID) error {
	cart, err := s.GetOrCreateCart(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.carts.DeleteItem(ctx, cart.ID, bookID); err != nil {
		return fmt.Errorf("failed to remove cart line: %w", err)
	}
	return nil
}

// View prices every line with the current discount and sums the total
func (s *cartService) View(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	cart, err := s.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	lines, err := s.carts.ListLines(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	views, total := priceLines(lines)
	return &CartView{CartID: cart.ID, Lines: views, Total: total}, nil
}

func (s *cartService) requireUser(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return ErrUnauthenticated
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUnauthenticated
		}
		return fmt.Errorf("failed to resolve user: %w", err)
	}
	return nil
}

// priceLines projects cart lines into views and returns the grand total
func priceLines(lines []domain.CartLine) ([]CartLineView, decimal.Decimal) {
	views := make([]CartLineView, 0, len(lines))
	totals := make([]decimal.Decimal, 0, len(lines))
	for _, l := range lines {
		lineTotal := l.LineTotal()
		views = append(views, CartLineView{
			BookID:    l.ProductID,
			Title:     l.Title,
			Quantity:  l.Quantity,
			Price:     l.Price,
			Discount:  l.Discount,
			UnitPrice: l.UnitPrice(),
			LineTotal: lineTotal,
		})
		totals = append(totals, lineTotal)
	}
	return views, pricing.Sum(totals...)
}
