package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bookstore/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrCartNotFound     = errors.New("cart not found")
	ErrCartItemNotFound = errors.New("cart item not found")
)

// CartRepository defines the interface for cart data access
type CartRepository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	FindItem(ctx context.Context, cartID, productID uuid.UUID) (*domain.CartItem, error)
	UpsertItem(ctx context.Context, item *domain.CartItem) error
	DeleteItem(ctx context.Context, cartID, productID uuid.UUID) error
	ListLines(ctx context.Context, cartID uuid.UUID) ([]domain.CartLine, error)
	ListLinesForUpdate(ctx context.Context, cartID uuid.UUID) ([]domain.CartLine, error)
	RemoveLines(ctx context.Context, cartID uuid.UUID, productIDs []uuid.UUID) error
}

type cartRepository struct {
	db DBTX
}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository(db DBTX) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	cart := &domain.Cart{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at FROM carts WHERE user_id = $1`, userID,
	).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to find cart: %w", err)
	}
	return cart, nil
}

// GetOrCreate returns the user's cart, inserting it first if absent.
// Concurrent callers converge on the same row.
func (r *cartRepository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO carts (id, user_id) VALUES ($1, $2) ON CONFLICT (user_id) DO NOTHING`,
		uuid.New(), userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	return r.FindByUserID(ctx, userID)
}

func (r *cartRepository) FindItem(ctx context.Context, cartID, productID uuid.UUID) (*domain.CartItem, error) {
	item := &domain.CartItem{}
	err := r.db.QueryRowContext(ctx,
		`SELECT cart_id, product_id, quantity FROM cart_items WHERE cart_id = $1 AND product_id = $2`,
		cartID, productID,
	).Scan(&item.CartID, &item.ProductID, &item.Quantity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("failed to find cart item: %w", err)
	}
	return item, nil
}

// UpsertItem writes the line quantity, last write wins
func (r *cartRepository) UpsertItem(ctx context.Context, item *domain.CartItem) error {
	query := `
		INSERT INTO cart_items (cart_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity
	`
	if _, err := r.db.ExecContext(ctx, query, item.CartID, item.ProductID, item.Quantity); err != nil {
		return fmt.Errorf("failed to upsert cart item: %w", err)
	}
	return nil
}

// DeleteItem removes a line; deleting a missing line is not an error
func (r *cartRepository) DeleteItem(ctx context.Context, cartID, productID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`, cartID, productID,
	); err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}
	return nil
}

const cartLinesQuery = `
	SELECT ci.product_id, b.title, p.price, p.discount, ci.quantity, b.quantity
	FROM cart_items ci
	JOIN books b ON b.id = ci.product_id
	JOIN products p ON p.id = ci.product_id
	WHERE ci.cart_id = $1
	ORDER BY ci.product_id
`

// ListLines joins each line with the live price and stock of its book.
// Lines whose book no longer exists are skipped.
func (r *cartRepository) ListLines(ctx context.Context, cartID uuid.UUID) ([]domain.CartLine, error) {
	return r.queryLines(ctx, cartLinesQuery, cartID)
}

// ListLinesForUpdate is ListLines that also locks the cart lines and the
// referenced book rows, in product id order, until the surrounding
// transaction ends
func (r *cartRepository) ListLinesForUpdate(ctx context.Context, cartID uuid.UUID) ([]domain.CartLine, error) {
	return r.queryLines(ctx, cartLinesQuery+` FOR UPDATE OF ci, b`, cartID)
}

// RemoveLines deletes the given lines of the cart; other lines and the cart
// row stay
func (r *cartRepository) RemoveLines(ctx context.Context, cartID uuid.UUID, productIDs []uuid.UUID) error {
	for _, productID := range productIDs {
		if _, err := r.db.ExecContext(ctx,
			`DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`, cartID, productID,
		); err != nil {
			return fmt.Errorf("failed to remove cart line %s: %w", productID, err)
		}
	}
	return nil
}

func (r *cartRepository) queryLines(ctx context.Context, query string, cartID uuid.UUID) ([]domain.CartLine, error) {
	rows, err := r.db.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart lines: %w", err)
	}
	defer rows.Close()

	lines := []domain.CartLine{}
	for rows.Next() {
		var l domain.CartLine
		if err := rows.Scan(&l.ProductID, &l.Title, &l.Price, &l.Discount, &l.Quantity, &l.Stock); err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, l)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart lines: %w", err)
	}

	return lines, nil
}
