package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookstore/internal/domain"
	"bookstore/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPrice    = errors.New("price must not be negative")
	ErrInvalidDiscount = errors.New("discount must be between 0 and 100")
	ErrInvalidStock    = errors.New("stock must not be negative")
)

// NewBookInput describes a book to add to the catalog
type NewBookInput struct {
	ISBN        string
	Title       string
	Publisher   string
	PublishDate *time.Time
	Description string
	Genre       string
	Pages       int
	Price       decimal.Decimal
	Discount    decimal.Decimal
	Quantity    int
	AuthorIDs   []uuid.UUID
}

// BookUpdate carries the fields an administrator may change; nil leaves a field as is
type BookUpdate struct {
	Price            *decimal.Decimal
	Discount         *decimal.Decimal
	Quantity         *int
	ReservedQuantity *int
}

// InventoryService is the administrative side of the catalog
type InventoryService interface {
	CreateAuthor(ctx context.Context, author *domain.Author) (*domain.Author, error)
	UpdateAuthor(ctx context.Context, id uuid.UUID, author *domain.Author) (*domain.Author, error)
	CreateBook(ctx context.Context, in NewBookInput) (*domain.Book, error)
	UpdateBook(ctx context.Context, id uuid.UUID, update BookUpdate) (*domain.Book, error)
}

type inventoryService struct {
	tx      repository.Transactor
	authors repository.AuthorRepository
}

// NewInventoryService creates a new instance of InventoryService
func NewInventoryService(tx repository.Transactor, authors repository.AuthorRepository) InventoryService {
	return &inventoryService{tx: tx, authors: authors}
}

func (s *inventoryService) CreateAuthor(ctx context.Context, author *domain.Author) (*domain.Author, error) {
	author.ID = uuid.New()
	author.FirstName = strings.TrimSpace(author.FirstName)
	author.LastName = strings.TrimSpace(author.LastName)
	author.CreatedAt = time.Now()

	if err := s.authors.Create(ctx, author); err != nil {
		return nil, fmt.Errorf("failed to create author: %w", err)
	}
	return author, nil
}

// UpdateAuthor replaces the editable fields of an existing author
func (s *inventoryService) UpdateAuthor(ctx context.Context, id uuid.UUID, author *domain.Author) (*domain.Author, error) {
	author.ID = id
	author.FirstName = strings.TrimSpace(author.FirstName)
	author.LastName = strings.TrimSpace(author.LastName)

	if err := s.authors.Update(ctx, author); err != nil {
		if errors.Is(err, repository.ErrAuthorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update author: %w", err)
	}
	return s.authors.FindByID(ctx, id)
}

// CreateBook writes the product, the book and its author links atomically
func (s *inventoryService) CreateBook(ctx context.Context, in NewBookInput) (*domain.Book, error) {
	if err := validatePricing(in.Price, in.Discount); err != nil {
		return nil, err
	}
	if in.Quantity < 0 {
		return nil, ErrInvalidStock
	}

	now := time.Now()
	book := &domain.Book{
		Product: domain.Product{
			ID:        uuid.New(),
			Price:     in.Price.Round(2),
			Discount:  in.Discount.Round(2),
			Type:      domain.ProductTypeBook,
			CreatedAt: now,
			UpdatedAt: now,
		},
		ISBN:        strings.TrimSpace(in.ISBN),
		Title:       strings.TrimSpace(in.Title),
		Publisher:   strings.TrimSpace(in.Publisher),
		PublishDate: in.PublishDate,
		Description: in.Description,
		Genre:       strings.TrimSpace(in.Genre),
		Quantity:    in.Quantity,
		Pages:       in.Pages,
	}

	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		for _, id := range in.AuthorIDs {
			author, err := repos.Authors.FindByID(ctx, id)
			if err != nil {
				return err
			}
			book.Authors = append(book.Authors, *author)
		}
		return repos.Books.Create(ctx, book)
	})
	if err != nil {
		return nil, err
	}

	return book, nil
}

// UpdateBook applies an administrator's price or stock change. The book row
// stays locked until commit so concurrent sales are not overwritten; stock
// columns are written only when the update names them.
func (s *inventoryService) UpdateBook(ctx context.Context, id uuid.UUID, update BookUpdate) (*domain.Book, error) {
	var book *domain.Book
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		book, err = repos.Books.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if update.Price != nil {
			book.Price = update.Price.Round(2)
		}
		if update.Discount != nil {
			book.Discount = update.Discount.Round(2)
		}
		if err := validatePricing(book.Price, book.Discount); err != nil {
			return err
		}
		if err := repos.Books.Update(ctx, book); err != nil {
			return err
		}

		if update.Quantity == nil && update.ReservedQuantity == nil {
			return nil
		}
		if update.Quantity != nil {
			book.Quantity = *update.Quantity
		}
		if update.ReservedQuantity != nil {
			book.ReservedQuantity = *update.ReservedQuantity
		}
		if book.Quantity < 0 || book.ReservedQuantity < 0 {
			return ErrInvalidStock
		}
		return repos.Books.SetStock(ctx, book.ID, book.Quantity, book.ReservedQuantity)
	})
	if err != nil {
		return nil, err
	}

	return book, nil
}

func validatePricing(price, discount decimal.Decimal) error {
	if price.IsNegative() {
		return ErrInvalidPrice
	}
	if discount.IsNegative() || discount.GreaterThan(decimal.NewFromInt(100)) {
		return ErrInvalidDiscount
	}
	return nil
}
