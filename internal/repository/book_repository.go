package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"bookstore/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrBookNotFound      = errors.New("book not found")
	ErrBookAlreadyExists = errors.New("book with this ISBN already exists")
	ErrStockConflict     = errors.New("stock changed concurrently")
)

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "ASC"
	SortOrderDesc SortOrder = "DESC"
)

// BookRepository defines the interface for catalog data access.
// A book row always extends a products row with the same id.
type BookRepository interface {
	Create(ctx context.Context, book *domain.Book) error
	Update(ctx context.Context, book *domain.Book) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Book, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Book, error)
	SetStock(ctx context.Context, id uuid.UUID, quantity, reserved int) error
	List(ctx context.Context, page, pageSize int, sortBy string, sortOrder SortOrder) ([]*domain.Book, int, error)
	Search(ctx context.Context, query string, page, pageSize int) ([]*domain.Book, int, error)
	Random(ctx context.Context, limit int) ([]*domain.Book, error)
	ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]*domain.Book, error)
	DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error
}

type bookRepository struct {
	db DBTX
}

// NewBookRepository creates a new instance of BookRepository
func NewBookRepository(db DBTX) BookRepository {
	return &bookRepository{db: db}
}

const bookColumns = `
	p.id, p.price, p.discount, p.product_type, p.created_at, p.updated_at,
	b.isbn, b.title, b.publisher, b.publish_date, b.description, b.genre,
	b.quantity, b.reserved_quantity, b.pages`

func scanBook(row interface{ Scan(...any) error }) (*domain.Book, error) {
	book := &domain.Book{}
	err := row.Scan(
		&book.ID,
		&book.Price,
		&book.Discount,
		&book.Type,
		&book.CreatedAt,
		&book.UpdatedAt,
		&book.ISBN,
		&book.Title,
		&book.Publisher,
		&book.PublishDate,
		&book.Description,
		&book.Genre,
		&book.Quantity,
		&book.ReservedQuantity,
		&book.Pages,
	)
	return book, err
}

// Create inserts the product row, the book row and the author links.
// Call it inside a transaction so a failure leaves no orphan product.
func (r *bookRepository) Create(ctx context.Context, book *domain.Book) error {
	if book.Type == "" {
		book.Type = domain.ProductTypeBook
	}

	productQuery := `
		INSERT INTO products (id, price, discount, product_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.ExecContext(ctx, productQuery,
		book.ID, book.Price, book.Discount, book.Type, book.CreatedAt, book.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	bookQuery := `
		INSERT INTO books (id, isbn, title, publisher, publish_date, description, genre, quantity, reserved_quantity, pages)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if _, err := r.db.ExecContext(ctx, bookQuery,
		book.ID,
		book.ISBN,
		book.Title,
		book.Publisher,
		book.PublishDate,
		book.Description,
		book.Genre,
		book.Quantity,
		book.ReservedQuantity,
		book.Pages,
	); err != nil {
		if isPgError(err, pgUniqueViolation) {
			return ErrBookAlreadyExists
		}
		return fmt.Errorf("failed to create book: %w", err)
	}

	for _, author := range book.Authors {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO book_authors (book_id, author_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			book.ID, author.ID,
		); err != nil {
			return fmt.Errorf("failed to link author %s: %w", author.ID, err)
		}
	}

	return nil
}

// Update writes price, discount and metadata of an existing book.
// Stock columns are left alone; see SetStock.
func (r *bookRepository) Update(ctx context.Context, book *domain.Book) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE products SET price = $2, discount = $3 WHERE id = $1`,
		book.ID, book.Price, book.Discount,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBookNotFound
	}

	query := `
		UPDATE books
		SET title = $2, publisher = $3, publish_date = $4, description = $5, genre = $6, pages = $7
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query,
		book.ID,
		book.Title,
		book.Publisher,
		book.PublishDate,
		book.Description,
		book.Genre,
		book.Pages,
	); err != nil {
		return fmt.Errorf("failed to update book: %w", err)
	}

	return nil
}

// SetStock overwrites the on-hand and reserved counts of a book
func (r *bookRepository) SetStock(ctx context.Context, id uuid.UUID, quantity, reserved int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE books SET quantity = $2, reserved_quantity = $3 WHERE id = $1`,
		id, quantity, reserved,
	)
	if err != nil {
		return fmt.Errorf("failed to set stock: %w", err)
	}

	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBookNotFound
	}
	return nil
}

// FindByID retrieves a book with its authors
func (r *bookRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Book, error) {
	return r.findByID(ctx, id, "")
}

// FindByIDForUpdate is FindByID that also locks the book and product rows
// until the surrounding transaction ends
func (r *bookRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Book, error) {
	return r.findByID(ctx, id, " FOR UPDATE OF b, p")
}

func (r *bookRepository) findByID(ctx context.Context, id uuid.UUID, lock string) (*domain.Book, error) {
	query := `SELECT ` + bookColumns + `
		FROM books b
		JOIN products p ON p.id = b.id
		WHERE b.id = $1` + lock

	book, err := scanBook(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to find book by ID: %w", err)
	}

	if err := r.attachAuthors(ctx, []*domain.Book{book}); err != nil {
		return nil, err
	}

	return book, nil
}

// List retrieves books with pagination and sorting
func (r *bookRepository) List(ctx context.Context, page, pageSize int, sortBy string, sortOrder SortOrder) ([]*domain.Book, int, error) {
	// Validate sort field to prevent SQL injection
	validSortFields := map[string]string{
		"title":        "b.title",
		"price":        "p.price",
		"created_at":   "p.created_at",
		"publish_date": "b.publish_date",
	}

	column, ok := validSortFields[sortBy]
	if !ok {
		column = "p.created_at"
	}

	if sortOrder != SortOrderAsc && sortOrder != SortOrderDesc {
		sortOrder = SortOrderDesc
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count books: %w", err)
	}

	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`SELECT %s
		FROM books b
		JOIN products p ON p.id = b.id
		ORDER BY %s %s, b.id
		LIMIT $1 OFFSET $2
	`, bookColumns, column, sortOrder)

	books, err := r.queryBooks(ctx, query, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}

	return books, total, nil
}

// Search matches title, genre or any author name case-insensitively
func (r *bookRepository) Search(ctx context.Context, query string, page, pageSize int) ([]*domain.Book, int, error) {
	if strings.TrimSpace(query) == "" {
		return r.List(ctx, page, pageSize, "created_at", SortOrderDesc)
	}

	searchPattern := "%" + strings.TrimSpace(query) + "%"

	where := `
		WHERE b.title ILIKE $1
		   OR b.genre ILIKE $1
		   OR EXISTS (
		       SELECT 1 FROM book_authors ba
		       JOIN authors a ON a.id = ba.author_id
		       WHERE ba.book_id = b.id
		         AND concat_ws(' ', a.first_name, NULLIF(a.middle_name, ''), a.last_name) ILIKE $1
		   )
	`

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books b`+where, searchPattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count search results: %w", err)
	}

	offset := (page - 1) * pageSize

	searchQuery := `SELECT ` + bookColumns + `
		FROM books b
		JOIN products p ON p.id = b.id` + where + `
		ORDER BY b.title ASC, b.id
		LIMIT $2 OFFSET $3
	`

	books, err := r.queryBooks(ctx, searchQuery, searchPattern, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}

	return books, total, nil
}

// Random returns up to limit books in random order
func (r *bookRepository) Random(ctx context.Context, limit int) ([]*domain.Book, error) {
	query := `SELECT ` + bookColumns + `
		FROM books b
		JOIN products p ON p.id = b.id
		ORDER BY random()
		LIMIT $1
	`
	return r.queryBooks(ctx, query, limit)
}

// ListByAuthor returns every book linked to the author
func (r *bookRepository) ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]*domain.Book, error) {
	query := `SELECT ` + bookColumns + `
		FROM books b
		JOIN products p ON p.id = b.id
		JOIN book_authors ba ON ba.book_id = b.id
		WHERE ba.author_id = $1
		ORDER BY b.publish_date DESC NULLS LAST, b.title
	`
	return r.queryBooks(ctx, query, authorID)
}

// DecrementStock removes quantity copies only if that many are on hand.
// Zero affected rows means the stock moved since it was checked.
func (r *bookRepository) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error {
	query := `UPDATE books SET quantity = quantity - $2 WHERE id = $1 AND quantity >= $2`

	result, err := r.db.ExecContext(ctx, query, id, quantity)
	if err != nil {
		if isPgError(err, pgCheckViolation) {
			return ErrStockConflict
		}
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStockConflict
	}

	return nil
}

func (r *bookRepository) queryBooks(ctx context.Context, query string, args ...any) ([]*domain.Book, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	defer rows.Close()

	books := []*domain.Book{}
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, book)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating books: %w", err)
	}

	if err := r.attachAuthors(ctx, books); err != nil {
		return nil, err
	}

	return books, nil
}

// attachAuthors loads the authors of all books with one query
func (r *bookRepository) attachAuthors(ctx context.Context, books []*domain.Book) error {
	if len(books) == 0 {
		return nil
	}

	ids := make([]string, len(books))
	byID := make(map[uuid.UUID]*domain.Book, len(books))
	for i, b := range books {
		ids[i] = b.ID.String()
		byID[b.ID] = b
	}

	query := `
		SELECT ba.book_id, a.id, a.first_name, a.middle_name, a.last_name, a.birth_date, a.country, a.biography, a.created_at
		FROM book_authors ba
		JOIN authors a ON a.id = ba.author_id
		WHERE ba.book_id = ANY($1::uuid[])
		ORDER BY a.last_name, a.first_name
	`

	rows, err := r.db.QueryContext(ctx, query, "{"+strings.Join(ids, ",")+"}")
	if err != nil {
		return fmt.Errorf("failed to load book authors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var bookID uuid.UUID
		var a domain.Author
		if err := rows.Scan(&bookID, &a.ID, &a.FirstName, &a.MiddleName, &a.LastName,
			&a.BirthDate, &a.Country, &a.Biography, &a.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan book author: %w", err)
		}
		if b, ok := byID[bookID]; ok {
			b.Authors = append(b.Authors, a)
		}
	}

	return rows.Err()
}
