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
	ErrAuthorNotFound = errors.New("author not found")
)

// AuthorRepository defines the interface for author data access
type AuthorRepository interface {
	Create(ctx context.Context, author *domain.Author) error
	Update(ctx context.Context, author *domain.Author) error
	List(ctx context.Context) ([]*domain.Author, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Author, error)
}

type authorRepository struct {
	db DBTX
}

// NewAuthorRepository creates a new instance of AuthorRepository
func NewAuthorRepository(db DBTX) AuthorRepository {
	return &authorRepository{db: db}
}

func (r *authorRepository) Create(ctx context.Context, author *domain.Author) error {
	query := `
		INSERT INTO authors (id, first_name, middle_name, last_name, birth_date, country, biography, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		author.ID,
		author.FirstName,
		author.MiddleName,
		author.LastName,
		author.BirthDate,
		author.Country,
		author.Biography,
		author.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create author: %w", err)
	}

	return nil
}

// Update writes the name, birth date, country and biography of an author
func (r *authorRepository) Update(ctx context.Context, author *domain.Author) error {
	query := `
		UPDATE authors
		SET first_name = $2, middle_name = $3, last_name = $4, birth_date = $5, country = $6, biography = $7
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		author.ID,
		author.FirstName,
		author.MiddleName,
		author.LastName,
		author.BirthDate,
		author.Country,
		author.Biography,
	)
	if err != nil {
		return fmt.Errorf("failed to update author: %w", err)
	}

	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAuthorNotFound
	}
	return nil
}

// List retrieves all authors ordered by last name
func (r *authorRepository) List(ctx context.Context) ([]*domain.Author, error) {
	query := `
		SELECT id, first_name, middle_name, last_name, birth_date, country, biography, created_at
		FROM authors
		ORDER BY last_name ASC, first_name ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list authors: %w", err)
	}
	defer rows.Close()

	authors := []*domain.Author{}
	for rows.Next() {
		author, err := scanAuthor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan author: %w", err)
		}
		authors = append(authors, author)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating authors: %w", err)
	}

	return authors, nil
}

func (r *authorRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Author, error) {
	query := `
		SELECT id, first_name, middle_name, last_name, birth_date, country, biography, created_at
		FROM authors
		WHERE id = $1
	`

	author, err := scanAuthor(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAuthorNotFound
		}
		return nil, fmt.Errorf("failed to find author by ID: %w", err)
	}

	return author, nil
}

func scanAuthor(row interface{ Scan(...any) error }) (*domain.Author, error) {
	a := &domain.Author{}
	err := row.Scan(&a.ID, &a.FirstName, &a.MiddleName, &a.LastName, &a.BirthDate, &a.Country, &a.Biography, &a.CreatedAt)
	return a, err
}
