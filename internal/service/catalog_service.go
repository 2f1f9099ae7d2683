package service

import (
	"context"
	"fmt"

	"bookstore/internal/domain"
	"bookstore/internal/repository"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	FeaturedCount   = 4
)

// BookPage is one page of a catalog listing
type BookPage struct {
	Books    []*domain.Book `json:"books"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// AuthorDetails is an author together with their books
type AuthorDetails struct {
	Author *domain.Author `json:"author"`
	Books  []*domain.Book `json:"books"`
}

// CatalogService defines read access to books and authors
type CatalogService interface {
	ListBooks(ctx context.Context, query string, page, pageSize int, sortBy string, sortOrder repository.SortOrder) (*BookPage, error)
	Featured(ctx context.Context) ([]*domain.Book, error)
	GetBook(ctx context.Context, id uuid.UUID) (*domain.Book, error)
	GetAuthor(ctx context.Context, id uuid.UUID) (*AuthorDetails, error)
	ListAuthors(ctx context.Context) ([]*domain.Author, error)
	InvalidateAuthor(id uuid.UUID)
}

type catalogService struct {
	books   repository.BookRepository
	authors repository.AuthorRepository
	cache   *lru.Cache[uuid.UUID, *domain.Author]
}

// NewCatalogService creates a CatalogService that keeps up to cacheSize
// author records in memory
func NewCatalogService(books repository.BookRepository, authors repository.AuthorRepository, cacheSize int) (CatalogService, error) {
	if cacheSize <= 0 {
		cacheSize = 128
	}
	cache, err := lru.New[uuid.UUID, *domain.Author](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create author cache: %w", err)
	}
	return &catalogService{books: books, authors: authors, cache: cache}, nil
}

// ListBooks returns a page of books; a non-empty query searches title, genre and author
func (s *catalogService) ListBooks(ctx context.Context, query string, page, pageSize int, sortBy string, sortOrder repository.SortOrder) (*BookPage, error) {
	page, pageSize = normalizePage(page, pageSize)

	var (
		books []*domain.Book
		total int
		err   error
	)
	if query != "" {
		books, total, err = s.books.Search(ctx, query, page, pageSize)
	} else {
		books, total, err = s.books.List(ctx, page, pageSize, sortBy, sortOrder)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}

	return &BookPage{Books: books, Total: total, Page: page, PageSize: pageSize}, nil
}

// Featured returns a handful of random books for the landing page
func (s *catalogService) Featured(ctx context.Context) ([]*domain.Book, error) {
	books, err := s.books.Random(ctx, FeaturedCount)
	if err != nil {
		return nil, fmt.Errorf("failed to load featured books: %w", err)
	}
	return books, nil
}

func (s *catalogService) GetBook(ctx context.Context, id uuid.UUID) (*domain.Book, error) {
	book, err := s.books.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return book, nil
}

// GetAuthor serves the author record from cache when possible; the book
// list is always read fresh
func (s *catalogService) GetAuthor(ctx context.Context, id uuid.UUID) (*AuthorDetails, error) {
	author, ok := s.cache.Get(id)
	if !ok {
		var err error
		author, err = s.authors.FindByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get author: %w", err)
		}
		s.cache.Add(id, author)
	}

	books, err := s.books.ListByAuthor(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list author books: %w", err)
	}

	return &AuthorDetails{Author: author, Books: books}, nil
}

func (s *catalogService) ListAuthors(ctx context.Context) ([]*domain.Author, error) {
	authors, err := s.authors.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list authors: %w", err)
	}
	return authors, nil
}

// InvalidateAuthor drops a cached author record
func (s *catalogService) InvalidateAuthor(id uuid.UUID) {
	s.cache.Remove(id)
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}
