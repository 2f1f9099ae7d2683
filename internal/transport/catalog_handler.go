package transport

import (
	"net/http"
	"strconv"
	"strings"

	"bookstore/internal/domain"
	"bookstore/internal/middleware"
	"bookstore/internal/repository"
	"bookstore/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BookView is a book with its discounted unit price
type BookView struct {
	*domain.Book
	EffectivePrice decimal.Decimal `json:"effective_price"`
	Available      bool            `json:"in_stock"`
}

func newBookView(book *domain.Book) BookView {
	return BookView{Book: book, EffectivePrice: book.EffectivePrice(), Available: book.InStock()}
}

func newBookViews(books []*domain.Book) []BookView {
	views := make([]BookView, 0, len(books))
	for _, b := range books {
		views = append(views, newBookView(b))
	}
	return views
}

// BookPageResponse is one page of the catalog
type BookPageResponse struct {
	Books    []BookView `json:"books"`
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
}

// AuthorResponse is an author with the books they wrote
type AuthorResponse struct {
	*domain.Author
	FullName string     `json:"full_name"`
	Books    []BookView `json:"books"`
}

// CatalogHandler serves the public book and author pages
type CatalogHandler struct {
	catalog service.CatalogService
	logger  *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalog service.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

// RegisterRoutes registers the public catalog routes
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/books", func(r chi.Router) {
		r.Get("/", h.ListBooks)
		r.Get("/featured", h.Featured)
		r.Get("/{bookID}", h.GetBook)
	})
	r.Route("/api/authors", func(r chi.Router) {
		r.Get("/", h.ListAuthors)
		r.Get("/{authorID}", h.GetAuthor)
	})
}

// ListBooks lists or searches books. Query parameters: q, page, page_size,
// sort_by and sort_order (asc or desc).
func (h *CatalogHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, _ := strconv.Atoi(query.Get("page"))
	pageSize, _ := strconv.Atoi(query.Get("page_size"))
	sortOrder := repository.SortOrder(strings.ToUpper(query.Get("sort_order")))

	result, err := h.catalog.ListBooks(r.Context(), strings.TrimSpace(query.Get("q")), page, pageSize, query.Get("sort_by"), sortOrder)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, BookPageResponse{
		Books:    newBookViews(result.Books),
		Total:    result.Total,
		Page:     result.Page,
		PageSize: result.PageSize,
	})
}

// Featured returns a few random books
func (h *CatalogHandler) Featured(w http.ResponseWriter, r *http.Request) {
	books, err := h.catalog.Featured(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newBookViews(books))
}

func (h *CatalogHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	bookID, ok := uuidParam(w, r, "bookID")
	if !ok {
		return
	}

	book, err := h.catalog.GetBook(r.Context(), bookID)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newBookView(book))
}

func (h *CatalogHandler) ListAuthors(w http.ResponseWriter, r *http.Request) {
	authors, err := h.catalog.ListAuthors(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, authors)
}

func (h *CatalogHandler) GetAuthor(w http.ResponseWriter, r *http.Request) {
	authorID, ok := uuidParam(w, r, "authorID")
	if !ok {
		return
	}

	details, err := h.catalog.GetAuthor(r.Context(), authorID)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, AuthorResponse{
		Author:   details.Author,
		FullName: details.Author.FullName(),
		Books:    newBookViews(details.Books),
	})
}
