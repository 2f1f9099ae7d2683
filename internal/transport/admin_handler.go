package transport

import (
	"net/http"
	"time"

	"bookstore/internal/domain"
	"bookstore/internal/middleware"
	"bookstore/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateAuthorRequest describes a new author
type CreateAuthorRequest struct {
	FirstName  string     `json:"first_name" validate:"required,max=100"`
	MiddleName string     `json:"middle_name" validate:"max=100"`
	LastName   string     `json:"last_name" validate:"required,max=100"`
	BirthDate  *time.Time `json:"birth_date"`
	Country    string     `json:"country" validate:"max=100"`
	Biography  string     `json:"biography"`
}

// CreateBookRequest describes a new book and the authors who wrote it
type CreateBookRequest struct {
	ISBN        string          `json:"isbn" validate:"required,max=20"`
	Title       string          `json:"title" validate:"required,max=255"`
	Publisher   string          `json:"publisher" validate:"max=255"`
	PublishDate *time.Time      `json:"publish_date"`
	Description string          `json:"description"`
	Genre       string          `json:"genre" validate:"max=100"`
	Pages       int             `json:"pages" validate:"gte=0"`
	Price       decimal.Decimal `json:"price" validate:"gte=0"`
	Discount    decimal.Decimal `json:"discount" validate:"gte=0,lte=100"`
	Quantity    int             `json:"quantity" validate:"gte=0"`
	AuthorIDs   []uuid.UUID     `json:"author_ids"`
}

// UpdateBookRequest changes price, discount or stock; omitted fields stay
type UpdateBookRequest struct {
	Price            *decimal.Decimal `json:"price"`
	Discount         *decimal.Decimal `json:"discount"`
	Quantity         *int             `json:"quantity" validate:"omitempty,gte=0"`
	ReservedQuantity *int             `json:"reserved_quantity" validate:"omitempty,gte=0"`
}

// UpdateOrderStatusRequest moves an order to a new status
type UpdateOrderStatusRequest struct {
	Status domain.OrderStatus `json:"status" validate:"required,oneof=processing completed cancelled"`
}

// AdminHandler serves inventory and order administration
type AdminHandler struct {
	inventory service.InventoryService
	catalog   service.CatalogService
	orders    service.OrderService
	logger    *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(inventory service.InventoryService, catalog service.CatalogService, orders service.OrderService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{inventory: inventory, catalog: catalog, orders: orders, logger: logger}
}

// RegisterRoutes registers the admin routes behind authentication and the admin role
func (h *AdminHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(middleware.RequireAdmin(h.logger))
		r.Post("/authors", h.CreateAuthor)
		r.Put("/authors/{authorID}", h.UpdateAuthor)
		r.Post("/books", h.CreateBook)
		r.Put("/books/{bookID}", h.UpdateBook)
		r.Put("/orders/{orderID}/status", h.UpdateOrderStatus)
	})
}

func (h *AdminHandler) CreateAuthor(w http.ResponseWriter, r *http.Request) {
	var req CreateAuthorRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	author, err := h.inventory.CreateAuthor(r.Context(), &domain.Author{
		FirstName:  req.FirstName,
		MiddleName: req.MiddleName,
		LastName:   req.LastName,
		BirthDate:  req.BirthDate,
		Country:    req.Country,
		Biography:  req.Biography,
	})
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Author created", zap.String("author_id", author.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, author)
}

// UpdateAuthor replaces an author's details and evicts the cached record
func (h *AdminHandler) UpdateAuthor(w http.ResponseWriter, r *http.Request) {
	authorID, ok := uuidParam(w, r, "authorID")
	if !ok {
		return
	}

	var req CreateAuthorRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	author, err := h.inventory.UpdateAuthor(r.Context(), authorID, &domain.Author{
		FirstName:  req.FirstName,
		MiddleName: req.MiddleName,
		LastName:   req.LastName,
		BirthDate:  req.BirthDate,
		Country:    req.Country,
		Biography:  req.Biography,
	})
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	h.catalog.InvalidateAuthor(author.ID)

	h.logger.Info("Author updated", zap.String("author_id", author.ID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, author)
}

func (h *AdminHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req CreateBookRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	book, err := h.inventory.CreateBook(r.Context(), service.NewBookInput{
		ISBN:        req.ISBN,
		Title:       req.Title,
		Publisher:   req.Publisher,
		PublishDate: req.PublishDate,
		Description: req.Description,
		Genre:       req.Genre,
		Pages:       req.Pages,
		Price:       req.Price,
		Discount:    req.Discount,
		Quantity:    req.Quantity,
		AuthorIDs:   req.AuthorIDs,
	})
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Book created",
		zap.String("book_id", book.ID.String()),
		zap.String("isbn", book.ISBN),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, newBookView(book))
}

func (h *AdminHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	bookID, ok := uuidParam(w, r, "bookID")
	if !ok {
		return
	}

	var req UpdateBookRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	book, err := h.inventory.UpdateBook(r.Context(), bookID, service.BookUpdate{
		Price:            req.Price,
		Discount:         req.Discount,
		Quantity:         req.Quantity,
		ReservedQuantity: req.ReservedQuantity,
	})
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Book updated", zap.String("book_id", book.ID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, newBookView(book))
}

func (h *AdminHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := uuidParam(w, r, "orderID")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), orderID, req.Status)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Order status changed",
		zap.String("order_id", order.ID.String()),
		zap.String("status", string(order.Status)),
	)
	middleware.RespondWithJSON(w, http.StatusOK, newOrderResponse(order))
}
