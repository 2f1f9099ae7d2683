package transport

import (
	"net/http"

	"bookstore/internal/middleware"
	"bookstore/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AddToCartRequest adds copies of a book; quantity defaults to one
type AddToCartRequest struct {
	BookID   uuid.UUID `json:"book_id" validate:"required"`
	Quantity int       `json:"quantity" validate:"gte=0"`
}

// UpdateCartLineRequest overwrites a line's quantity; zero or less removes it
type UpdateCartLineRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// CartHandler serves the caller's shopping cart
type CartHandler struct {
	carts  service.CartService
	logger *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(carts service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{carts: carts, logger: logger}
}

// RegisterRoutes registers the cart routes behind authentication
func (h *CartHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.View)
		r.Post("/items", h.AddItem)
		r.Put("/items/{bookID}", h.UpdateItem)
		r.Delete("/items/{bookID}", h.RemoveItem)
	})
}

// View returns the priced cart
func (h *CartHandler) View(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	view, err := h.carts.View(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, view)
}

// AddItem adds copies of a book to the cart
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req AddToCartRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	if _, err := h.carts.AddItem(r.Context(), userID, req.BookID, req.Quantity); err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	h.respondWithCart(w, r, userID, http.StatusCreated)
}

// UpdateItem sets a line's quantity
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	bookID, ok := uuidParam(w, r, "bookID")
	if !ok {
		return
	}

	var req UpdateCartLineRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	if _, err := h.carts.SetQuantity(r.Context(), userID, bookID, *req.Quantity); err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	h.respondWithCart(w, r, userID, http.StatusOK)
}

// RemoveItem deletes a line from the cart
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	bookID, ok := uuidParam(w, r, "bookID")
	if !ok {
		return
	}

	if err := h.carts.RemoveItem(r.Context(), userID, bookID); err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	h.respondWithCart(w, r, userID, http.StatusOK)
}

func (h *CartHandler) respondWithCart(w http.ResponseWriter, r *http.Request, userID uuid.UUID, status int) {
	view, err := h.carts.View(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, status, view)
}
