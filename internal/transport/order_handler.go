package transport

import (
	"net/http"

	"bookstore/internal/domain"
	"bookstore/internal/middleware"
	"bookstore/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PlaceOrderRequest selects the payment method for checkout
type PlaceOrderRequest struct {
	PaymentMethod domain.PaymentMethod `json:"payment_method" validate:"required,oneof=balance on_delivery"`
}

// OrderResponse is an order as returned from checkout and history
type OrderResponse struct {
	OrderID uuid.UUID `json:"order_id"`
	*domain.Order
}

func newOrderResponse(order *domain.Order) OrderResponse {
	return OrderResponse{OrderID: order.ID, Order: order}
}

// OrderHandler serves checkout and order history
type OrderHandler struct {
	orders service.OrderService
	logger *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger}
}

// RegisterRoutes registers checkout and order routes behind authentication
func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/checkout", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.Preview)
		r.Post("/", h.PlaceOrder)
	})
	r.Route("/api/orders", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.ListOrders)
		r.Get("/{orderID}", h.GetOrder)
	})
}

// Preview shows the confirmation screen without writing anything
func (h *OrderHandler) Preview(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	method := domain.PaymentMethod(r.URL.Query().Get("payment_method"))
	preview, err := h.orders.PreviewCheckout(r.Context(), userID, method)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, preview)
}

// PlaceOrder turns the cart into an order
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req PlaceOrderRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	order, err := h.orders.PlaceOrder(r.Context(), userID, req.PaymentMethod)
	if err != nil {
		h.logger.Info("Checkout rejected",
			zap.String("user_id", userID.String()),
			zap.String("reason", err.Error()),
		)
		respondWithServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, newOrderResponse(order))
}

// ListOrders returns the caller's orders, newest first
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	orders, err := h.orders.ListOrders(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	out := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, newOrderResponse(o))
	}
	middleware.RespondWithJSON(w, http.StatusOK, out)
}

// GetOrder returns one of the caller's orders with its lines
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	orderID, ok := uuidParam(w, r, "orderID")
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(r.Context(), userID, orderID)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newOrderResponse(order))
}
