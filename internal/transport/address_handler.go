package transport

import (
	"net/http"

	"bookstore/internal/domain"
	"bookstore/internal/middleware"
	"bookstore/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SaveAddressRequest carries the fields of a payment or delivery address
type SaveAddressRequest struct {
	Street     string `json:"street" validate:"max=255"`
	City       string `json:"city" validate:"max=100"`
	House      string `json:"house" validate:"max=50"`
	PostalCode string `json:"postal_code" validate:"max=20"`
	Country    string `json:"country" validate:"max=100"`
}

// AddressHandler serves the caller's address book
type AddressHandler struct {
	addresses service.AddressService
	logger    *zap.Logger
}

// NewAddressHandler creates a new AddressHandler
func NewAddressHandler(addresses service.AddressService, logger *zap.Logger) *AddressHandler {
	return &AddressHandler{addresses: addresses, logger: logger}
}

// RegisterRoutes registers the address routes behind authentication
func (h *AddressHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/addresses", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.List)
		r.Put("/{type}", h.Save)
	})
}

func (h *AddressHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	addresses, err := h.addresses.ListAddresses(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, addresses)
}

// Save creates or overwrites the address of the type named in the path.
// Required fields are checked by the service so the response names the
// address kind.
func (h *AddressHandler) Save(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req SaveAddressRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	address, err := h.addresses.SaveAddress(r.Context(), userID, domain.AddressType(chi.URLParam(r, "type")), domain.AddressFields{
		Street:     req.Street,
		City:       req.City,
		House:      req.House,
		PostalCode: req.PostalCode,
		Country:    req.Country,
	})
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, address)
}
