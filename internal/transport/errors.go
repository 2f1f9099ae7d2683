package transport

import (
	"errors"
	"net/http"

	"bookstore/internal/middleware"
	"bookstore/internal/repository"
	"bookstore/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var notFoundErrors = []error{
	repository.ErrUserNotFound,
	repository.ErrBookNotFound,
	repository.ErrAuthorNotFound,
	repository.ErrOrderNotFound,
	repository.ErrCartItemNotFound,
	repository.ErrAddressNotFound,
}

var badRequestErrors = []error{
	service.ErrInvalidPaymentMethod,
	service.ErrInvalidQuantity,
	service.ErrInvalidAmount,
	service.ErrInvalidAddressType,
	service.ErrInvalidPrice,
	service.ErrInvalidDiscount,
	service.ErrInvalidStock,
}

var unauthorizedErrors = []error{
	service.ErrUnauthenticated,
	service.ErrInvalidCredentials,
	service.ErrInvalidToken,
	service.ErrTokenExpired,
}

// respondWithServiceError renders a service or repository error. Anything
// unrecognised is logged and reported as a 500.
func respondWithServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var (
		insufficient *service.InsufficientStockError
		exceeds      *service.QuantityExceedsStockError
		outOfStock   *service.OutOfStockError
		missing      *service.MissingAddressError
		incomplete   *service.IncompleteAddressError
	)

	switch {
	case isAny(err, unauthorizedErrors):
		middleware.RespondWithError(w, http.StatusUnauthorized, err.Error())

	case errors.Is(err, service.ErrEmptyCart):
		middleware.RespondWithError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &missing):
		middleware.RespondWithErrorDetails(w, http.StatusUnprocessableEntity, err.Error(), map[string]any{
			"address_type": missing.Kind,
		})
	case errors.As(err, &incomplete):
		middleware.RespondWithErrorDetails(w, http.StatusUnprocessableEntity, err.Error(), map[string]any{
			"address_type":   incomplete.Kind,
			"missing_fields": incomplete.Fields,
		})

	case errors.As(err, &insufficient):
		middleware.RespondWithErrorDetails(w, http.StatusConflict, err.Error(), map[string]any{
			"book_id":   insufficient.BookID,
			"requested": insufficient.Requested,
			"available": insufficient.Available,
		})
	case errors.As(err, &exceeds):
		middleware.RespondWithErrorDetails(w, http.StatusConflict, err.Error(), map[string]any{
			"book_id":   exceeds.BookID,
			"available": exceeds.Available,
		})
	case errors.As(err, &outOfStock):
		middleware.RespondWithErrorDetails(w, http.StatusConflict, err.Error(), map[string]any{
			"book_id":   outOfStock.BookID,
			"available": 0,
		})
	case errors.Is(err, service.ErrConcurrentStockConflict):
		middleware.RespondWithErrorDetails(w, http.StatusConflict, err.Error(), map[string]any{
			"retryable": true,
		})

	case errors.Is(err, service.ErrInsufficientBalance):
		middleware.RespondWithError(w, http.StatusPaymentRequired, err.Error())

	case isAny(err, notFoundErrors):
		middleware.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, repository.ErrUserAlreadyExists), errors.Is(err, repository.ErrBookAlreadyExists),
		errors.Is(err, service.ErrInvalidStatusTransition):
		middleware.RespondWithError(w, http.StatusConflict, err.Error())
	case isAny(err, badRequestErrors):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())

	default:
		logger.Error("Request failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// currentUser reads the authenticated user id; it writes a 401 when absent
func currentUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok || userID == uuid.Nil {
		middleware.RespondWithError(w, http.StatusUnauthorized, service.ErrUnauthenticated.Error())
		return uuid.Nil, false
	}
	return userID, true
}

// uuidParam parses a UUID path parameter; it writes a 400 when malformed
func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
