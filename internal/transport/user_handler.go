package transport

import (
	"net/http"

	"bookstore/internal/domain"
	"bookstore/internal/middleware"
	"bookstore/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest represents the token refresh request payload
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// UpdateProfileRequest carries the editable personal data
type UpdateProfileRequest struct {
	Email      string `json:"email" validate:"omitempty,email"`
	FirstName  string `json:"first_name" validate:"max=100"`
	MiddleName string `json:"middle_name" validate:"max=100"`
	LastName   string `json:"last_name" validate:"max=100"`
	Phone      string `json:"phone" validate:"max=30"`
}

// ChangeCredentialsRequest replaces the username and optionally the password
type ChangeCredentialsRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	Username        string `json:"username" validate:"omitempty,min=3,max=50"`
	NewPassword     string `json:"new_password" validate:"omitempty,min=8"`
}

// TopUpRequest credits the user's balance
type TopUpRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         UserProfile `json:"user"`
}

// RefreshResponse represents the token refresh response
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
}

// BalanceResponse reports the balance after a top-up
type BalanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

// UserProfile represents user profile data
type UserProfile struct {
	ID         string          `json:"id"`
	Username   string          `json:"username"`
	Email      string          `json:"email"`
	FirstName  string          `json:"first_name"`
	MiddleName string          `json:"middle_name,omitempty"`
	LastName   string          `json:"last_name"`
	Phone      string          `json:"phone,omitempty"`
	Role       domain.Role     `json:"role"`
	Balance    decimal.Decimal `json:"balance"`
}

func newUserProfile(user *domain.User) UserProfile {
	return UserProfile{
		ID:         user.ID.String(),
		Username:   user.Username,
		Email:      user.Email,
		FirstName:  user.FirstName,
		MiddleName: user.MiddleName,
		LastName:   user.LastName,
		Phone:      user.Phone,
		Role:       user.Role,
		Balance:    user.Balance,
	}
}

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	userService service.UserService
	logger      *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// RegisterRoutes registers all user routes
func (h *UserHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/users", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.RefreshToken)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/logout", h.Logout)
			r.Get("/profile", h.GetProfile)
			r.Put("/profile", h.UpdateProfile)
			r.Put("/credentials", h.ChangeCredentials)
			r.Post("/balance", h.TopUpBalance)
		})
	})
}

// Register handles user registration
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Registration validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	user, err := h.userService.Register(r.Context(), service.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("User registered", zap.String("user_id", user.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, newUserProfile(user))
}

// Login handles user authentication
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	accessToken, refreshToken, user, err := h.userService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.Debug("Login failed", zap.String("username", req.Username), zap.Error(err))
		respondWithServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("User logged in", zap.String("user_id", user.ID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         newUserProfile(user),
	})
}

// Logout handles user logout
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	if err := h.userService.Logout(r.Context(), req.RefreshToken); err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "logged out successfully"})
}

// RefreshToken handles token refresh
func (h *UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	newAccessToken, err := h.userService.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		h.logger.Debug("Token refresh failed", zap.Error(err))
		respondWithServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, RefreshResponse{AccessToken: newAccessToken})
}

// GetProfile returns the caller's profile including balance
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	user, err := h.userService.GetUserByID(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newUserProfile(user))
}

// UpdateProfile overwrites the caller's personal data
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, service.ProfileInput{
		Email:      req.Email,
		FirstName:  req.FirstName,
		MiddleName: req.MiddleName,
		LastName:   req.LastName,
		Phone:      req.Phone,
	})
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newUserProfile(user))
}

// ChangeCredentials replaces username and password after checking the current one
func (h *UserHandler) ChangeCredentials(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req ChangeCredentialsRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	if err := h.userService.ChangeCredentials(r.Context(), userID, req.CurrentPassword, req.Username, req.NewPassword); err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Credentials changed", zap.String("user_id", userID.String()))
	w.WriteHeader(http.StatusNoContent)
}

// TopUpBalance credits the caller's balance
func (h *UserHandler) TopUpBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req TopUpRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	balance, err := h.userService.TopUpBalance(r.Context(), userID, req.Amount)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Balance topped up",
		zap.String("user_id", userID.String()),
		zap.String("amount", req.Amount.String()),
	)
	middleware.RespondWithJSON(w, http.StatusOK, BalanceResponse{Balance: balance})
}
