package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookstore/internal/domain"
	"bookstore/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 10

	DefaultAccessTokenExpiration  = 15 * time.Minute
	DefaultRefreshTokenExpiration = 7 * 24 * time.Hour
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
)

// TokenConfig controls how access and refresh tokens are minted
type TokenConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// RegisterInput carries the fields of a sign-up form
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// ProfileInput carries the editable personal data of a user
type ProfileInput struct {
	Email      string
	FirstName  string
	MiddleName string
	LastName   string
	Phone      string
}

// UserService defines the interface for account and balance logic
type UserService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, username, password string) (accessToken, refreshToken string, user *domain.User, err error)
	Logout(ctx context.Context, refreshToken string) error
	RefreshToken(ctx context.Context, refreshToken string) (newAccessToken string, err error)
	ValidateToken(tokenString string) (*Claims, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, in ProfileInput) (*domain.User, error)
	ChangeCredentials(ctx context.Context, userID uuid.UUID, currentPassword, newUsername, newPassword string) error
	TopUpBalance(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
	EnsureAdmin(ctx context.Context, username, email, password string) (created bool, err error)
}

// Claims represents the JWT claims
type Claims struct {
	UserID uuid.UUID   `json:"user_id"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

type userService struct {
	repos  repository.Repositories
	tx     repository.Transactor
	tokens TokenConfig
}

// NewUserService creates a new instance of UserService
func NewUserService(repos repository.Repositories, tx repository.Transactor, tokens TokenConfig) UserService {
	if tokens.AccessTTL <= 0 {
		tokens.AccessTTL = DefaultAccessTokenExpiration
	}
	if tokens.RefreshTTL <= 0 {
		tokens.RefreshTTL = DefaultRefreshTokenExpiration
	}
	return &userService{repos: repos, tx: tx, tokens: tokens}
}

// Register creates a customer account and its empty cart in one transaction
func (s *userService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	user, err := s.newUser(in, domain.RoleCustomer)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		if err := repos.Users.Create(ctx, user); err != nil {
			return err
		}
		_, err := repos.Carts.GetOrCreate(ctx, user.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			return nil, repository.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	return user, nil
}

// Login authenticates a user by username and returns JWT tokens
func (s *userService) Login(ctx context.Context, username, password string) (accessToken, refreshToken string, user *domain.User, err error) {
	user, err = s.repos.Users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", "", nil, ErrInvalidCredentials
		}
		return "", "", nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := verifyPassword(user.PasswordHash, password); err != nil {
		return "", "", nil, ErrInvalidCredentials
	}

	accessToken, err = s.generateAccessToken(user)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err = s.generateRefreshToken(ctx, user)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return accessToken, refreshToken, user, nil
}

// Logout invalidates the refresh token
func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.repos.RefreshTokens.Revoke(ctx, refreshToken); err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			// Token doesn't exist, consider it already logged out
			return nil
		}
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// RefreshToken generates a new access token using a valid refresh token
func (s *userService) RefreshToken(ctx context.Context, refreshTokenString string) (string, error) {
	refreshToken, err := s.repos.RefreshTokens.FindByToken(ctx, refreshTokenString)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) || errors.Is(err, repository.ErrRefreshTokenRevoked) {
			return "", ErrInvalidToken
		}
		return "", fmt.Errorf("failed to find refresh token: %w", err)
	}

	if time.Now().After(refreshToken.ExpiresAt) {
		return "", ErrTokenExpired
	}

	user, err := s.repos.Users.FindByID(ctx, refreshToken.UserID)
	if err != nil {
		return "", fmt.Errorf("failed to find user: %w", err)
	}

	newAccessToken, err := s.generateAccessToken(user)
	if err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}

	return newAccessToken, nil
}

// ValidateToken validates a JWT token and returns the claims
func (s *userService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.tokens.Secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// GetUserByID retrieves a user by ID
func (s *userService) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.repos.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UpdateProfile overwrites the personal data of a user
func (s *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, in ProfileInput) (*domain.User, error) {
	user, err := s.repos.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if email := strings.TrimSpace(in.Email); email != "" {
		user.Email = email
	}
	user.FirstName = strings.TrimSpace(in.FirstName)
	user.MiddleName = strings.TrimSpace(in.MiddleName)
	user.LastName = strings.TrimSpace(in.LastName)
	user.Phone = strings.TrimSpace(in.Phone)

	if err := s.repos.Users.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return user, nil
}

// ChangeCredentials replaces the username and optionally the password.
// The current password must match. Existing refresh tokens are revoked.
func (s *userService) ChangeCredentials(ctx context.Context, userID uuid.UUID, currentPassword, newUsername, newPassword string) error {
	return s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		user, err := repos.Users.FindByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		if err := verifyPassword(user.PasswordHash, currentPassword); err != nil {
			return ErrInvalidCredentials
		}

		username := strings.TrimSpace(newUsername)
		if username == "" {
			username = user.Username
		}

		hash := user.PasswordHash
		if newPassword != "" {
			if hash, err = hashPassword(newPassword); err != nil {
				return fmt.Errorf("failed to hash password: %w", err)
			}
		}

		if err := repos.Users.UpdateCredentials(ctx, user.ID, username, hash); err != nil {
			return err
		}

		return repos.RefreshTokens.RevokeAllForUser(ctx, user.ID)
	})
}

// TopUpBalance credits a positive amount and returns the new balance
func (s *userService) TopUpBalance(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}

	balance, err := s.repos.Users.Credit(ctx, userID, amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to top up balance: %w", err)
	}

	return balance, nil
}

// EnsureAdmin creates the administrator account unless the username is taken
func (s *userService) EnsureAdmin(ctx context.Context, username, email, password string) (bool, error) {
	if _, err := s.repos.Users.FindByUsername(ctx, username); err == nil {
		return false, nil
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return false, fmt.Errorf("failed to look up admin: %w", err)
	}

	admin, err := s.newUser(RegisterInput{Username: username, Email: email, Password: password}, domain.RoleAdmin)
	if err != nil {
		return false, err
	}

	if err := s.repos.Users.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create admin: %w", err)
	}

	return true, nil
}

func (s *userService) newUser(in RegisterInput, role domain.Role) (*domain.User, error) {
	hashedPassword, err := hashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	return &domain.User{
		ID:           uuid.New(),
		Role:         role,
		Username:     strings.TrimSpace(in.Username),
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: hashedPassword,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Balance:      decimal.Zero,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// hashPassword hashes a password using bcrypt
func hashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// verifyPassword verifies a password against a bcrypt hash
func verifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// generateAccessToken generates a JWT access token with user ID and role claims
func (s *userService) generateAccessToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokens.AccessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.tokens.Secret))
}

// generateRefreshToken generates a refresh token and stores it in the database
func (s *userService) generateRefreshToken(ctx context.Context, user *domain.User) (string, error) {
	tokenString := uuid.New().String()

	refreshToken := &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     tokenString,
		ExpiresAt: time.Now().Add(s.tokens.RefreshTTL),
		CreatedAt: time.Now(),
	}

	if err := s.repos.RefreshTokens.Create(ctx, refreshToken); err != nil {
		return "", err
	}

	return tokenString, nil
}
