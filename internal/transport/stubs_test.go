package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"bookstore/internal/domain"
	"bookstore/internal/middleware"
	"bookstore/internal/repository"
	"bookstore/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// identity returns an auth middleware that trusts the given user
func identity(userID uuid.UUID, role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithIdentity(r.Context(), userID, role)))
		})
	}
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func newRouter(register func(chi.Router)) http.Handler {
	r := chi.NewRouter()
	register(r)
	return r
}

type stubUserService struct {
	service.UserService
	users  map[string]*domain.User
	topUps []decimal.Decimal
}

func newStubUserService() *stubUserService {
	return &stubUserService{users: map[string]*domain.User{}}
}

func (s *stubUserService) Register(ctx context.Context, in service.RegisterInput) (*domain.User, error) {
	if _, exists := s.users[in.Username]; exists {
		return nil, repository.ErrUserAlreadyExists
	}
	user := &domain.User{
		ID:        uuid.New(),
		Role:      domain.RoleCustomer,
		Username:  in.Username,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Balance:   decimal.Zero,
	}
	s.users[in.Username] = user
	return user, nil
}

func (s *stubUserService) Login(ctx context.Context, username, password string) (string, string, *domain.User, error) {
	user, ok := s.users[username]
	if !ok || password != "password123" {
		return "", "", nil, service.ErrInvalidCredentials
	}
	return "access-" + username, "refresh-" + username, user, nil
}

func (s *stubUserService) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	for _, u := range s.users {
		if u.ID == userID {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s *stubUserService) TopUpBalance(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	s.topUps = append(s.topUps, amount)
	user.Balance = user.Balance.Add(amount)
	return user.Balance, nil
}

type stubCartService struct {
	service.CartService
	addErr   error
	added    []int
	setTo    []int
	viewCart *service.CartView
}

func (s *stubCartService) AddItem(ctx context.Context, userID, bookID uuid.UUID, increment int) (*domain.CartItem, error) {
	if s.addErr != nil {
		return nil, s.addErr
	}
	s.added = append(s.added, increment)
	return &domain.CartItem{ProductID: bookID, Quantity: increment}, nil
}

func (s *stubCartService) SetQuantity(ctx context.Context, userID, bookID uuid.UUID, quantity int) (*domain.CartItem, error) {
	s.setTo = append(s.setTo, quantity)
	return nil, nil
}

func (s *stubCartService) View(ctx context.Context, userID uuid.UUID) (*service.CartView, error) {
	if s.viewCart != nil {
		return s.viewCart, nil
	}
	return &service.CartView{Lines: []service.CartLineView{}, Total: decimal.Zero}, nil
}

type stubOrderService struct {
	service.OrderService
	placeErr      error
	placedWith    []domain.PaymentMethod
	previewedWith []domain.PaymentMethod
}

func (s *stubOrderService) PlaceOrder(ctx context.Context, userID uuid.UUID, method domain.PaymentMethod) (*domain.Order, error) {
	s.placedWith = append(s.placedWith, method)
	if s.placeErr != nil {
		return nil, s.placeErr
	}
	return &domain.Order{
		ID:            uuid.New(),
		UserID:        userID,
		PaymentMethod: method,
		Status:        domain.OrderStatusProcessing,
		TotalAmount:   decimal.RequireFromString("90.00"),
	}, nil
}

func (s *stubOrderService) PreviewCheckout(ctx context.Context, userID uuid.UUID, method domain.PaymentMethod) (*service.CheckoutPreview, error) {
	s.previewedWith = append(s.previewedWith, method)
	return &service.CheckoutPreview{PaymentMethod: method, Total: decimal.RequireFromString("90.00")}, nil
}

func registerInput(username string) service.RegisterInput {
	return service.RegisterInput{Username: username, Email: username + "@example.com", Password: "password123"}
}
