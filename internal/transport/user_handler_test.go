package transport

import (
	"net/http"
	"testing"

	"bookstore/internal/domain"
	"bookstore/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newUserRouter(users *stubUserService, userID uuid.UUID) http.Handler {
	handler := NewUserHandler(users, zap.NewNop())
	return newRouter(func(r chi.Router) {
		handler.RegisterRoutes(r, identity(userID, domain.RoleCustomer))
	})
}

// Feature: bookstore-checkout, Property 3: Invalid registration data is rejected
func TestProperty_InvalidRegistrationDataIsRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("registration with a bad email or short password returns validation errors", prop.ForAll(
		func(username, email, password string) bool {
			router := newUserRouter(newStubUserService(), uuid.Nil)

			w := doJSON(t, router, "POST", "/api/users/register", RegisterRequest{
				Username: username,
				Email:    email,
				Password: password,
			})
			if w.Code != http.StatusBadRequest {
				return false
			}

			response := decodeBody[middleware.ErrorResponse](t, w)
			_, ok := response.Error.Details["validation_errors"]
			return ok
		},
		gen.RegexMatch(`[a-z]{3,12}`),
		gen.OneGenOf(gen.Const(""), gen.RegexMatch(`[a-z]{3,10}`)),
		gen.RegexMatch(`[a-z0-9]{0,7}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: bookstore-checkout, Property 4: Successful registration returns profile data
func TestProperty_SuccessfulRegistrationReturnsProfile(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("registration echoes the profile with zero balance and customer role", prop.ForAll(
		func(username, firstName, lastName string) bool {
			router := newUserRouter(newStubUserService(), uuid.Nil)

			w := doJSON(t, router, "POST", "/api/users/register", RegisterRequest{
				Username:  username,
				Email:     username + "@example.com",
				Password:  "password123",
				FirstName: firstName,
				LastName:  lastName,
			})
			if w.Code != http.StatusCreated {
				return false
			}

			profile := decodeBody[UserProfile](t, w)
			return profile.Username == username &&
				profile.Email == username+"@example.com" &&
				profile.FirstName == firstName &&
				profile.LastName == lastName &&
				profile.Role == domain.RoleCustomer &&
				profile.Balance.IsZero() &&
				profile.ID != ""
		},
		gen.RegexMatch(`[a-z]{3,12}`),
		gen.RegexMatch(`[A-Z][a-z]{2,15}`),
		gen.RegexMatch(`[A-Z][a-z]{2,15}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRegister_DuplicateIsConflict(t *testing.T) {
	router := newUserRouter(newStubUserService(), uuid.Nil)
	body := RegisterRequest{Username: "reader", Email: "reader@example.com", Password: "password123"}

	assert.Equal(t, http.StatusCreated, doJSON(t, router, "POST", "/api/users/register", body).Code)
	assert.Equal(t, http.StatusConflict, doJSON(t, router, "POST", "/api/users/register", body).Code)
}

func TestLogin(t *testing.T) {
	users := newStubUserService()
	router := newUserRouter(users, uuid.Nil)
	doJSON(t, router, "POST", "/api/users/register", RegisterRequest{Username: "reader", Email: "reader@example.com", Password: "password123"})

	w := doJSON(t, router, "POST", "/api/users/login", LoginRequest{Username: "reader", Password: "password123"})
	require.Equal(t, http.StatusOK, w.Code)
	response := decodeBody[LoginResponse](t, w)
	assert.Equal(t, "access-reader", response.AccessToken)
	assert.Equal(t, "refresh-reader", response.RefreshToken)
	assert.Equal(t, "reader", response.User.Username)

	w = doJSON(t, router, "POST", "/api/users/login", LoginRequest{Username: "reader", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, "POST", "/api/users/login", "{broken")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProfileAndTopUp(t *testing.T) {
	users := newStubUserService()
	user, err := users.Register(t.Context(), registerInput("reader"))
	require.NoError(t, err)
	router := newUserRouter(users, user.ID)

	w := doJSON(t, router, "POST", "/api/users/balance", map[string]string{"amount": "25.50"})
	require.Equal(t, http.StatusOK, w.Code)
	balance := decodeBody[BalanceResponse](t, w)
	assert.Equal(t, "25.5", balance.Balance.String())

	w = doJSON(t, router, "POST", "/api/users/balance", map[string]string{"amount": "-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, users.topUps, 1)

	w = doJSON(t, router, "GET", "/api/users/profile", nil)
	require.Equal(t, http.StatusOK, w.Code)
	profile := decodeBody[UserProfile](t, w)
	assert.Equal(t, "25.5", profile.Balance.String())
}

func TestProfile_UnknownUserIsNotFound(t *testing.T) {
	router := newUserRouter(newStubUserService(), uuid.New())
	assert.Equal(t, http.StatusNotFound, doJSON(t, router, "GET", "/api/users/profile", nil).Code)
}
