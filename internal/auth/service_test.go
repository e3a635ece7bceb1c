package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"worldtour/internal/shared/config"
	"worldtour/internal/shared/middleware"
	"worldtour/internal/users"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type memoryRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*users.User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: map[uuid.UUID]*users.User{}}
}

func (r *memoryRepo) CreateUser(_ context.Context, user *users.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *memoryRepo) GetUserByEmail(_ context.Context, email string) (*users.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *memoryRepo) GetUserByID(_ context.Context, id uuid.UUID) (*users.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *memoryRepo) UpdateUserPassword(_ context.Context, id uuid.UUID, hashed string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.Password = hashed
	return nil
}

func (r *memoryRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := r.GetUserByEmail(ctx, email)
	return err == nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			Secret:           "test-secret",
			Issuer:           "worldtour",
			JWTExpiresIn:     15 * time.Minute,
			RefreshExpiresIn: 24 * time.Hour,
		},
	}
}

func register(t *testing.T, svc Service) *AuthResponse {
	t.Helper()
	resp, err := svc.Register(context.Background(), &RegisterRequest{
		FirstName:         "Grace",
		LastName:          "Hopper",
		Email:             "Grace@Example.com",
		Password:          "cobol-1959",
		PreferredCurrency: "eur",
	})
	require.NoError(t, err)
	return resp
}

func TestRegisterAndLogin(t *testing.T) {
	svc := NewService(newMemoryRepo(), testConfig())

	registered := register(t, svc)
	assert.Equal(t, "grace@example.com", registered.User.Email)
	assert.Equal(t, string(users.RoleUser), registered.User.Role)
	assert.Equal(t, "EUR", registered.User.PreferredCurrency)
	assert.Equal(t, int64(900), registered.ExpiresIn)

	_, err := svc.Register(context.Background(), &RegisterRequest{Email: "grace@example.com", Password: "another"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	loggedIn, err := svc.Login(context.Background(), &LoginRequest{Email: "grace@example.com", Password: "cobol-1959"})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, loggedIn.User.ID)

	_, err = svc.Login(context.Background(), &LoginRequest{Email: "grace@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(context.Background(), &LoginRequest{Email: "nobody@example.com", Password: "whatever"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestTokens(t *testing.T) {
	svc := NewService(newMemoryRepo(), testConfig())
	registered := register(t, svc)

	claims, err := svc.ValidateToken(registered.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeAccess, claims.Type)
	assert.Equal(t, "worldtour", claims.Issuer)
	assert.Equal(t, registered.User.ID, claims.UserID)

	// an access token cannot be used to refresh
	_, err = svc.RefreshToken(context.Background(), registered.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	pair, err := svc.RefreshToken(context.Background(), registered.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	other := testConfig()
	other.JWT.Secret = "different"
	_, err = NewService(newMemoryRepo(), other).ValidateToken(registered.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredToken(t *testing.T) {
	svc := NewService(newMemoryRepo(), testConfig())
	svc.(*service).now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	registered := register(t, svc)

	_, err := svc.RefreshToken(context.Background(), registered.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestChangePassword(t *testing.T) {
	svc := NewService(newMemoryRepo(), testConfig())
	registered := register(t, svc)
	userID := uuid.MustParse(registered.User.ID)

	err := svc.ChangePassword(context.Background(), userID, &ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "newpass1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, svc.ChangePassword(context.Background(), userID, &ChangePasswordRequest{CurrentPassword: "cobol-1959", NewPassword: "newpass1"}))
	_, err = svc.Login(context.Background(), &LoginRequest{Email: "grace@example.com", Password: "newpass1"})
	assert.NoError(t, err)
}

func TestAccessTokenPassesMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	svc := NewService(newMemoryRepo(), cfg)
	registered := register(t, svc)

	r := gin.New()
	NewRouter(NewController(svc), cfg).SetupRoutes(r.Group("/api/v1"))
	r.GET("/admin-only", middleware.JWTAuthWithConfig(cfg), middleware.RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+registered.AccessToken)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "grace@example.com", gjson.Get(w.Body.String(), "data.email").String())

	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+registered.RefreshToken)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin-only", nil)
	req.Header.Set("Authorization", "Bearer "+registered.AccessToken)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRegisterHandler_Validation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	r := gin.New()
	NewRouter(NewController(NewService(newMemoryRepo(), cfg)), cfg).SetupRoutes(r.Group("/api/v1"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(`{"email":"not-an-email","password":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "email", gjson.Get(w.Body.String(), "errors.Email").String())
}
