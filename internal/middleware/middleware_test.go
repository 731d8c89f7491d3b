package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"collabcanvas/internal/middleware"
	"collabcanvas/internal/repository/mocks"
	"collabcanvas/internal/service"
)

func authRouter(t *testing.T) (*gin.Engine, *service.AuthService, *mocks.StateRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	stateRepo := new(mocks.StateRepository)
	authService, err := service.NewAuthService(context.Background(), service.GoogleConfig{}, "test-secret", stateRepo)
	require.NoError(t, err)

	router := gin.New()
	router.GET("/protected", middleware.Auth(authService), func(c *gin.Context) {
		identity, ok := middleware.IdentityFrom(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"email": identity.Email})
	})
	return router, authService, stateRepo
}

func TestAuth_MissingHeader(t *testing.T) {
	router, _, _ := authRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_InvalidToken(t *testing.T) {
	router, _, _ := authRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(middleware.AuthHeader, "garbage")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_ValidToken(t *testing.T) {
	router, authService, stateRepo := authRouter(t)

	token, err := authService.IssueToken(&service.Identity{ID: "g-1", Email: "alice@example.com"})
	require.NoError(t, err)
	stateRepo.On("IsTokenRevoked", mock.Anything, mock.AnythingOfType("string")).Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(middleware.AuthHeader, token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice@example.com")
}

func TestRateLimit_BlocksWhenExceeded(t *testing.T) {
	gin.SetMode(gin.TestMode)
	stateRepo := new(mocks.StateRepository)
	router := gin.New()
	router.Use(middleware.RateLimit(stateRepo, 5, time.Second))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	stateRepo.On("CheckRateLimit", mock.Anything, mock.AnythingOfType("string"), 5, time.Second).
		Return(true, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimit_FailsOpenOnCounterError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	stateRepo := new(mocks.StateRepository)
	router := gin.New()
	router.Use(middleware.RateLimit(stateRepo, 5, time.Second))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	stateRepo.On("CheckRateLimit", mock.Anything, mock.AnythingOfType("string"), 5, time.Second).
		Return(false, errors.New("redis down")).Once()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, "a counter failure must not take the API down")
}
