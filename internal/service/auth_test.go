package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"collabcanvas/internal/repository/mocks"
	"collabcanvas/internal/service"
)

// newAuthService builds the service without a Google provider; token
// signing and verification work standalone.
func newAuthService(t *testing.T, secret string) (*service.AuthService, *mocks.StateRepository) {
	t.Helper()
	stateRepo := new(mocks.StateRepository)
	svc, err := service.NewAuthService(context.Background(), service.GoogleConfig{}, secret, stateRepo)
	require.NoError(t, err)
	return svc, stateRepo
}

func TestAuthService_IssueAndVerifyToken(t *testing.T) {
	svc, stateRepo := newAuthService(t, "very-secret-key")
	ctx := context.Background()
	identity := &service.Identity{ID: "google-123", Name: "Alice", Email: "alice@example.com", Picture: "http://p"}

	token, err := svc.IssueToken(identity)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	stateRepo.On("IsTokenRevoked", ctx, mock.AnythingOfType("string")).Return(false, nil).Once()

	verified, err := svc.VerifyToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, identity, verified)
	stateRepo.AssertExpectations(t)
}

func TestAuthService_VerifyToken_Revoked(t *testing.T) {
	svc, stateRepo := newAuthService(t, "very-secret-key")
	ctx := context.Background()

	token, err := svc.IssueToken(&service.Identity{ID: "google-123", Email: "a@b.c"})
	require.NoError(t, err)

	stateRepo.On("IsTokenRevoked", ctx, mock.AnythingOfType("string")).Return(true, nil).Once()

	_, err = svc.VerifyToken(ctx, token)
	assert.True(t, errors.Is(err, service.ErrTokenRevoked))
}

func TestAuthService_VerifyToken_WrongSecret(t *testing.T) {
	signer, _ := newAuthService(t, "secret-a")
	verifier, _ := newAuthService(t, "secret-b")
	ctx := context.Background()

	token, err := signer.IssueToken(&service.Identity{ID: "google-123", Email: "a@b.c"})
	require.NoError(t, err)

	_, err = verifier.VerifyToken(ctx, token)
	assert.True(t, errors.Is(err, service.ErrAuthentication))
}

func TestAuthService_VerifyToken_Garbage(t *testing.T) {
	svc, _ := newAuthService(t, "very-secret-key")

	_, err := svc.VerifyToken(context.Background(), "not.a.token")
	assert.True(t, errors.Is(err, service.ErrAuthentication))
}

func TestAuthService_Refresh(t *testing.T) {
	svc, stateRepo := newAuthService(t, "very-secret-key")
	ctx := context.Background()
	identity := &service.Identity{ID: "google-123", Name: "Alice", Email: "alice@example.com"}

	token, err := svc.IssueToken(identity)
	require.NoError(t, err)

	// Refresh verifies the old token, then the new one verifies too.
	stateRepo.On("IsTokenRevoked", ctx, mock.AnythingOfType("string")).Return(false, nil).Twice()

	fresh, err := svc.Refresh(ctx, token)
	require.NoError(t, err)
	require.NotEmpty(t, fresh)

	verified, err := svc.VerifyToken(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, identity.Email, verified.Email)
}

func TestAuthService_Logout_RevokesUntilExpiry(t *testing.T) {
	svc, stateRepo := newAuthService(t, "very-secret-key")
	ctx := context.Background()

	token, err := svc.IssueToken(&service.Identity{ID: "google-123", Email: "a@b.c"})
	require.NoError(t, err)

	stateRepo.On("RevokeToken", ctx, mock.AnythingOfType("string"), mock.MatchedBy(func(ttl time.Duration) bool {
		// The revocation should live roughly as long as the token.
		return ttl > 6*24*time.Hour && ttl <= 7*24*time.Hour
	})).Return(nil).Once()

	require.NoError(t, svc.Logout(ctx, token))
	stateRepo.AssertExpectations(t)
}

func TestAuthService_LoginURL_Unconfigured(t *testing.T) {
	svc, _ := newAuthService(t, "very-secret-key")

	_, err := svc.LoginURL("state-1")
	assert.True(t, errors.Is(err, service.ErrAuthentication))
}

func TestNewAuthService_RequiresSecret(t *testing.T) {
	stateRepo := new(mocks.StateRepository)

	_, err := service.NewAuthService(context.Background(), service.GoogleConfig{}, "", stateRepo)
	assert.Error(t, err)
}
