package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"collabcanvas/internal/repository"
)

// Identity is the claim set embedded in every bearer token.
type Identity struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

// AuthService handles the Google OAuth redirect flow and the signed
// bearer tokens the rest of the API trusts. Logout revokes a token's
// jti in Redis until its natural expiry.
type AuthService struct {
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
	stateRepo   repository.StateRepository
	jwtSecret   []byte
	jwtExpiry   time.Duration
}

// GoogleConfig carries the OAuth client settings.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// NewAuthService creates the service. The Google provider is optional:
// with an empty client id the OAuth entrypoints report an error but
// token verification still works (useful for tests and for deployments
// that only validate existing tokens).
func NewAuthService(ctx context.Context, google GoogleConfig, jwtSecret string, stateRepo repository.StateRepository) (*AuthService, error) {
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT secret key cannot be empty")
	}
	if stateRepo == nil {
		panic("StateRepository cannot be nil for AuthService")
	}

	s := &AuthService{
		stateRepo: stateRepo,
		jwtSecret: []byte(jwtSecret),
		jwtExpiry: 7 * 24 * time.Hour,
	}

	if google.ClientID == "" {
		logrus.Warn("AuthService: Google OAuth not configured, login endpoints disabled")
		return s, nil
	}

	provider, err := oidc.NewProvider(ctx, "https://accounts.google.com")
	if err != nil {
		return nil, fmt.Errorf("failed to init google oidc provider: %w", err)
	}
	s.verifier = provider.Verifier(&oidc.Config{ClientID: google.ClientID})
	s.oauthConfig = &oauth2.Config{
		ClientID:     google.ClientID,
		ClientSecret: google.ClientSecret,
		RedirectURL:  google.RedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}
	return s, nil
}

// LoginURL builds the Google authorization redirect.
func (s *AuthService) LoginURL(state string) (string, error) {
	if s.oauthConfig == nil {
		return "", ErrAuthentication
	}
	return s.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// HandleCallback exchanges the authorization code, verifies the Google
// ID token and issues our own bearer token.
func (s *AuthService) HandleCallback(ctx context.Context, code string) (string, *Identity, error) {
	if s.oauthConfig == nil || s.verifier == nil {
		return "", nil, ErrAuthentication
	}

	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		logrus.WithError(err).Warn("AuthService: google token exchange failed")
		return "", nil, ErrAuthentication
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		logrus.Warn("AuthService: google did not return id_token")
		return "", nil, ErrAuthentication
	}
	idToken, err := s.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		logrus.WithError(err).Warn("AuthService: google id_token verification failed")
		return "", nil, ErrAuthentication
	}

	var claims struct {
		Subject string `json:"sub"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Picture string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		logrus.WithError(err).Warn("AuthService: google id_token claims parse failed")
		return "", nil, ErrAuthentication
	}
	if claims.Subject == "" || claims.Email == "" {
		return "", nil, ErrAuthentication
	}

	identity := &Identity{ID: claims.Subject, Name: claims.Name, Email: claims.Email, Picture: claims.Picture}
	bearer, err := s.IssueToken(identity)
	if err != nil {
		return "", nil, err
	}
	logrus.WithField("email", identity.Email).Info("AuthService: user authenticated via Google")
	return bearer, identity, nil
}

// IssueToken signs a 7-day bearer token for an identity.
func (s *AuthService) IssueToken(identity *Identity) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":      identity.ID,
		"name":    identity.Name,
		"email":   identity.Email,
		"picture": identity.Picture,
		"jti":     uuid.NewString(),
		"iat":     now.Unix(),
		"exp":     now.Add(s.jwtExpiry).Unix(),
	})
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		logrus.WithError(err).Error("AuthService: failed to sign token")
		return "", ErrInternalServer
	}
	return signed, nil
}

// VerifyToken validates signature, expiry and revocation, returning the
// embedded identity.
func (s *AuthService) VerifyToken(ctx context.Context, tokenStr string) (*Identity, error) {
	claims, err := s.parseClaims(tokenStr)
	if err != nil {
		return nil, err
	}

	jti, _ := claims["jti"].(string)
	if jti != "" {
		revoked, err := s.stateRepo.IsTokenRevoked(ctx, jti)
		if err != nil {
			logrus.WithError(err).Error("AuthService: revocation check failed")
			return nil, ErrInternalServer
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}

	return identityFromClaims(claims), nil
}

// Refresh re-issues a token with the same identity claims and a fresh
// expiry. The old token stays valid until it expires on its own.
func (s *AuthService) Refresh(ctx context.Context, tokenStr string) (string, error) {
	identity, err := s.VerifyToken(ctx, tokenStr)
	if err != nil {
		return "", err
	}
	return s.IssueToken(identity)
}

// Logout revokes the token's jti until its natural expiry.
func (s *AuthService) Logout(ctx context.Context, tokenStr string) error {
	claims, err := s.parseClaims(tokenStr)
	if err != nil {
		return err
	}
	jti, _ := claims["jti"].(string)
	if jti == "" {
		// Nothing to revoke on a token without an id; expiry handles it.
		return nil
	}
	ttl := time.Duration(0)
	if exp, ok := claims["exp"].(float64); ok {
		ttl = time.Until(time.Unix(int64(exp), 0))
	}
	if err := s.stateRepo.RevokeToken(ctx, jti, ttl); err != nil {
		logrus.WithError(err).Error("AuthService: failed to revoke token")
		return ErrInternalServer
	}
	return nil
}

func (s *AuthService) parseClaims(tokenStr string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		var validationError *jwt.ValidationError
		if errors.As(err, &validationError) && validationError.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, ErrAuthentication
		}
		logrus.WithError(err).Debug("AuthService: token parse failed")
		return nil, ErrAuthentication
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrAuthentication
	}
	return claims, nil
}

func identityFromClaims(claims jwt.MapClaims) *Identity {
	id, _ := claims["id"].(string)
	name, _ := claims["name"].(string)
	email, _ := claims["email"].(string)
	picture, _ := claims["picture"].(string)
	return &Identity{ID: id, Name: name, Email: email, Picture: picture}
}
