package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"collabcanvas/internal/middleware"
	"collabcanvas/internal/service"
)

// AuthHandler serves the Google OAuth flow and token endpoints.
type AuthHandler struct {
	authService *service.AuthService
	frontendURL string
}

// NewAuthHandler creates the handler. frontendURL is where the callback
// redirects with the issued token.
func NewAuthHandler(authService *service.AuthService, frontendURL string) *AuthHandler {
	return &AuthHandler{authService: authService, frontendURL: frontendURL}
}

// GoogleLogin handles GET /auth/google: redirect to Google's consent page.
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	state := uuid.NewString()
	// State round-trips through a short-lived cookie for CSRF protection.
	c.SetCookie("oauth_state", state, 300, "/", "", false, true)

	url, err := h.authService.LoginURL(state)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, url)
}

// GoogleCallback handles GET /auth/google/callback.
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	state := c.Query("state")
	expected, err := c.Cookie("oauth_state")
	if err != nil || state == "" || state != expected {
		logrus.Warn("Handler.GoogleCallback: state mismatch")
		ErrorResponse(c, http.StatusBadRequest, "invalid oauth state")
		return
	}
	code := c.Query("code")
	if code == "" {
		ErrorResponse(c, http.StatusBadRequest, "missing authorization code")
		return
	}

	token, _, err := h.authService.HandleCallback(c.Request.Context(), code)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"/auth/success?token="+token)
}

// Verify handles GET /auth/verify: confirms the X-Auth-Token header
// carries a valid token.
func (h *AuthHandler) Verify(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "not authenticated")
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"success": true, "id": identity.ID})
}

// User handles GET /auth/user: returns the authenticated identity.
func (h *AuthHandler) User(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "not authenticated")
		return
	}
	SuccessResponse(c, http.StatusOK, identity)
}

// Refresh handles POST /auth/refresh: re-issues a token with the same
// claims and a fresh 7-day expiry.
func (h *AuthHandler) Refresh(c *gin.Context) {
	token := c.GetHeader(middleware.AuthHeader)
	if token == "" {
		ErrorResponse(c, http.StatusUnauthorized, "missing "+middleware.AuthHeader+" header")
		return
	}
	fresh, err := h.authService.Refresh(c.Request.Context(), token)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"success": true, "token": fresh})
}

// Logout handles POST /auth/logout: revokes the presented token.
func (h *AuthHandler) Logout(c *gin.Context) {
	token := c.GetHeader(middleware.AuthHeader)
	if token == "" {
		ErrorResponse(c, http.StatusUnauthorized, "missing "+middleware.AuthHeader+" header")
		return
	}
	if err := h.authService.Logout(c.Request.Context(), token); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"success": true})
}
