package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"collabcanvas/internal/service"
)

// AuthHeader is the custom header the frontend supplies tokens in.
const AuthHeader = "X-Auth-Token"

const identityKey = "auth_identity"

// Auth validates the bearer token from the X-Auth-Token header and puts
// the embedded identity on the request context.
func Auth(authService *service.AuthService) gin.HandlerFunc {
	if authService == nil {
		panic("AuthService cannot be nil for Auth middleware")
	}
	return func(c *gin.Context) {
		token := c.GetHeader(AuthHeader)
		if token == "" {
			logrus.Warn("Auth middleware: missing " + AuthHeader + " header")
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": AuthHeader + " header is required"})
			c.Abort()
			return
		}

		identity, err := authService.VerifyToken(c.Request.Context(), token)
		if err != nil {
			logrus.WithError(err).Warn("Auth middleware: invalid token")
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// IdentityFrom returns the authenticated identity set by Auth.
func IdentityFrom(c *gin.Context) (*service.Identity, bool) {
	value, exists := c.Get(identityKey)
	if !exists {
		return nil, false
	}
	identity, ok := value.(*service.Identity)
	return identity, ok
}
