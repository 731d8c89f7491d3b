package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"collabcanvas/internal/repository"
)

// RateLimit caps requests per client IP using a Redis counter. Counter
// failures fail open so a Redis hiccup never takes the API down.
func RateLimit(stateRepo repository.StateRepository, limit int, window time.Duration) gin.HandlerFunc {
	if stateRepo == nil {
		panic("StateRepository cannot be nil for RateLimit middleware")
	}
	return func(c *gin.Context) {
		exceeded, err := stateRepo.CheckRateLimit(c.Request.Context(), c.ClientIP(), limit, window)
		if err != nil {
			logrus.WithError(err).Warn("RateLimit middleware: counter check failed, allowing request")
			c.Next()
			return
		}
		if exceeded {
			c.JSON(http.StatusTooManyRequests, gin.H{"success": false, "error": "Too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}
