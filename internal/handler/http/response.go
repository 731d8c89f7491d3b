package http

import "github.com/gin-gonic/gin"

// ErrorResponse writes the failure envelope every CRUD error uses.
func ErrorResponse(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"success": false, "error": message})
}

// SuccessResponse writes a success payload.
func SuccessResponse(c *gin.Context, code int, data interface{}) {
	c.JSON(code, data)
}
