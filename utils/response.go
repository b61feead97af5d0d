package utils

import (
	"github.com/gin-gonic/gin"
)

// RequestIDKey is the gin context key holding the per-request id
const RequestIDKey = "request_id"

// JSONResponse sends a structured JSON response
func JSONResponse(c *gin.Context, status int, data any, message string) {
	c.JSON(status, gin.H{
		"status":     status,
		"message":    message,
		"data":       data,
		"request_id": c.GetString(RequestIDKey),
	})
}

// JSONError sends a structured error response
func JSONError(c *gin.Context, status int, err error, message string) {
	c.JSON(status, gin.H{
		"status":     status,
		"message":    message,
		"error":      err.Error(),
		"request_id": c.GetString(RequestIDKey),
	})
}

// JSONErrorDetails sends an error response with per-field details and aborts the chain
func JSONErrorDetails(c *gin.Context, status int, err error, message string, details map[string]string) {
	c.AbortWithStatusJSON(status, gin.H{
		"status":     status,
		"message":    message,
		"error":      err.Error(),
		"details":    details,
		"request_id": c.GetString(RequestIDKey),
	})
}
