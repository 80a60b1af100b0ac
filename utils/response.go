// utils/response.go
package utils

import "github.com/gin-gonic/gin"

// RespondWithError sends a JSON error body with the given status and stops
// further handler processing.
func RespondWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}
