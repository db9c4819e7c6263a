package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"judge-chat-service/internal/apperr"
)

// writeError maps application error codes onto HTTP statuses. Unknown errors
// stay opaque to the client.
func writeError(c *gin.Context, err error) {
	switch apperr.CodeOf(err) {
	case apperr.CodeValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperr.CodePermissionDenied:
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case apperr.CodeNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperr.CodeCacheUnavailable:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cache unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
