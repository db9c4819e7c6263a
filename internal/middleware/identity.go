package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	userIDKey = "userID"
	staffKey  = "isStaff"
)

// Identity reads the authenticated identity the platform gateway forwards:
// X-User-ID (required) and X-User-Staff. Authentication itself happens
// upstream; this service only consumes the result.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("X-User-ID")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
			return
		}
		userID, err := strconv.ParseInt(header, 10, 64)
		if err != nil || userID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid identity"})
			return
		}

		c.Set(userIDKey, userID)
		c.Set(staffKey, c.GetHeader("X-User-Staff") == "true")
		c.Next()
	}
}

// UserID returns the authenticated user id from the request context.
func UserID(c *gin.Context) (int64, bool) {
	val, ok := c.Get(userIDKey)
	if !ok {
		return 0, false
	}
	userID, ok := val.(int64)
	return userID, ok
}

// IsStaff reports whether the authenticated user holds the staff capability.
func IsStaff(c *gin.Context) bool {
	return c.GetBool(staffKey)
}
