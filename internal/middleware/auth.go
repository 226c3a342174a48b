package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// DevUserID is used for every request when running in development
const DevUserID = "00000000-0000-0000-0000-000000000001"

// DevelopmentAuthMiddleware is a simple auth middleware for development
func DevelopmentAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			userID = DevUserID
		}
		c.Set("user_id", userID)
		c.Next()
	}
}

// HeaderAuthMiddleware trusts the identity forwarded by the gateway in
// x-jwt-claim-sub (or X-User-ID from the auth BFF).
func HeaderAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("x-jwt-claim-sub")
		if userID == "" {
			userID = c.GetHeader("X-User-ID")
		}
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "User identity is required",
				},
			})
			c.Abort()
			return
		}
		c.Set("user_id", userID)
		c.Next()
	}
}

// GetUserID retrieves the user ID from gin context
func GetUserID(c *gin.Context) string {
	return c.GetString("user_id")
}
