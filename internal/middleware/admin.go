package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/memora/backend/internal/models"
)

// RequireAdmin ensures the request is authenticated and the user is an
// admin. The auth middleware must have run first and stored the user.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		userInterface, exists := c.Get("user")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		user, ok := userInterface.(*models.User)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_user_context"})
			return
		}

		if !user.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin_access_required"})
			return
		}

		c.Next()
	}
}
