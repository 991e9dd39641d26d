package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Yasuhisa-O/SNS/internal/database"
	"github.com/Yasuhisa-O/SNS/internal/models"
)

// ActiveUserMiddleware ensures the authenticated account has been
// activated (a password has been set through a reset token).
// It must be used AFTER the standard AuthMiddleware.
func ActiveUserMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			// This should not happen if AuthMiddleware is used before it
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		var user models.User
		if err := database.DB.First(&user, userID.(uint)).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Authenticated user not found"})
			return
		}

		if !user.Active {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Account is not activated, reset your password first"})
			return
		}

		c.Next()
	}
}
