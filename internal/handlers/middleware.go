package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"librarium/internal/services"
)

const principalKey = "principal_id"

// AuthRequired resolves the Bearer token into a principal id and aborts with
// 401 when it is missing or invalid. Downstream handlers read the id via
// currentUserID; no request-scoped global state is involved.
func AuthRequired(auth services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Unauthenticated",
			})
			return
		}

		userID, err := auth.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Unauthenticated",
			})
			return
		}

		c.Set(principalKey, userID)
		c.Next()
	}
}

// currentUserID returns the authenticated principal set by AuthRequired.
func currentUserID(c *gin.Context) uuid.UUID {
	id, _ := c.MustGet(principalKey).(uuid.UUID)
	return id
}
