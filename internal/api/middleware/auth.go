package middleware

import (
	"net/http"

	"github.com/bassista/mealsync/internal/api/controller"
	"github.com/bassista/mealsync/internal/push"
	"github.com/gin-gonic/gin"
)

// BearerAuth rejects requests whose Authorization bearer token check does not
// accept. The accepted token is stored under controller.TokenKey.
func BearerAuth(check func(token string) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := push.BearerToken(c.GetHeader("Authorization"))
		if token == "" || !check(token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing session token"})
			return
		}
		c.Set(controller.TokenKey, token)
		c.Next()
	}
}
