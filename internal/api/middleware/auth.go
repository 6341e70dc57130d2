package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Ayewealth/harbourhub/internal/auth"
	"github.com/Ayewealth/harbourhub/internal/models"
)

const (
	// ContextKeyActor holds the key for the acting user in Gin context.
	ContextKeyActor = "actor"
)

// AuthMiddleware creates a Gin middleware for JWT authentication. The
// validated claims become the acting user for downstream handlers; permission
// decisions against specific resources happen in the policy layer, not here.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		claims, err := auth.ValidateJWT(parts[1], jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": fmt.Sprintf("Invalid or expired token: %v", err)})
			return
		}

		c.Set(ContextKeyActor, claims.Actor())
		c.Next()
	}
}

// AdminMiddleware rejects non-admin actors. Assumes AuthMiddleware ran first.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorFromContext(c)
		if actor == nil || !actor.Role.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Administrator privileges required"})
			return
		}
		c.Next()
	}
}

// ActorFromContext returns the authenticated user set by AuthMiddleware, or
// nil on unauthenticated routes.
func ActorFromContext(c *gin.Context) *models.User {
	v, exists := c.Get(ContextKeyActor)
	if !exists {
		return nil
	}
	actor, ok := v.(*models.User)
	if !ok {
		return nil
	}
	return actor
}
