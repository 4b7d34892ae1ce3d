package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"media-portfolio-api/internal/domain/media"
	"media-portfolio-api/internal/infrastructure/jwt"
)

const (
	CtxUserRole = "userRole"
	CtxOwnerID  = "ownerID"
)

func AuthMiddleware(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(
				http.StatusUnauthorized,
				gin.H{"error": "missing Authorization header"},
			)
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader {
			c.AbortWithStatusJSON(
				http.StatusUnauthorized,
				gin.H{"error": "invalid token format"},
			)
			return
		}

		claims, err := jwtService.ValidateToken(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(
				http.StatusUnauthorized,
				gin.H{"error": "invalid token"},
			)
			return
		}

		ownerID, err := uuid.Parse(claims.OwnerID)
		if err != nil {
			c.AbortWithStatusJSON(
				http.StatusUnauthorized,
				gin.H{"error": "invalid owner id in token"},
			)
			return
		}

		c.Set(CtxUserRole, claims.Role)
		c.Set(CtxOwnerID, ownerID)

		c.Next()
	}
}

// OwnerID returns the authenticated owner set by AuthMiddleware.
func OwnerID(c *gin.Context) (media.OwnerID, bool) {
	v, ok := c.Get(CtxOwnerID)
	if !ok {
		return media.OwnerID{}, false
	}
	id, ok := v.(media.OwnerID)
	return id, ok
}
