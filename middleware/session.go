package middleware

import (
	"net/http"
	"strings"

	"venuedir/models"
	"venuedir/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionMiddleware reads the bearer token and stores the caller's
// models.Session under utils.SessionContextKey. With required set, requests
// without a valid token are rejected; otherwise they proceed anonymously.
func SessionMiddleware(required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
				return
			}
			c.Set(utils.SessionContextKey, models.Session{})
			c.Next()
			return
		}

		claims, err := utils.ExtractSessionClaims(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			zap.L().Debug("Rejected bearer token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(utils.SessionContextKey, models.Session{
			UserID:     claims.UserID,
			UserName:   claims.UserName,
			UserAvatar: claims.UserAvatar,
		})
		c.Next()
	}
}

// SessionFrom returns the session stored by SessionMiddleware, or the
// anonymous session.
func SessionFrom(c *gin.Context) models.Session {
	if v, ok := c.Get(utils.SessionContextKey); ok {
		if s, ok := v.(models.Session); ok {
			return s
		}
	}
	return models.Session{}
}
