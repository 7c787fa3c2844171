package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/podium/pkg/podium/models"
)

// claimsKey holds the caller's *Claims in the gin context
const claimsKey = "podium.claims"

// AuthMiddleware requires a valid access token. Expired tokens answer
// 401 token_expired so clients know to refresh rather than sign in again.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		claims, err := ValidateToken(token)
		if errors.Is(err, ErrExpiredToken) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token has expired", "code": "token_expired"})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireAdmin limits a route to system admins. It must run after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := GetSystemRole(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		if role != string(models.SystemRoleAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}

func claimsFrom(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}

// GetUserID returns the authenticated user's id
func GetUserID(c *gin.Context) (uint, bool) {
	claims, ok := claimsFrom(c)
	if !ok {
		return 0, false
	}
	return claims.UserID, true
}

// GetSystemRole returns the authenticated user's system role
func GetSystemRole(c *gin.Context) (string, bool) {
	claims, ok := claimsFrom(c)
	if !ok {
		return "", false
	}
	return claims.SystemRole, true
}
