package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shiftwise/auth-api/internal/token"
)

// Context keys set by RequireToken
const (
	ClaimsKey   = "claims"
	UsernameKey = "username"
)

// RequireToken rejects requests without a valid bearer token and exposes
// the verified claims to downstream handlers
func RequireToken(issuer *token.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		claims, err := issuer.Validate(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(UsernameKey, claims.Username)
		c.Next()
	}
}

// UsernameFromContext returns the authenticated username, if any
func UsernameFromContext(c *gin.Context) (string, bool) {
	username := c.GetString(UsernameKey)
	return username, username != ""
}
