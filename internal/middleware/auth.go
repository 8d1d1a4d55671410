package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/civilregistry/backend/internal/authz"
	"github.com/civilregistry/backend/internal/utils"
)

const callerKey = "caller"

// AuthMiddleware verifies bearer tokens and attaches the caller to the context
func AuthMiddleware(tokens *utils.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			abort(c, http.StatusUnauthorized, "Not authorized to access this route")
			return
		}

		claims, err := tokens.Validate(tokenString)
		if err != nil {
			abort(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(callerKey, claims.Caller())
		c.Next()
	}
}

// RequireCapability rejects callers whose role lacks capability. It runs
// after AuthMiddleware.
func RequireCapability(capability authz.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CallerFrom(c)
		if !ok || !caller.Can(capability) {
			abort(c, http.StatusUnauthorized, "Not authorized to access this route")
			return
		}
		c.Next()
	}
}

// CallerFrom returns the caller attached by AuthMiddleware
func CallerFrom(c *gin.Context) (authz.Caller, bool) {
	value, exists := c.Get(callerKey)
	if !exists {
		return authz.Caller{}, false
	}
	caller, ok := value.(authz.Caller)
	return caller, ok
}

// extractToken gets the token from the Authorization header
func extractToken(c *gin.Context) string {
	parts := strings.Fields(c.GetHeader("Authorization"))
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": message})
}
