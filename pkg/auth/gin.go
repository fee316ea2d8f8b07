package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GinMiddleware authenticates requests with a bearer token. Paths listed in
// skipPaths (matched against the route pattern) pass through unauthenticated.
func GinMiddleware(validator TokenValidator, skipPaths ...string) gin.HandlerFunc {
	skipSet := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skipSet[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, skip := skipSet[c.FullPath()]; skip {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}
		claims, err := validator.ValidateToken(bearerToken(header))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Request = c.Request.WithContext(ContextWithClaims(c.Request.Context(), claims))
		c.Next()
	}
}

// GinRequireRole rejects requests whose claims hold none of roles.
func GinRequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFromContext(c.Request.Context())
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no claims in context"})
			return
		}
		if !claims.HasAnyRole(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		c.Next()
	}
}
