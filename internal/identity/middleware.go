package identity

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const contextKey = "identity"

// ExtractToken pulls the session token from the access_token cookie (browser)
// or the Authorization header (API clients).
func ExtractToken(r *http.Request) string {
	if cookie, err := r.Cookie("access_token"); err == nil {
		return cookie.Value
	}
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// Middleware rejects requests without a valid session and stores the verified
// identity in the gin context.
func Middleware(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ExtractToken(c.Request)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ident, err := svc.Verify(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
			return
		}

		c.Set(contextKey, ident)
		c.Next()
	}
}

// FromContext returns the identity stored by Middleware.
func FromContext(c *gin.Context) (*Identity, bool) {
	v, ok := c.Get(contextKey)
	if !ok {
		return nil, false
	}
	ident, ok := v.(*Identity)
	return ident, ok
}
