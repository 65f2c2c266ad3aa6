package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ainexllc/ainexsuite-bridge/internal/service"
)

const uidContextKey = "auth.uid"

// RequireIdentity authenticates requests carrying a bearer identity token
// and stores the verified uid on the request context. Unauthenticated
// requests are rejected before the handler runs.
func RequireIdentity(sessions *service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("Authorization"))
		token, ok := strings.CutPrefix(raw, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
			return
		}

		uid, err := sessions.VerifyIdentityToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
			return
		}

		c.Set(uidContextKey, uid)
		c.Next()
	}
}

// UID returns the authenticated caller's uid, empty when the request did
// not pass RequireIdentity.
func UID(c *gin.Context) string {
	return c.GetString(uidContextKey)
}
