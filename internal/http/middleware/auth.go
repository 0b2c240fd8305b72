// README: Identity middleware. The gateway in front of this service
// authenticates the user and forwards the identity headers; here they are
// trusted as-is.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	userIDKey   = "auth.user_id"
	verifiedKey = "auth.verified"
)

// Identity requires an X-User-ID header and stashes the caller identity on
// the request context. X-User-Verified carries the KYC flag.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		c.Set(userIDKey, userID)
		c.Set(verifiedKey, c.GetHeader("X-User-Verified") == "true")
		c.Next()
	}
}

// RequireAdmin gates admin-only routes on the configured admin user id.
func RequireAdmin(adminUserID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminUserID == "" || UserID(c) != adminUserID {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

func Verified(c *gin.Context) bool {
	return c.GetBool(verifiedKey)
}
