package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/restoplan/planner-backend/internal/identity"
)

// OfflineUser trusts the X-User-Id header. It is installed instead of token
// verification when no remote backend is configured, matching the offline
// identity provider, which never verifies credentials either.
func OfflineUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := strings.TrimSpace(c.GetHeader("X-User-Id"))
		if uid == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing X-User-Id header"})
			c.Abort()
			return
		}

		SetUser(c, identity.User{
			UID:         uid,
			Email:       strings.TrimSpace(c.GetHeader("X-User-Email")),
			DisplayName: strings.TrimSpace(c.GetHeader("X-User-Name")),
			IsAnonymous: c.GetHeader("X-User-Anonymous") == "true",
		})
		c.Next()
	}
}
