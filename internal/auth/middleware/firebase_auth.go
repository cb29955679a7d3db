package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/restoplan/planner-backend/internal/auth"
	"github.com/restoplan/planner-backend/internal/identity"
)

// TokenVerifier checks a Firebase ID token. *identity.Directory implements it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*identity.User, error)
}

// FirebaseAuthMiddleware validates Firebase ID tokens and extracts user info
func FirebaseAuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization token"})
			c.Abort()
			return
		}

		user, err := verifier.VerifyIDToken(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		auth.SetUser(c, *user)
		c.Next()
	}
}

// RequireAdmin rejects users for whom isAdmin is false. It must run after
// an auth middleware.
func RequireAdmin(isAdmin func(uid string) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isAdmin(auth.UserFirebaseUID(c)) {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// extractToken extracts the Bearer token from the Authorization header
func extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if len(bearerToken) > 7 && strings.HasPrefix(bearerToken, "Bearer ") {
		return strings.TrimSpace(bearerToken[7:])
	}
	return ""
}
