package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/restoplan/planner-backend/internal/identity"
	"github.com/restoplan/planner-backend/internal/session"
)

const (
	CtxFirebaseUID = "firebase_uid"
	CtxEmail       = "email"
	CtxUser        = "auth_user"
)

// SetUser stores a verified identity on the Gin context.
func SetUser(c *gin.Context, u identity.User) {
	c.Set(CtxFirebaseUID, u.UID)
	if u.Email != "" {
		c.Set(CtxEmail, u.Email)
	}
	c.Set(CtxUser, u)
}

// UserFirebaseUID extracts the uid set by the auth middleware.
func UserFirebaseUID(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxFirebaseUID))
}

// CurrentUser returns the identity set by the auth middleware.
func CurrentUser(c *gin.Context) (identity.User, bool) {
	v, ok := c.Get(CtxUser)
	if !ok {
		return identity.User{}, false
	}
	u, ok := v.(identity.User)
	return u, ok && u.UID != ""
}

const CtxSession = "session"

// WithSession opens (or reuses) the caller's session. It must run after an
// auth middleware.
func WithSession(m *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
			c.Abort()
			return
		}
		c.Set(CtxSession, m.Open(u))
		c.Next()
	}
}

// Session returns the session set by WithSession.
func Session(c *gin.Context) *session.Session {
	v, ok := c.Get(CtxSession)
	if !ok {
		return nil
	}
	s, _ := v.(*session.Session)
	return s
}
