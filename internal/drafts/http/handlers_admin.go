package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListUsers returns every user with stored drafts
func (h *Handler) ListUsers(c *gin.Context) {
	sess := currentSession(c)
	if sess == nil {
		return
	}
	users, err := sess.Store.GetAllUsers(c.Request.Context())
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "count": len(users)})
}

// DeleteUser removes a user's stored data and, when an identity backend is
// configured, the account itself.
func (h *Handler) DeleteUser(c *gin.Context) {
	sess := currentSession(c)
	if sess == nil {
		return
	}

	uid := c.Param("uid")
	if uid == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "uid is required"})
		return
	}

	ctx := c.Request.Context()
	if err := sess.Store.DeleteUserAccount(ctx, uid); err != nil {
		writeStoreError(c, err)
		return
	}
	if h.accounts != nil {
		if err := h.accounts.DeleteUser(ctx, uid); err != nil {
			h.logger.WithRequest(ctx).LogErrorf("delete_user", "account uid=%s: %v", uid, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "user data deleted but the account could not be removed"})
			return
		}
	}
	if uid != sess.UID() {
		h.sessions.Close(uid)
	}
	h.logger.WithRequest(ctx).LogInfof("delete_user", "admin uid=%s deleted uid=%s", sess.UID(), uid)
	c.Status(http.StatusNoContent)
}
