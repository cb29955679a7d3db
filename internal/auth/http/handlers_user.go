package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/restoplan/planner-backend/internal/auth"
	"github.com/restoplan/planner-backend/internal/identity"
	"github.com/restoplan/planner-backend/internal/session"
)

// SignIn signs in with email and password and opens the user's session.
func (h *Handler) SignIn(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}
	h.authenticate(c, func(ctx context.Context, svc *identity.Service) (*identity.User, error) {
		return svc.SignInWithEmail(ctx, req.Email, req.Password)
	})
}

// SignUp creates an email account and opens its session.
func (h *Handler) SignUp(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}
	h.authenticate(c, func(ctx context.Context, svc *identity.Service) (*identity.User, error) {
		return svc.SignUpWithEmail(ctx, req.Email, req.Password)
	})
}

func (h *Handler) SignInAnonymously(c *gin.Context) {
	h.authenticate(c, func(ctx context.Context, svc *identity.Service) (*identity.User, error) {
		return svc.SignInAnonymously(ctx)
	})
}

func (h *Handler) SignInWithCustomToken(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}
	h.authenticate(c, func(ctx context.Context, svc *identity.Service) (*identity.User, error) {
		return svc.SignInWithCustomToken(ctx, req.Token)
	})
}

// SignInWithGoogle exchanges a Google ID token obtained by the client.
func (h *Handler) SignInWithGoogle(c *gin.Context) {
	var req struct {
		IDToken string `json:"idToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "idToken is required"})
		return
	}
	h.authenticate(c, func(ctx context.Context, svc *identity.Service) (*identity.User, error) {
		return svc.SignInWithGoogle(ctx, req.IDToken)
	})
}

func (h *Handler) authenticate(c *gin.Context, fn session.SignInFunc) {
	var user *identity.User
	sess, err := h.sessions.Authenticate(c.Request.Context(), c.ClientIP(), func(ctx context.Context, svc *identity.Service) (*identity.User, error) {
		u, err := fn(ctx, svc)
		user = u
		return u, err
	})
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"auth":  newAuthResponse(user),
		"state": sess.Store.State(),
	})
}

// GetProfile returns the current user's identity
func (h *Handler) GetProfile(c *gin.Context) {
	sess := auth.Session(c)
	if sess == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": sess.Identity.CurrentUser()})
}

// UpdateProfile changes the display name
func (h *Handler) UpdateProfile(c *gin.Context) {
	sess := auth.Session(c)
	if sess == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req struct {
		DisplayName string `json:"displayName" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := sess.Identity.UpdateProfile(c.Request.Context(), req.DisplayName)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// LinkWithEmail upgrades an anonymous session to an email account.
func (h *Handler) LinkWithEmail(c *gin.Context) {
	sess := auth.Session(c)
	if sess == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	oldUID := sess.UID()
	user, err := sess.Identity.LinkWithEmailAndPassword(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	h.sessions.Rekey(oldUID, user.UID)
	c.JSON(http.StatusOK, gin.H{"auth": newAuthResponse(user)})
}

// SignOut ends the session. Unsaved edits are discarded.
func (h *Handler) SignOut(c *gin.Context) {
	sess := auth.Session(c)
	if sess == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}
	uid := sess.UID()
	sess.Identity.SignOut()
	h.sessions.Close(uid)
	c.Status(http.StatusNoContent)
}

func writeAuthError(c *gin.Context, err error) {
	c.JSON(authStatus(err), gin.H{"error": identity.Message(err)})
}

func authStatus(err error) int {
	switch {
	case errors.Is(err, identity.ErrUserNotFound), errors.Is(err, identity.ErrWrongCredential),
		errors.Is(err, identity.ErrNotSignedIn):
		return http.StatusUnauthorized
	case errors.Is(err, identity.ErrAlreadyInUse):
		return http.StatusConflict
	case errors.Is(err, identity.ErrWeakCredential):
		return http.StatusBadRequest
	case errors.Is(err, identity.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, identity.ErrNetwork):
		return http.StatusServiceUnavailable
	case errors.Is(err, identity.ErrProviderDisabled):
		return http.StatusForbidden
	default:
		return http.StatusBadGateway
	}
}
