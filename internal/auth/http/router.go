package http

import "github.com/gin-gonic/gin"

// RegisterPublic registers the sign-in routes, which need no token.
func (h *Handler) RegisterPublic(rg *gin.RouterGroup) {
	rg.POST("/sign-in", h.SignIn)
	rg.POST("/sign-up", h.SignUp)
	rg.POST("/anonymous", h.SignInAnonymously)
	rg.POST("/custom-token", h.SignInWithCustomToken)
	rg.POST("/google", h.SignInWithGoogle)
}

// Register registers routes that act on the caller's session.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/me", h.GetProfile)
	rg.PUT("/profile", h.UpdateProfile)
	rg.POST("/link", h.LinkWithEmail)
	rg.DELETE("/session", h.SignOut)
}
