package http

import (
	"github.com/restoplan/planner-backend/internal/identity"
	"github.com/restoplan/planner-backend/internal/session"
)

type Handler struct {
	sessions *session.Manager
}

func New(sessions *session.Manager) *Handler {
	return &Handler{
		sessions: sessions,
	}
}

type credentials struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	User         *identity.User `json:"user"`
	IDToken      string         `json:"idToken,omitempty"`
	RefreshToken string         `json:"refreshToken,omitempty"`
}

func newAuthResponse(u *identity.User) authResponse {
	return authResponse{User: u, IDToken: u.IDToken, RefreshToken: u.RefreshToken}
}
