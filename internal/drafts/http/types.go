package http

import (
	"context"

	"github.com/restoplan/planner-backend/internal/drafts/domain"
	"github.com/restoplan/planner-backend/internal/logging"
	"github.com/restoplan/planner-backend/internal/session"
)

// AccountDeleter removes an identity account. *identity.Directory implements it.
type AccountDeleter interface {
	DeleteUser(ctx context.Context, uid string) error
}

// Handler serves the planner state of the caller's session.
type Handler struct {
	sessions *session.Manager
	accounts AccountDeleter
	logger   *logging.Logger
}

// New creates a Handler. accounts may be nil when no identity backend is
// configured; admin deletes then only remove stored data.
func New(sessions *session.Manager, accounts AccountDeleter, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Handler{sessions: sessions, accounts: accounts, logger: logger.Named("drafts_http")}
}

type createDraftRequest struct {
	Name        string `json:"name"`
	BaseDraftID string `json:"baseDraftId,omitempty"`
	Sample      bool   `json:"sample,omitempty"`
}

type duplicateDraftRequest struct {
	Name string `json:"name"`
}

type currentDraftRequest struct {
	ID string `json:"id"`
}

type tabRequest struct {
	Tab string `json:"tab" binding:"required"`
}

type progressRequest struct {
	domain.Progress
	Save *bool `json:"save,omitempty"`
}
