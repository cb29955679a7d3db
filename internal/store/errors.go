package store

import (
	"context"
	"errors"

	"github.com/restoplan/planner-backend/internal/identity"
	"github.com/restoplan/planner-backend/internal/storage/remote"
)

var (
	// ErrNotSignedIn is returned by persisting actions when no user is signed in.
	ErrNotSignedIn = identity.ErrNotSignedIn

	ErrNoActiveDraft = errors.New("no active draft")
)

// reason turns a backend error into the tail of a user-visible message.
func reason(err error) string {
	switch {
	case errors.Is(err, remote.ErrPermissionDenied):
		return "you do not have permission to save. Please sign in again."
	case errors.Is(err, remote.ErrQuotaExceeded):
		return "the storage quota was exceeded. Please try again later."
	case errors.Is(err, remote.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return "the server could not be reached. Check your connection and save again."
	case errors.Is(err, ErrNotSignedIn):
		return "please sign in first."
	default:
		return "an unexpected error occurred. Please try again."
	}
}
