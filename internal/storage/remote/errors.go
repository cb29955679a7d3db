package remote

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error kinds callers can branch on with errors.Is.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrUnavailable      = errors.New("backend unavailable")
	ErrQuotaExceeded    = errors.New("quota exceeded")
	ErrBackend          = errors.New("backend failure")
)

// Error is a classified remote backend failure.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error { return []error{e.Kind, e.Err} }

// IsNetwork reports whether err means the backend could not be reached.
func IsNetwork(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		return err
	}
	return &Error{Op: op, Kind: kindOf(err), Err: err}
}

func kindOf(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrUnavailable
	}
	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unauthenticated:
		return ErrPermissionDenied
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.ResourceExhausted:
		return ErrQuotaExceeded
	default:
		return ErrBackend
	}
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}
