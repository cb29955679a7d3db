package domain

import "errors"

var (
	ErrDraftNotFound  = errors.New("draft not found")
	ErrUnknownSection = errors.New("unknown section")
)
