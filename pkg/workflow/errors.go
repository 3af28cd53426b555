package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured means no approval chain exists for the asset's
	// content category in its project.
	ErrNotConfigured = errors.New("no approval chain configured for this content category")

	// ErrNoApproversFound means a chain exists but at least one of its
	// required roles has no holder in the project.
	ErrNoApproversFound = errors.New("no approvers found for the required roles")

	// ErrNotAuthorized means the acting user does not own the targeted record.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrPersistence wraps failures returned by the database.
	ErrPersistence = errors.New("persistence failure")

	ErrNotFound       = errors.New("not found")
	ErrAlreadyDecided = errors.New("approval has already been decided")
	ErrInvalidInput   = errors.New("invalid input")
	ErrAlreadyMember  = errors.New("user is already a member of this project")
)

func persistenceError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

func notFound(what string) error {
	return fmt.Errorf("%s %w", what, ErrNotFound)
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
