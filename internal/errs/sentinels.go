// Package errs contains the error taxonomy shared across layers so callers
// branch on kind, not on library-specific shapes.
package errs

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is branching.
var (
	// ErrUnauthorized indicates the backend rejected the caller's credentials
	// or scope.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConstraint indicates the backend refused the write (unique key,
	// ownership, schema violation).
	ErrConstraint = errors.New("constraint violation")

	// ErrUnavailable indicates a transport-level failure (network, timeout,
	// unexpected status).
	ErrUnavailable = errors.New("store unavailable")

	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")
)

// StoreError is a normalized failure from the entry persistence backend.
// It always wraps one of the sentinels above.
type StoreError struct {
	Op      string // "list", "upsert", "remove"
	Message string // backend-supplied detail, may be empty
	Err     error  // sentinel kind
}

func (e *StoreError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s: %v: %s", e.Op, e.Err, e.Message)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError builds a StoreError of the given kind.
func NewStoreError(op string, kind error, message string) *StoreError {
	return &StoreError{Op: op, Message: message, Err: kind}
}

// AuthError is a user-visible authentication failure. Message is already
// localized and safe to display; provider detail is intentionally withheld.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }
