package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain operations
var (
	// ErrNetwork indicates the request failed in transport, returned a
	// non-2xx status, or came back without the expected envelope
	ErrNetwork = errors.New("library server request failed")

	// ErrValidation indicates a required field was missing; checked before
	// any request is sent
	ErrValidation = errors.New("invalid input")

	// ErrConflict indicates the backend rejected a state transition, e.g.
	// issuing a copy that is already out or returning a loan twice
	ErrConflict = errors.New("conflicts with current loan state")

	// ErrAuth indicates a missing, rejected, or expired session token
	ErrAuth = errors.New("authentication required")
)

// Validation returns an ErrValidation-wrapped error with a user-facing reason
func Validation(reason string) error {
	return fmt.Errorf("%w: %s", ErrValidation, reason)
}

// FailureKind classifies an error into the failure taxonomy
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureNetwork
	FailureValidation
	FailureConflict
	FailureAuth
)

func (k FailureKind) String() string {
	switch k {
	case FailureNetwork:
		return "network"
	case FailureValidation:
		return "validation"
	case FailureConflict:
		return "conflict"
	case FailureAuth:
		return "auth"
	default:
		return "none"
	}
}

// KindOf classifies err. Unknown errors count as network failures since
// they surfaced from the request path.
func KindOf(err error) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrAuth):
		return FailureAuth
	case errors.Is(err, ErrValidation):
		return FailureValidation
	case errors.Is(err, ErrConflict):
		return FailureConflict
	default:
		return FailureNetwork
	}
}
