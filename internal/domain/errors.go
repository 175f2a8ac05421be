package domain

import "errors"

// Expected, caller-recoverable conditions. Operations wrap them with the
// precondition that failed, so match with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrDepthExceeded   = errors.New("maximum comment depth reached")
	ErrAlreadyDone     = errors.New("already done")
	ErrNotDone         = errors.New("not done")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthenticated = errors.New("authentication required")
)

// FatalError wraps a storage failure. It is never retried and is surfaced
// to clients without detail.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *FatalError) Unwrap() error { return e.Err }

// Fatal wraps err as a FatalError unless it already belongs to the
// taxonomy above.
func Fatal(op string, err error) error {
	if err == nil || Code(err) != CodeInternal {
		return err
	}
	var fe *FatalError
	if errors.As(err, &fe) {
		return err
	}
	return &FatalError{Op: op, Err: err}
}

// Error codes exposed to clients.
const (
	CodeNotFound        = "NOT_FOUND"
	CodeForbidden       = "FORBIDDEN"
	CodeDepthExceeded   = "DEPTH_EXCEEDED"
	CodeAlreadyDone     = "ALREADY_DONE"
	CodeNotDone         = "NOT_DONE"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeInternal        = "INTERNAL"
)

// Code maps err onto its client-facing code.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, ErrDepthExceeded):
		return CodeDepthExceeded
	case errors.Is(err, ErrAlreadyDone):
		return CodeAlreadyDone
	case errors.Is(err, ErrNotDone):
		return CodeNotDone
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, ErrUnauthenticated):
		return CodeUnauthenticated
	default:
		return CodeInternal
	}
}
