package journal

import "errors"

// ErrorCode categorizes journal errors so callers can report them
// distinctly instead of pattern-matching message strings.
type ErrorCode int

const (
	// ErrNotFound indicates the operation id is unknown
	ErrNotFound ErrorCode = iota

	// ErrAlreadyUndone indicates the operation was already undone
	ErrAlreadyUndone

	// ErrCannotUndo indicates the operation is not eligible for undo
	// (failed, still pending, or explicitly marked irreversible)
	ErrCannotUndo

	// ErrInvalidTransition indicates a status update that violates the
	// operation state machine
	ErrInvalidTransition

	// ErrIOFailure wraps a filesystem error during an undo step
	ErrIOFailure
)

// Error is the journal's typed error.
type Error struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable description
	Message string

	// OpID is the operation the error relates to, if any
	OpID string

	// Cause is the underlying error for ErrIOFailure
	Cause error
}

func (e *Error) Error() string {
	if e.OpID != "" {
		return e.Message + ": " + e.OpID
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// CodeOf extracts the ErrorCode from err. The second return is false when
// err is not a journal error.
func CodeOf(err error) (ErrorCode, bool) {
	var je *Error
	if errors.As(err, &je) {
		return je.Code, true
	}
	return 0, false
}

// IsCode reports whether err is a journal error with the given code.
func IsCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

func newError(code ErrorCode, message, opID string) *Error {
	return &Error{Code: code, Message: message, OpID: opID}
}

func ioError(message, opID string, cause error) *Error {
	return &Error{Code: ErrIOFailure, Message: message, OpID: opID, Cause: cause}
}
