package chat

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure a handler reports to a client wraps exactly one
// of these so callers can classify it with errors.Is.
var (
	ErrValidation    = errors.New("validation error")
	ErrConflict      = errors.New("conflict error")
	ErrAuthorization = errors.New("authorization error")
	ErrNotFound      = errors.New("not found error")
)

// Error is a client-facing failure. Message is sent verbatim in the error
// event; Kind is one of the sentinel errors above.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func validationf(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func conflictf(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

func unauthorizedf(format string, args ...any) error {
	return &Error{Kind: ErrAuthorization, Message: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

// ClientMessage returns the text that should reach the originating
// connection for err. Errors outside the taxonomy are not leaked.
func ClientMessage(err error) string {
	var chatErr *Error
	if errors.As(err, &chatErr) {
		return chatErr.Message
	}
	return "internal error"
}
