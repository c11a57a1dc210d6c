package ai

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is returned by Store implementations when a conversation does
// not exist or is not owned by the caller. The two cases are deliberately
// indistinguishable so that existence is never leaked to non-owners.
var ErrNotFound = errors.New("conversation not found")

// Error is a relay failure that occurred before any stream bytes were sent,
// mapped to the HTTP status the caller should receive.
type Error struct {
	Status  int
	Message string
	Details string
}

func (e *Error) Error() string {
	return fmt.Sprintf("relay error %d: %s", e.Status, e.Message)
}

func badRequest(msg string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: msg}
}

func notFound(msg string) *Error {
	return &Error{Status: http.StatusNotFound, Message: msg}
}

func internal(msg string) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: msg}
}
