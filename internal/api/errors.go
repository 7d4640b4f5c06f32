package api

import (
	"fmt"
	"net/http"
)

// Error represents an API error. Code is the JSON-RPC error code, Status the
// HTTP status used by the REST endpoints.
type Error struct {
	Code    int
	Status  int
	Message string
}

// NewError creates a new API error
func NewError(code int, message string) *Error {
	return &Error{
		Code:    code,
		Status:  http.StatusInternalServerError,
		Message: message,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Code, e.Message)
}

func notFound() *Error {
	return &Error{Code: ErrNotFound, Status: http.StatusNotFound, Message: "The requested URL or resource could not be found."}
}

func notLoggedIn() *Error {
	return &Error{Code: ErrInvalidAccess, Status: http.StatusForbidden, Message: "You need to be logged in to do that."}
}

func invalidParams(format string, args ...interface{}) *Error {
	return &Error{Code: ErrInvalidParams, Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

const notUnlockedMessage = "You have not unlocked this content yet."
