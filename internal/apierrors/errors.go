// Package apierrors defines errors that are safe to return to API clients.
package apierrors

import (
	"errors"
	"net/http"
)

// APIError is an error with a client-facing message and HTTP status.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

func newError(status int, message string) *APIError {
	return &APIError{Status: status, Message: message}
}

// As returns the APIError in err's chain, if any.
func As(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func NewErrBadRequest(message string) *APIError {
	return newError(http.StatusBadRequest, message)
}

func NewErrInternalServerError() *APIError {
	return newError(http.StatusInternalServerError, "internal server error")
}

func NewErrMissingAuthorizationToken() *APIError {
	return newError(http.StatusUnauthorized, "missing authorization token")
}

func NewErrInvalidAuthorizationToken() *APIError {
	return newError(http.StatusUnauthorized, "invalid authorization token")
}

func NewErrEmailIsTaken() *APIError {
	return newError(http.StatusBadRequest, "email already registered")
}

func NewErrUsernameIsTaken() *APIError {
	return newError(http.StatusBadRequest, "username already exists")
}

// NewErrInvalidCredentials does not say which of identifier or password was wrong.
func NewErrInvalidCredentials() *APIError {
	return newError(http.StatusBadRequest, "invalid credentials")
}

func NewErrUserNotFound() *APIError {
	return newError(http.StatusNotFound, "user not found")
}

func NewErrGuestForbidden() *APIError {
	return newError(http.StatusForbidden, "guests are not allowed to perform this action")
}

func NewErrChannelNotFound() *APIError {
	return newError(http.StatusNotFound, "channel not found")
}

func NewErrInvalidKey() *APIError {
	return newError(http.StatusNotFound, "invalid key")
}

func NewErrOwnChannel() *APIError {
	return newError(http.StatusBadRequest, "cannot join your own channel")
}

func NewErrNotChannelMember() *APIError {
	return newError(http.StatusForbidden, "not a member of this channel")
}

func NewErrJoinRequestNotFound() *APIError {
	return newError(http.StatusNotFound, "join request not found")
}

func NewErrPublicKeyNotFound() *APIError {
	return newError(http.StatusNotFound, "public key not found")
}

func NewErrUnsupportedFileType() *APIError {
	return newError(http.StatusBadRequest, "unsupported file type")
}

func NewErrFileTooLarge() *APIError {
	return newError(http.StatusRequestEntityTooLarge, "file too large")
}

func NewErrTooManyRequests() *APIError {
	return newError(http.StatusTooManyRequests, "too many requests")
}
