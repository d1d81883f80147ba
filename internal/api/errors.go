package api

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string

	// Fields holds per-field validation messages when the backend sent them.
	Fields map[string]string
}

func (e *APIError) Error() string {
	return e.Message
}

// HTTPStatus returns the response status code.
func (e *APIError) HTTPStatus() int {
	return e.Status
}

// ForcedReauthError is a 401 carrying a redirect: the backend has ended
// the session and the client must sign in again.
type ForcedReauthError struct {
	RedirectTo string
	Message    string
}

func (e *ForcedReauthError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("session ended by server: %s", e.Message)
	}
	return "session ended by server"
}

// HTTPStatus returns 401.
func (e *ForcedReauthError) HTTPStatus() int {
	return http.StatusUnauthorized
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.Status
	}
	var reauth *ForcedReauthError
	if stderrors.As(err, &reauth) {
		return http.StatusUnauthorized
	}
	return 0
}

// IsNotFound reports a 404 response.
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}

// IsForcedReauth reports whether err ended the session.
func IsForcedReauth(err error) bool {
	var reauth *ForcedReauthError
	return stderrors.As(err, &reauth)
}
