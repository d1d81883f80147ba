package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Authentication errors (AUTH-001 to AUTH-099)
	ErrCodeAuthInvalidCredentials ErrorCode = "AUTH-001"
	ErrCodeAuthEmailNotVerified   ErrorCode = "AUTH-002"
	ErrCodeAuthNotLoggedIn        ErrorCode = "AUTH-003"
	ErrCodeAuthForcedReauth       ErrorCode = "AUTH-004"

	// Session errors (SESSION-001 to SESSION-099)
	ErrCodeSessionInvalid   ErrorCode = "SESSION-001"
	ErrCodeSessionForbidden ErrorCode = "SESSION-002"

	// Backend API errors (API-001 to API-099)
	ErrCodeAPIUnavailable ErrorCode = "API-001"
	ErrCodeAPIRequest     ErrorCode = "API-002"
	ErrCodeAPIResponse    ErrorCode = "API-003"

	// Validation errors (VALIDATION-001 to VALIDATION-099)
	ErrCodeValidationFailed ErrorCode = "VALIDATION-001"

	// Storage errors (STORAGE-001 to STORAGE-099)
	ErrCodeStorageUnavailable ErrorCode = "STORAGE-001"
	ErrCodeStorageBackend     ErrorCode = "STORAGE-002"

	// Configuration errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigInvalid ErrorCode = "CONFIG-001"
	ErrCodeConfigRead    ErrorCode = "CONFIG-002"
)

// PortalError represents an enhanced error with code and suggestions
type PortalError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	Cause       error
}

// Error implements the error interface
func (e *PortalError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *PortalError) Unwrap() error {
	return e.Cause
}

// New creates a new PortalError
func New(code ErrorCode, message string) *PortalError {
	return &PortalError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new PortalError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *PortalError {
	return &PortalError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *PortalError) WithSuggestion(suggestion string) *PortalError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *PortalError) WithSuggestions(suggestions ...string) *PortalError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// CodeOf returns the code of the first PortalError in the chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var pe *PortalError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// NewNotLoggedInError is returned by commands that need a session when there is none.
func NewNotLoggedInError() *PortalError {
	return New(ErrCodeAuthNotLoggedIn, "not logged in").
		WithSuggestion("Run 'portal login' to sign in as a candidate").
		WithSuggestion("Run 'portal login --admin' to sign in as a company administrator")
}

// NewInvalidCredentialsError wraps a login rejection from the backend.
func NewInvalidCredentialsError(message string) *PortalError {
	if message == "" {
		message = "Login failed"
	}
	return New(ErrCodeAuthInvalidCredentials, message).
		WithSuggestion("Check your email and password").
		WithSuggestion("Run 'portal reset-password' if you forgot your password")
}

// NewEmailNotVerifiedError is the login failure for accounts that never confirmed their OTP.
func NewEmailNotVerifiedError(admin bool) *PortalError {
	cmd := "portal verify --email <email> --otp <code>"
	if admin {
		cmd += " --admin"
	}
	return New(ErrCodeAuthEmailNotVerified, "Email not verified").
		WithSuggestion(fmt.Sprintf("Run '%s' with the code you received", cmd)).
		WithSuggestion("Run 'portal verify --resend --email <email>' to get a new code")
}

// NewForbiddenRouteError reports that the guard sent the user elsewhere.
func NewForbiddenRouteError(requested, redirect string) *PortalError {
	return New(ErrCodeSessionForbidden, fmt.Sprintf("%s is not reachable with the current session (redirected to %s)", requested, redirect)).
		WithSuggestion("Run 'portal status' to see your access level")
}

// NewAPIUnavailableError reports a backend that could not be reached.
func NewAPIUnavailableError(baseURL string, cause error) *PortalError {
	return Wrap(ErrCodeAPIUnavailable, fmt.Sprintf("backend unreachable at %s", baseURL), cause).
		WithSuggestion("Check the api.url setting with 'portal config get api.url'").
		WithSuggestion("Set PORTAL_API_URL to point at a running backend")
}

// NewStorageError reports a session storage backend that cannot be opened.
func NewStorageError(backend string, cause error) *PortalError {
	return Wrap(ErrCodeStorageUnavailable, fmt.Sprintf("session storage %q unavailable", backend), cause).
		WithSuggestion("Check the storage.* settings with 'portal config view'").
		WithSuggestion("Use --ephemeral to run with in-memory storage")
}

// NewConfigInvalidError reports a configuration value that cannot be used.
func NewConfigInvalidError(key, details string) *PortalError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration %s: %s", key, details)).
		WithSuggestion("Run 'portal config path' to locate the configuration file")
}
