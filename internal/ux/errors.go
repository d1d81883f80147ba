package ux

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	perrors "github.com/centennial-infotech/portal/internal/errors"
)

// ErrorWithSuggestion wraps an error with one recovery hint.
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

func (e *ErrorWithSuggestion) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%v\n\nSuggestion: %s", e.Err, e.Suggestion)
	}
	return e.Err.Error()
}

func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// NewErrorWithSuggestion returns nil for a nil err.
func NewErrorWithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}
	return &ErrorWithSuggestion{Err: err, Suggestion: suggestion}
}

// EnhanceError adds a hint to errors that carry none. Coded portal errors
// already list their own suggestions and pass through unchanged.
func EnhanceError(err error) error {
	if err == nil {
		return nil
	}
	var pe *perrors.PortalError
	if errors.As(err, &pe) && len(pe.Suggestions) > 0 {
		return err
	}

	msg := err.Error()
	switch {
	case errors.Is(err, fs.ErrPermission) || strings.Contains(msg, "permission denied"):
		return NewErrorWithSuggestion(err,
			"Check the permissions of ~/.portal or run with --ephemeral")
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host"):
		return NewErrorWithSuggestion(err,
			"Check that the backend is running and api.url points at it")
	case strings.Contains(msg, "redirect loop"):
		return NewErrorWithSuggestion(err,
			"Run 'portal logout' to reset the session")
	case perrors.HasCode(err, perrors.ErrCodeSessionForbidden):
		return NewErrorWithSuggestion(err, "Run 'portal nav' to list the screens you can open")
	}
	return err
}

// FormatError enhances err and prefixes it with context.
func FormatError(err error, context string) error {
	if err == nil {
		return nil
	}
	enhanced := EnhanceError(err)
	if context != "" {
		return fmt.Errorf("%s: %w", context, enhanced)
	}
	return enhanced
}
