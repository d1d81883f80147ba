package exitcode

import (
	stderrors "errors"
	"net/http"
	"os"
	"strings"

	"github.com/centennial-infotech/portal/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates successful execution
	Success = 0

	// GeneralError indicates a general error condition
	GeneralError = 1

	// UsageError indicates invalid command usage (bad flags, missing args, etc.)
	UsageError = 2

	// Forbidden indicates the session cannot reach the requested route
	Forbidden = 3

	// StorageError indicates the session store could not be read or written
	StorageError = 4

	// AuthError indicates an authentication or authorization failure
	AuthError = 5

	// NetworkError indicates a network connectivity issue
	NetworkError = 6

	// Interrupted indicates the user cancelled with Ctrl+C
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	if err == nil {
		Exit(Success)
		return
	}
	Exit(DetermineExitCode(err))
}

// DetermineExitCode maps an error to an exit code. Coded errors are
// classified by their code; anything else falls back to message matching.
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	switch errors.CodeOf(err) {
	case errors.ErrCodeAuthInvalidCredentials, errors.ErrCodeAuthEmailNotVerified,
		errors.ErrCodeAuthNotLoggedIn, errors.ErrCodeAuthForcedReauth, errors.ErrCodeSessionInvalid:
		return AuthError
	case errors.ErrCodeSessionForbidden:
		return Forbidden
	case errors.ErrCodeAPIUnavailable:
		return NetworkError
	case errors.ErrCodeStorageUnavailable, errors.ErrCodeStorageBackend:
		return StorageError
	case errors.ErrCodeValidationFailed, errors.ErrCodeConfigInvalid:
		return UsageError
	}

	var withStatus interface{ HTTPStatus() int }
	if stderrors.As(err, &withStatus) {
		switch status := withStatus.HTTPStatus(); {
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return AuthError
		case status == http.StatusServiceUnavailable || status == http.StatusBadGateway || status == http.StatusGatewayTimeout:
			return NetworkError
		}
	}

	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "unauthorized") || strings.Contains(errMsg, "not logged in") {
		return AuthError
	}

	if strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "no such host") {
		return NetworkError
	}
	if strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "unreachable") {
		return NetworkError
	}

	if strings.Contains(errMsg, "invalid flag") || strings.Contains(errMsg, "unknown command") {
		return UsageError
	}
	if strings.Contains(errMsg, "required flag") || strings.Contains(errMsg, "accepts ") {
		return UsageError
	}

	return GeneralError
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags or arguments)"
	case Forbidden:
		return "Route not reachable with the current session"
	case StorageError:
		return "Session storage error"
	case AuthError:
		return "Authentication error"
	case NetworkError:
		return "Network error"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
