package exitcode

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/centennial-infotech/portal/internal/errors"
)

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		expected int
	}{
		{"Success", Success, 0},
		{"GeneralError", GeneralError, 1},
		{"UsageError", UsageError, 2},
		{"Forbidden", Forbidden, 3},
		{"StorageError", StorageError, 4},
		{"AuthError", AuthError, 5},
		{"NetworkError", NetworkError, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.code != tt.expected {
				t.Errorf("Exit code %s = %d, want %d", tt.name, tt.code, tt.expected)
			}
		})
	}
}

func TestDetermineExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, Success},
		{"not logged in", errors.NewNotLoggedInError(), AuthError},
		{"wrapped credentials", fmt.Errorf("login: %w", errors.NewInvalidCredentialsError("")), AuthError},
		{"forced reauth", errors.New(errors.ErrCodeAuthForcedReauth, "session expired"), AuthError},
		{"forbidden route", errors.NewForbiddenRouteError("/admin/users", "/profile"), Forbidden},
		{"api down", errors.NewAPIUnavailableError("http://localhost:5000", stderrors.New("dial tcp")), NetworkError},
		{"storage", errors.NewStorageError("redis", stderrors.New("ping")), StorageError},
		{"validation", errors.New(errors.ErrCodeValidationFailed, "email is required"), UsageError},
		{"plain connection refused", stderrors.New("dial tcp 127.0.0.1:5000: connection refused"), NetworkError},
		{"cobra unknown command", stderrors.New(`unknown command "foo" for "portal"`), UsageError},
		{"http 401", statusErr(401), AuthError},
		{"http 503", statusErr(503), NetworkError},
		{"http 400", statusErr(400), GeneralError},
		{"other", stderrors.New("something broke"), GeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetermineExitCode(tt.err); got != tt.want {
				t.Errorf("DetermineExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGetExitCodeDescription(t *testing.T) {
	if GetExitCodeDescription(AuthError) != "Authentication error" {
		t.Error("unexpected description for AuthError")
	}
	if GetExitCodeDescription(99) != "Unknown error" {
		t.Error("unexpected description for unknown code")
	}
}

type statusErr int

func (s statusErr) Error() string   { return fmt.Sprintf("status %d", int(s)) }
func (s statusErr) HTTPStatus() int { return int(s) }
