// Package auth runs the account workflows that end in a session change:
// login, signup and email verification. Input is validated before any
// request is made.
package auth

import (
	"context"
	"strings"

	"github.com/centennial-infotech/portal/internal/api"
	"github.com/centennial-infotech/portal/internal/form"
	"github.com/centennial-infotech/portal/internal/log"
	"github.com/centennial-infotech/portal/internal/session"
)

// Backend is the part of the API client the workflows use.
type Backend interface {
	Login(ctx context.Context, creds api.Credentials) (*api.LoginResponse, error)
	AdminLogin(ctx context.Context, creds api.Credentials) (*api.LoginResponse, error)
	Signup(ctx context.Context, req api.SignupRequest) (*api.SignupResponse, error)
	AdminSignup(ctx context.Context, req api.SignupRequest) (*api.SignupResponse, error)
	VerifyOTP(ctx context.Context, email, otp string) (*api.VerifyOTPResponse, error)
	ResendOTP(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// Service performs the workflows against a session context.
type Service struct {
	backend Backend
	sc      *session.Context
	logger  *log.Logger
}

// NewService creates a Service.
func NewService(backend Backend, sc *session.Context, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Discard()
	}
	return &Service{backend: backend, sc: sc, logger: logger.WithComponent("auth")}
}

// Login signs in through the candidate portal, or the admin portal when
// admin is set. A rejected login leaves the session untouched.
func (s *Service) Login(ctx context.Context, email, password string, admin bool) (session.Snapshot, error) {
	in := form.Login{Email: strings.TrimSpace(email), Password: strings.TrimSpace(password)}
	if err := form.Validate(&in); err != nil {
		return session.Snapshot{}, validationErr(err)
	}

	creds := api.Credentials{Email: in.Email, Password: in.Password}
	var (
		resp *api.LoginResponse
		err  error
	)
	if admin {
		resp, err = s.backend.AdminLogin(ctx, creds)
	} else {
		resp, err = s.backend.Login(ctx, creds)
	}
	if err != nil {
		s.logger.Debug("login rejected", "admin", admin, "error", err)
		return session.Snapshot{}, err
	}

	role := session.RoleStandard
	if resp.IsAdmin {
		role = session.RoleAdmin
	}
	lt := session.LoginUser
	if admin {
		lt = session.LoginAdmin
	}
	if parsed, ok := session.ParseLoginType(resp.LoginType); ok && parsed != session.LoginNone {
		lt = parsed
	}

	if err := s.sc.SetSession(ctx, resp.Token, resp.UserID, role, lt); err != nil {
		return session.Snapshot{}, err
	}
	return s.sc.Snapshot(), nil
}

// Signup creates an account and marks the local session as belonging to a
// new user. The backend emails an OTP to verify.
func (s *Service) Signup(ctx context.Context, name, email, password string, admin bool) (string, error) {
	in := form.Signup{Name: strings.TrimSpace(name), Email: strings.TrimSpace(email), Password: password}
	if err := form.Validate(&in); err != nil {
		return "", validationErr(err)
	}

	req := api.SignupRequest{Name: in.Name, Email: in.Email, Password: in.Password}
	var (
		resp *api.SignupResponse
		err  error
	)
	if admin {
		resp, err = s.backend.AdminSignup(ctx, req)
	} else {
		resp, err = s.backend.Signup(ctx, req)
	}
	if err != nil {
		return "", err
	}
	s.sc.SetNewUser(ctx, true)
	return resp.Message, nil
}

// Verify confirms an email address. It returns the backend's message and
// the login page to continue from. No session is established here.
func (s *Service) Verify(ctx context.Context, email, otp string, admin bool) (string, string, error) {
	in := form.VerifyOTP{Email: strings.TrimSpace(email), OTP: strings.TrimSpace(otp)}
	if err := form.Validate(&in); err != nil {
		return "", "", validationErr(err)
	}
	resp, err := s.backend.VerifyOTP(ctx, in.Email, in.OTP)
	if err != nil {
		return "", "", err
	}
	lt := session.LoginUser
	if admin || bool(resp.IsAdmin) {
		lt = session.LoginAdmin
	}
	return resp.Message, session.LoginPath(lt), nil
}

// Resend asks for a new OTP.
func (s *Service) Resend(ctx context.Context, email string) (string, error) {
	in := form.Login{Email: strings.TrimSpace(email), Password: "-"}
	if err := form.Validate(&in); err != nil {
		return "", validationErr(err)
	}
	return s.backend.ResendOTP(ctx, in.Email)
}

// ResetPassword sets a new password with a reset token.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	in := form.ResetPassword{Token: strings.TrimSpace(token), NewPassword: newPassword}
	if err := form.Validate(&in); err != nil {
		return validationErr(err)
	}
	return s.backend.ResetPassword(ctx, in.Token, in.NewPassword)
}

func validationErr(err error) error {
	if fe, ok := form.FieldsOf(err); ok {
		return fe.Err()
	}
	return err
}
