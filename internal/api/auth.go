package api

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/centennial-infotech/portal/internal/errors"
)

// Credentials are an email and password pair.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned by both login endpoints.
type LoginResponse struct {
	Token     string `json:"token"`
	UserID    string `json:"userId"`
	IsAdmin   Flag   `json:"isAdmin"`
	LoginType string `json:"loginType,omitempty"`
}

// SignupRequest creates an account.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupResponse may carry a token for admin signups.
type SignupResponse struct {
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
}

// VerifyOTPResponse is returned after an OTP is accepted.
type VerifyOTPResponse struct {
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
	IsAdmin Flag   `json:"isAdmin"`
}

// Login authenticates a candidate through the user portal.
func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResponse, error) {
	return c.login(ctx, "login", "/login", creds, false)
}

// AdminLogin authenticates a company administrator.
func (c *Client) AdminLogin(ctx context.Context, creds Credentials) (*LoginResponse, error) {
	return c.login(ctx, "admin_login", "/api/admin/login", creds, true)
}

func (c *Client) login(ctx context.Context, op, path string, creds Credentials, admin bool) (*LoginResponse, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	creds.Password = strings.TrimSpace(creds.Password)

	var resp LoginResponse
	if err := c.do(ctx, op, http.MethodPost, path, creds, &resp); err != nil {
		return nil, authError(err, admin)
	}
	if resp.Token == "" {
		return nil, errors.New(errors.ErrCodeAPIResponse, "login response did not include a token")
	}
	return &resp, nil
}

// authError maps a rejected login to the coded authentication errors.
// Transport failures pass through unchanged.
func authError(err error, admin bool) error {
	var apiErr *APIError
	if !stderrors.As(err, &apiErr) || apiErr.Status >= 500 {
		return err
	}
	if strings.Contains(strings.ToLower(apiErr.Message), "not verified") {
		return errors.NewEmailNotVerifiedError(admin)
	}
	pe := errors.NewInvalidCredentialsError(apiErr.Message)
	pe.Cause = apiErr
	return pe
}

// Signup creates a candidate account. An OTP is emailed for verification.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (*SignupResponse, error) {
	var resp SignupResponse
	if err := c.do(ctx, "signup", http.MethodPost, "/signup", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AdminSignup creates a company administrator account.
func (c *Client) AdminSignup(ctx context.Context, req SignupRequest) (*SignupResponse, error) {
	var resp SignupResponse
	if err := c.do(ctx, "admin_signup", http.MethodPost, "/api/admin/signup", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyOTP confirms an email address with the emailed code.
func (c *Client) VerifyOTP(ctx context.Context, email, otp string) (*VerifyOTPResponse, error) {
	body := map[string]string{"email": email, "otp": otp}
	var resp VerifyOTPResponse
	if err := c.do(ctx, "verify_otp", http.MethodPost, "/api/verify-otp", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ResendOTP asks the backend to email a fresh code.
func (c *Client) ResendOTP(ctx context.Context, email string) (string, error) {
	var resp MessageResponse
	if err := c.do(ctx, "resend_otp", http.MethodPost, "/api/resend-otp", map[string]string{"email": email}, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// ResetPassword sets a new password using a reset token.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	body := map[string]string{"token": token, "newPassword": newPassword}
	return c.do(ctx, "reset_password", http.MethodPost, "/api/reset-password", body, nil)
}

// Profile returns the signed-in account.
func (c *Client) Profile(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, "profile", http.MethodGet, "/api/profile", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
