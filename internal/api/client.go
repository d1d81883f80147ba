// Package api is the client for the job-portal REST backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/centennial-infotech/portal/internal/errors"
	"github.com/centennial-infotech/portal/internal/log"
)

// DefaultBaseURL is used when no api.url is configured.
const DefaultBaseURL = "http://localhost:5000"

// TokenFunc returns the bearer token for the next request, or "".
type TokenFunc func() string

// ForcedReauthFunc is called when the backend ends the session. token is
// the bearer token the rejected request carried, which may no longer be the
// current one by the time the response arrives.
type ForcedReauthFunc func(ctx context.Context, token, redirectTo string)

// Observer receives one call per completed request. status is 0 when no
// response arrived.
type Observer interface {
	ObserveRequest(op, method string, status int, elapsed time.Duration)
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration

	// Retries is the number of extra attempts for idempotent GETs.
	Retries      int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	Token          TokenFunc
	OnForcedReauth ForcedReauthFunc
	Observer       Observer
	Logger         *log.Logger

	// Transport overrides the base round tripper (tests).
	Transport http.RoundTripper
}

// Client is the job-portal API client
type Client struct {
	baseURL        string
	retrying       *retryablehttp.Client
	plain          *http.Client
	token          TokenFunc
	onForcedReauth ForcedReauthFunc
	observer       Observer
	logger         *log.Logger
}

// NewClient creates a new API client
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryWaitMin <= 0 {
		opts.RetryWaitMin = 200 * time.Millisecond
	}
	if opts.RetryWaitMax <= 0 {
		opts.RetryWaitMax = 2 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Token == nil {
		opts.Token = func() string { return "" }
	}

	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	httpClient := &http.Client{
		Transport: otelhttp.NewTransport(base),
		Timeout:   opts.Timeout,
	}

	logger := opts.Logger.WithComponent("api")

	retrying := retryablehttp.NewClient()
	retrying.HTTPClient = httpClient
	retrying.RetryMax = opts.Retries
	retrying.RetryWaitMin = opts.RetryWaitMin
	retrying.RetryWaitMax = opts.RetryWaitMax
	retrying.Logger = logger
	retrying.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		retrying:       retrying,
		plain:          httpClient,
		token:          opts.Token,
		onForcedReauth: opts.OnForcedReauth,
		observer:       opts.Observer,
		logger:         logger,
	}
}

// BaseURL returns the backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetForcedReauthHandler replaces the forced re-authentication hook.
func (c *Client) SetForcedReauthHandler(fn ForcedReauthFunc) {
	c.onForcedReauth = fn
}

// do performs one request. GETs are retried on transient failures; other
// methods are sent once. op names the call for logs and metrics.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	requestID := uuid.NewString()
	token := c.token()
	start := time.Now()

	resp, err := c.send(ctx, method, c.baseURL+path, payload, requestID, token)
	elapsed := time.Since(start)
	if err != nil {
		c.observe(op, method, 0, elapsed)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Debug("request failed", "op", op, "request_id", requestID, "error", err)
		return errors.NewAPIUnavailableError(c.baseURL, err)
	}
	c.observe(op, method, resp.StatusCode, elapsed)
	c.logger.Debug("request completed",
		"op", op,
		"method", method,
		"status", resp.StatusCode,
		"request_id", requestID,
		"elapsed", elapsed)

	return c.parseResponse(ctx, resp, token, out)
}

func (c *Client) send(ctx context.Context, method, url string, payload []byte, requestID, token string) (*http.Response, error) {
	setHeaders := func(h http.Header) {
		h.Set("Accept", "application/json")
		if payload != nil {
			h.Set("Content-Type", "application/json")
		}
		h.Set("X-Request-ID", requestID)
		if token != "" {
			h.Set("Authorization", "Bearer "+token)
		}
	}

	if method == http.MethodGet {
		req, err := retryablehttp.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		setHeaders(req.Header)
		return c.retrying.Do(req)
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	setHeaders(req.Header)
	return c.plain.Do(req)
}

func (c *Client) observe(op, method string, status int, elapsed time.Duration) {
	if c.observer != nil {
		c.observer.ObserveRequest(op, method, status, elapsed)
	}
}

// errorBody is the backend's error envelope.
type errorBody struct {
	Message    string            `json:"message"`
	Error      string            `json:"error"`
	RedirectTo string            `json:"redirectTo"`
	Errors     map[string]string `json:"errors"`
}

// parseResponse decodes a 2xx body into out, or turns anything else into
// a typed error.
func (c *Client) parseResponse(ctx context.Context, resp *http.Response, token string, out any) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(errors.ErrCodeAPIResponse, "failed to read response", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(bytes.TrimSpace(body)) == 0 {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return errors.Wrap(errors.ErrCodeAPIResponse, "failed to decode response", err)
		}
		return nil
	}

	var eb errorBody
	_ = json.Unmarshal(body, &eb)

	if resp.StatusCode == http.StatusUnauthorized && eb.RedirectTo != "" {
		c.logger.Warn("invalid token detected", "redirect_to", eb.RedirectTo)
		if c.onForcedReauth != nil {
			c.onForcedReauth(ctx, token, eb.RedirectTo)
		}
		return &ForcedReauthError{RedirectTo: eb.RedirectTo, Message: eb.Message}
	}

	apiErr := &APIError{
		Status: resp.StatusCode,
		Fields: eb.Errors,
	}
	switch {
	case resp.StatusCode == http.StatusInternalServerError || resp.StatusCode == http.StatusServiceUnavailable:
		apiErr.Message = serverMessage(eb.Message)
	case eb.Message != "":
		apiErr.Message = eb.Message
	case eb.Error != "":
		apiErr.Message = eb.Error
	default:
		apiErr.Message = fmt.Sprintf("request failed with status %d", resp.StatusCode)
	}
	return apiErr
}

const databaseDownMessage = "Service unavailable: Database not connected"

// serverMessage turns a 500/503 body message into text fit for users.
func serverMessage(msg string) string {
	switch msg {
	case databaseDownMessage:
		return "The server is temporarily unavailable due to database issues. Please try again later."
	case "":
		return "An unexpected server error occurred."
	default:
		return msg
	}
}

// Ping reports the status the backend answers a HEAD of its root with.
// Any answer means the backend is reachable.
func (c *Client) Ping(ctx context.Context) (int, error) {
	start := time.Now()
	resp, err := c.send(ctx, http.MethodHead, c.baseURL+"/", nil, uuid.NewString(), c.token())
	if err != nil {
		c.observe("ping", http.MethodHead, 0, time.Since(start))
		return 0, err
	}
	resp.Body.Close()
	c.observe("ping", http.MethodHead, resp.StatusCode, time.Since(start))
	return resp.StatusCode, nil
}
