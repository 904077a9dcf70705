// Package gateway is the HTTP client every REST-backed store goes through.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LoginPath is where the operator is sent when the backend rejects the token.
const LoginPath = "/login"

var (
	// ErrNetwork is returned when no response was received at all.
	ErrNetwork = errors.New("network error occurred, please check your connection")
	// ErrUnauthorized is returned on HTTP 401 after the token was discarded.
	ErrUnauthorized = errors.New("unauthorized")
)

// APIError is a non-2xx response, or a 2xx envelope with success=false.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Tokens supplies and revokes the bearer token.
type Tokens interface {
	Token() string
	RemoveToken(ctx context.Context) error
}

// Navigator is told where the operator should go next.
type Navigator interface {
	Path() string
	Navigate(path string)
}

// Client issues JSON requests against the backend base URL.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  Tokens
	nav     Navigator
	log     *zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithNavigator sets where 401 responses redirect to.
func WithNavigator(nav Navigator) Option {
	return func(c *Client) { c.nav = nav }
}

// New creates a client. tokens may be nil for unauthenticated use.
func New(baseURL string, tokens Tokens, logger *zerolog.Logger, opts ...Option) *Client {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		tokens:  tokens,
		log:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends body as JSON and decodes a 2xx response into out (when non-nil).
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	raw, _, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// DoEnvelope is Do for endpoints answering `{"success": bool, "message": ...}`.
// success=false becomes an *APIError carrying the message.
func (c *Client) DoEnvelope(ctx context.Context, method, path string, body, out any) error {
	raw, code, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}

	var env struct {
		Success *bool  `json:"success"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	if env.Success == nil || !*env.Success {
		msg := env.Message
		if msg == "" {
			msg = env.Error
		}
		if msg == "" {
			msg = "request failed"
		}
		return &APIError{Status: code, Message: msg}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body any) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("method", method).Str("path", path).Msg("network error")
		return nil, 0, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read body: %w", ErrNetwork, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		c.unauthorized(ctx)
		return nil, resp.StatusCode, ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		apiErr := &APIError{Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, raw)}
		c.log.Debug().Int("status", resp.StatusCode).Str("path", path).Str("message", apiErr.Message).Msg("api error")
		return nil, resp.StatusCode, apiErr
	}
	return raw, resp.StatusCode, nil
}

func (c *Client) unauthorized(ctx context.Context) {
	if c.tokens != nil {
		if err := c.tokens.RemoveToken(ctx); err != nil {
			c.log.Warn().Err(err).Msg("failed to discard rejected token")
		}
	}
	if c.nav != nil && c.nav.Path() != LoginPath {
		c.nav.Navigate(LoginPath)
	}
}

func errorMessage(status int, raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	if text := strings.TrimSpace(string(raw)); text != "" {
		return text
	}
	return http.StatusText(status)
}
