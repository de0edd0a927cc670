// Package gateway is the HTTP client the API and other Go consumers use to
// reach the Chalk backends.
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
	"sync"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/chalk-edu/chalk/internal/models"
)

var ErrUnexpectedStatus = errors.New("unexpected status code")

// StatusError carries a non-2xx answer from the backend
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d, response body: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

// Client sends at most one request per call: no retries, no client timeout
// beyond the caller's context.
type Client struct {
	BaseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

// NewClient returns a client for baseURL with a traced transport
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
}

// WithToken returns a copy of c that authenticates as token
func (c *Client) WithToken(token string) *Client {
	clone := &Client{BaseURL: c.BaseURL, http: c.http}
	clone.SetToken(token)
	return clone
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) url(path string) string {
	return c.BaseURL + "/" + strings.TrimLeft(path, "/")
}

// Contact sends one request to path. Non-nil bodies are JSON encoded and the
// bearer token is attached when set. The caller closes the response body.
func (c *Client) Contact(ctx context.Context, path, method string, body any, headers map[string]string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// Do sends a request and decodes a 2xx JSON answer into out (when non-nil)
func (c *Client) Do(ctx context.Context, path, method string, body, out any) error {
	resp, err := c.Contact(ctx, path, method, body, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Logout ends the session on the auth service and forgets the token
func (c *Client) Logout(ctx context.Context) error {
	if err := c.Do(ctx, "users/logout", http.MethodPost, nil, nil); err != nil {
		return err
	}
	c.SetToken("")
	return nil
}

// Me fetches the user the token belongs to
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.Do(ctx, "users/me", http.MethodGet, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login authenticates and keeps the issued token
func (c *Client) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	var out models.LoginResponse
	if err := c.Do(ctx, "users/login", http.MethodPost, models.LoginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

// Preferences fetches the stored preference map of the current user
func (c *Client) Preferences(ctx context.Context) (map[string]string, error) {
	var prefs map[string]string
	if err := c.Do(ctx, "users/me/preferences", http.MethodGet, nil, &prefs); err != nil {
		return nil, err
	}
	return prefs, nil
}
