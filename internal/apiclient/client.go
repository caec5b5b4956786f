// Package apiclient is the HTTP client of the fan platform API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
)

// ErrNotFound is matched by StatusError values carrying a 404.
var ErrNotFound = errors.New("apiclient: not found")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Op         string
	StatusCode int
	// Message replaces the generic text; set for auth flows.
	Message string
	// Detail is the server's error field.
	Detail string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "failed to " + e.Op
}

func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

type apiError struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
	csrf  string
}

// New returns a client for baseURL. A nil httpClient gets a default client
// with a cookie jar so session and CSRF cookies survive between calls.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q", baseURL)
	}
	if httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		httpClient = &http.Client{Jar: jar}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}, nil
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// FetchCSRFToken stores the token echoed on later mutating requests.
func (c *Client) FetchCSRFToken(ctx context.Context) error {
	var out struct {
		Token string `json:"csrf_token"`
	}
	if err := c.do(ctx, "fetch CSRF token", http.MethodGet, "/api/csrf-token", nil, nil, &out); err != nil {
		return err
	}
	c.mu.Lock()
	c.csrf = out.Token
	c.mu.Unlock()
	return nil
}

// do sends a JSON request and decodes a JSON response into out (if non-nil).
// op names the operation in "failed to <op>" errors.
func (c *Client) do(ctx context.Context, op, method, path string, header http.Header, body, out any) error {
	var rdr io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request for %s: %w", op, err)
		}
		rdr = bytes.NewReader(jsonData)
		header = header.Clone()
		if header == nil {
			header = http.Header{}
		}
		header.Set("Content-Type", "application/json")
	}
	return c.doRaw(ctx, op, method, path, header, rdr, out)
}

func (c *Client) doRaw(ctx context.Context, op, method, path string, header http.Header, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request for %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.csrf != "" && method != http.MethodGet {
		req.Header.Set("X-CSRF-Token", c.csrf)
	}
	c.mu.RUnlock()

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response for %s: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Op: op, StatusCode: resp.StatusCode}
		var apiErr apiError
		if json.Unmarshal(bodyBytes, &apiErr) == nil {
			se.Detail = apiErr.Error
		}
		slog.Debug("API request failed", "op", op, "method", method, "path", path, "status", resp.StatusCode, "detail", se.Detail)
		return se
	}

	if out == nil || len(bodyBytes) == 0 {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("failed to decode response for %s: %w", op, err)
	}
	return nil
}
