// Package chatapi implements the REST side of the chat service: the room
// directory and message history endpoints.
package chatapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hay-kot/huddle/internal/core/chat"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 4 << 20

// Config configures a Client.
type Config struct {
	// BaseURL is the application base URL, e.g. "http://localhost:8080".
	BaseURL string
	// Timeout applies to each request when HTTPClient is nil.
	Timeout time.Duration
	// HTTPClient overrides the transport. Optional.
	HTTPClient *http.Client
}

// Client talks to the chat REST API. It implements chat.Directory and
// chat.History.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

var (
	_ chat.Directory = (*Client)(nil)
	_ chat.History   = (*Client)(nil)
)

// New creates a Client.
func New(cfg Config, log zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("chatapi: base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("chatapi: invalid base URL %q: %w", cfg.BaseURL, err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		log:        log,
	}, nil
}

// doJSON performs a request and decodes a successful JSON response into out.
// Non-2xx responses become *chat.NetworkError carrying the op name.
func (c *Client) doJSON(ctx context.Context, op, method, path string, query url.Values, out any) error {
	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, nil)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %s %s: %w", op, method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("request complete")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &chat.NetworkError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if out == nil || len(body) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}

	return nil
}
