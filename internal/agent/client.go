// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jeranaias/aostock-tui/internal/config"
)

const (
	// DefaultTimeout bounds non-streaming requests.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the number of attempts for idempotent requests.
	DefaultMaxRetries = 3

	// DefaultSearchLimit matches the history sidebar page size.
	DefaultSearchLimit = 100

	// DefaultRate and DefaultBurst size the shared request limiter.
	DefaultRate  = rate.Limit(5)
	DefaultBurst = 10

	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 5 * time.Second

	// MaxResponseSize caps non-streaming response bodies.
	MaxResponseSize = 10 * 1024 * 1024
)

// Client talks to the agent server.
type Client struct {
	baseURL     string
	apiKey      string
	assistantID string
	settings    Settings

	httpClient   *http.Client
	streamClient *http.Client
	limiter      *rate.Limiter
	maxRetries   int
	logger       *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces both the request and streaming HTTP clients.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
		c.streamClient = hc
	}
}

// WithRateLimit replaces the request limiter.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(limit, burst) }
}

// WithMaxRetries sets the attempt count for idempotent requests.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for the server configured in cfg.
func New(cfg *config.Config, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(cfg.Server.APIURL, "/"),
		apiKey:       cfg.Server.APIKey,
		assistantID:  cfg.Server.AssistantID,
		settings:     SettingsFromConfig(cfg),
		httpClient:   &http.Client{Timeout: DefaultTimeout},
		streamClient: &http.Client{},
		limiter:      rate.NewLimiter(DefaultRate, DefaultBurst),
		maxRetries:   DefaultMaxRetries,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// AssistantID returns the configured assistant or graph ID.
func (c *Client) AssistantID() string { return c.assistantID }

// =============================================================================
// ENDPOINTS
// =============================================================================

// Info probes GET /info. A nil error means the server is up.
func (c *Client) Info(ctx context.Context) (ServerInfo, error) {
	var info ServerInfo
	if err := c.doJSON(ctx, http.MethodGet, "/info", nil, &info, true); err != nil {
		return nil, err
	}
	return info, nil
}

// SearchMetadata returns the thread search filter for an assistant: UUIDs
// are assistant IDs, anything else names a graph.
func SearchMetadata(assistantID string) map[string]string {
	if _, err := uuid.Parse(assistantID); err == nil {
		return map[string]string{"assistant_id": assistantID}
	}
	return map[string]string{"graph_id": assistantID}
}

// SearchThreads lists threads created for assistantID, newest first.
// limit <= 0 uses DefaultSearchLimit.
func (c *Client) SearchThreads(ctx context.Context, assistantID string, limit int) ([]Thread, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	body := map[string]interface{}{
		"metadata": SearchMetadata(assistantID),
		"limit":    limit,
	}
	var threads []Thread
	if err := c.doJSON(ctx, http.MethodPost, "/threads/search", body, &threads, true); err != nil {
		return nil, err
	}
	return threads, nil
}

// CreateThread creates an empty thread tagged with the configured graph.
func (c *Client) CreateThread(ctx context.Context) (*Thread, error) {
	body := map[string]interface{}{
		"metadata": SearchMetadata(c.assistantID),
	}
	var th Thread
	if err := c.doJSON(ctx, http.MethodPost, "/threads", body, &th, false); err != nil {
		return nil, err
	}
	if th.ThreadID == "" {
		return nil, errors.New("server returned a thread without an id")
	}
	return &th, nil
}

// GetThread fetches a thread including its current values.
func (c *Client) GetThread(ctx context.Context, threadID string) (*Thread, error) {
	var th Thread
	if err := c.doJSON(ctx, http.MethodGet, "/threads/"+url.PathEscape(threadID), nil, &th, true); err != nil {
		return nil, err
	}
	return &th, nil
}

// DeleteThread deletes a thread.
func (c *Client) DeleteThread(ctx context.Context, threadID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/threads/"+url.PathEscape(threadID), nil, nil, true)
}

// =============================================================================
// TRANSPORT
// =============================================================================

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}
	header, err := c.settings.Header()
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}
	req.Header.Set("X-Settings", header)
	return req, nil
}

// doJSON performs a request and decodes a JSON response into out. Idempotent
// requests are retried with exponential backoff on 5xx, 429 and transport
// errors.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}, idempotent bool) error {
	attempts := 1
	if idempotent {
		attempts = c.maxRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff(attempt)):
			}
		}

		lastErr = c.doOnce(ctx, method, path, body, out)
		if lastErr == nil || !retryable(lastErr) {
			return lastErr
		}
		c.logger.Debug("REQUEST_RETRY",
			zap.String("method", method), zap.String("path", path),
			zap.Int("attempt", attempt+1), zap.Error(lastErr))
	}
	if attempts > 1 {
		return fmt.Errorf("max retries exceeded: %w", lastErr)
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, method, path string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("HTTP_RESPONSE",
		zap.String("method", method), zap.String("path", path),
		zap.Int("status", resp.StatusCode), zap.Duration("duration", time.Since(start)))

	data, err := readResponse(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// readResponse reads at most MaxResponseSize bytes.
func readResponse(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// newAPIError extracts the server's "detail" or "message" field when present.
func newAPIError(status int, body []byte) *APIError {
	var payload struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &payload) == nil {
		for _, s := range []string{payload.Detail, payload.Message, payload.Error} {
			if s != "" {
				msg = s
				break
			}
		}
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: msg}
}

func backoff(attempt int) time.Duration {
	delay := retryBaseDelay * time.Duration(1<<uint(attempt-1))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}
