// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the Ollama client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNotRunning
	ErrTypeTimeout
	ErrTypeModelNotFound
	ErrTypeConnection
	ErrTypeInvalidResponse
)

// Sentinel errors for easy checking.
var (
	ErrNotRunning    = &ClientError{Type: ErrTypeNotRunning, Message: "Ollama is not running"}
	ErrTimeout       = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrModelNotFound = &ClientError{Type: ErrTypeModelNotFound, Message: "model not found"}
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

const (
	DefaultEndpoint = "http://localhost:11434/api/generate"
	DefaultModel    = "gemma2:2b"
	DefaultTimeout  = 60 * time.Second
)

// ClientConfig holds configuration options for the Ollama client.
type ClientConfig struct {
	// Endpoint is the full generate URL (default: http://localhost:11434/api/generate).
	Endpoint string

	// Model is sent with every request (default: gemma2:2b).
	Model string

	// Timeout bounds connecting, waiting for response headers, and the gap
	// between two streamed lines (default: 60s).
	Timeout time.Duration

	// Logger receives stream anomalies. Nil disables logging.
	Logger *zap.Logger
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		Endpoint: DefaultEndpoint,
		Model:    DefaultModel,
		Timeout:  DefaultTimeout,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the Ollama API. It is safe for
// concurrent use.
type Client struct {
	config     *ClientConfig
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClientWithConfig creates a new Ollama client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Endpoint == "" {
		config.Endpoint = DefaultEndpoint
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	dialer := &net.Dialer{Timeout: config.Timeout}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ResponseHeaderTimeout: config.Timeout,
		IdleConnTimeout:       90 * time.Second,
	}

	return &Client{
		config:  config,
		baseURL: baseURL(config.Endpoint),
		// No whole-request timeout: streams are bounded by the idle watchdog.
		httpClient: &http.Client{Transport: transport},
		logger:     logger.Named("ollama"),
	}
}

// baseURL strips the API path from a generate endpoint so that sibling
// endpoints (/api/tags) can be reached.
func baseURL(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(endpoint, "/api/generate")
	}
	if i := strings.Index(u.Path, "/api/"); i >= 0 {
		u.Path = u.Path[:i]
	} else {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}
	u.RawQuery = ""
	return u.String()
}

// Endpoint returns the configured generate URL.
func (c *Client) Endpoint() string {
	return c.config.Endpoint
}

// Model returns the model sent with each request.
func (c *Client) Model() string {
	return c.config.Model
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// CheckRunning verifies that Ollama is reachable and running.
func (c *Client) CheckRunning(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &ClientError{
			Type:    ErrTypeConnection,
			Message: "unexpected status from Ollama: " + resp.Status,
		}
	}
	return nil
}

// ListModels retrieves all available models from Ollama.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: "failed to list models: " + resp.Status,
		}
	}

	var result ListModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return result.Models, nil
}

// =============================================================================
// STREAMING GENERATE
// =============================================================================

// StreamCallback is called for each chunk received during streaming.
type StreamCallback func(chunk StreamChunk)

// GenerateStream posts a streaming generate request and calls callback for
// each decoded line, in order, on the calling goroutine. It returns once a
// line with done=true arrives, the body ends, or an error occurs. Empty
// Model fields are filled from the client configuration; Stream is always
// set.
func (c *Client) GenerateStream(ctx context.Context, reqBody GenerateRequest, callback StreamCallback) error {
	if reqBody.Model == "" {
		reqBody.Model = c.config.Model
	}
	reqBody.Stream = true

	body, err := json.Marshal(reqBody)
	if err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Idle watchdog: cancels the request if no line arrives within Timeout.
	var idleExpired atomic.Bool
	watchdog := time.AfterFunc(c.config.Timeout, func() {
		idleExpired.Store(true)
		cancel()
	})
	defer watchdog.Stop()

	req, err := http.NewRequestWithContext(streamCtx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if idleExpired.Load() {
			return ErrTimeout
		}
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	reader := NewStreamReader(resp.Body, c.logger)
	err = reader.Process(streamCtx, func(chunk StreamChunk) {
		watchdog.Reset(c.config.Timeout)
		callback(chunk)
	})
	c.logger.Debug("stream finished",
		zap.String("model", reader.Model()),
		zap.Int("skipped_lines", reader.Skipped()),
		zap.Bool("interrupted", err != nil))
	if err != nil {
		if idleExpired.Load() {
			return ErrTimeout
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &ClientError{Type: ErrTypeConnection, Message: "stream interrupted", Cause: err}
	}
	return nil
}

// checkStatus converts a non-2xx reply into a ClientError.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var ollamaErr OllamaError
	decodeErr := json.NewDecoder(resp.Body).Decode(&ollamaErr)

	if resp.StatusCode == http.StatusNotFound {
		if decodeErr == nil && ollamaErr.Error != "" {
			return &ClientError{Type: ErrTypeModelNotFound, Message: ollamaErr.Error}
		}
		return ErrModelNotFound
	}
	if decodeErr == nil && ollamaErr.Error != "" {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: ollamaErr.Error}
	}
	return &ClientError{
		Type:    ErrTypeInvalidResponse,
		Message: "stream request failed: " + resp.Status,
	}
}

// classifyTransportError maps a failed http.Do into a ClientError.
func classifyTransportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
	}
	return &ClientError{Type: ErrTypeNotRunning, Message: "Ollama is not running", Cause: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsModelNotFound checks if an error is a model not found error.
func IsModelNotFound(err error) bool {
	return hasType(err, ErrTypeModelNotFound)
}

// IsNotRunning checks if an error indicates Ollama is not running.
func IsNotRunning(err error) bool {
	return hasType(err, ErrTypeNotRunning)
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	return hasType(err, ErrTypeTimeout)
}

func hasType(err error, t ErrorType) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == t
	}
	return false
}
