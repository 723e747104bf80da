// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the Ollama client.
type ClientError struct {
	Type       ErrorType
	Message    string
	StatusCode int // set for ErrTypeProtocol when the server answered
	Cause      error
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
	// ErrTypeConnection covers refused connections, DNS failures, dial
	// timeouts and connections dropped mid-stream.
	ErrTypeConnection
	// ErrTypeProtocol covers non-2xx statuses and in-band {"error": ...} lines.
	ErrTypeProtocol
	// ErrTypeMalformedChunk is a stream line that is not valid JSON.
	ErrTypeMalformedChunk
)

// String returns the error type name.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeConnection:
		return "connection"
	case ErrTypeProtocol:
		return "protocol"
	case ErrTypeMalformedChunk:
		return "malformed_chunk"
	default:
		return "unknown"
	}
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the Ollama client.
type ClientConfig struct {
	// BaseURL is the Ollama API base URL (default: http://127.0.0.1:11434)
	// Note: Uses explicit IPv4 address instead of localhost to avoid IPv6 resolution issues on Windows
	BaseURL string

	// Timeout for non-streaming requests (default: 30s)
	Timeout time.Duration

	// ConnectTimeout bounds dialing for every request, streaming included (default: 5s)
	ConnectTimeout time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:        "http://127.0.0.1:11434",
		Timeout:        30 * time.Second,
		ConnectTimeout: 5 * time.Second,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the Ollama API.
//
// The Client is safe for concurrent use.
type Client struct {
	config *ClientConfig

	// httpClient serves short requests and carries config.Timeout.
	httpClient *http.Client

	// streamClient has no overall timeout; streams are bounded by context.
	streamClient *http.Client
}

// NewClient creates a new Ollama client for baseURL with default settings.
func NewClient(baseURL string) *Client {
	cfg := DefaultConfig()
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return NewClientWithConfig(cfg)
}

// NewClientWithConfig creates a new Ollama client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	// Fill in defaults for any zero values
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:11434"
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 5 * time.Second
	}

	// SECURITY: TLS not required - Ollama runs locally over HTTP
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: config.ConnectTimeout}).DialContext,
		TLSHandshakeTimeout: config.ConnectTimeout,
	}

	return &Client{
		config:       config,
		httpClient:   &http.Client{Timeout: config.Timeout, Transport: transport},
		streamClient: &http.Client{Transport: transport},
	}
}

// BaseURL returns the server URL the client talks to.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// CheckRunning verifies that Ollama is reachable and running.
func (c *Client) CheckRunning(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL, nil)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "Ollama is not reachable at " + c.config.BaseURL, Cause: err}
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &ClientError{
			Type:       ErrTypeProtocol,
			StatusCode: resp.StatusCode,
			Message:    "unexpected status from Ollama: " + resp.Status,
		}
	}

	return nil
}

// =============================================================================
// MODEL OPERATIONS
// =============================================================================

// ListModels retrieves all available models from Ollama.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/api/tags", nil)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to list models", Cause: err}
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, "failed to list models")
	}

	var result ListModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeProtocol, Message: "failed to decode model list", Cause: err}
	}

	return result.Models, nil
}

// ModelNames returns the names of the locally available models.
func (c *Client) ModelNames(ctx context.Context) ([]string, error) {
	models, err := c.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.Name)
	}
	return names, nil
}

// FallbackModels is offered when the server cannot list its models.
var FallbackModels = []string{"deepseek-coder-v2:latest", "llama2", "mistral", "vicuna"}

// ModelNamesOrFallback returns ModelNames, or a copy of FallbackModels and
// the listing error when the server cannot answer or has no models.
func (c *Client) ModelNamesOrFallback(ctx context.Context) ([]string, error) {
	names, err := c.ModelNames(ctx)
	if err == nil && len(names) > 0 {
		return names, nil
	}
	return append([]string(nil), FallbackModels...), err
}

// =============================================================================
// STREAMING GENERATE
// =============================================================================

// OpenGenerate sends a streaming /api/generate request and returns a reader
// over the NDJSON body. The caller must Close the reader.
//
// Cancelling ctx aborts the request, including a read blocked on the body.
func (c *Client) OpenGenerate(ctx context.Context, req GenerateRequest) (*StreamReader, error) {
	req.Stream = true

	body, err := json.Marshal(req)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to marshal request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "error connecting to Ollama", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer drainAndClose(resp.Body)
		return nil, statusError(resp, "generate request failed")
	}

	return NewStreamReader(resp.Body), nil
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// statusError builds a protocol error from a non-2xx response, preferring the
// server's own {"error": ...} message when the body carries one.
func statusError(resp *http.Response, prefix string) *ClientError {
	msg := prefix + ": " + resp.Status
	var ollamaErr OllamaError
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&ollamaErr); err == nil && ollamaErr.Error != "" {
		msg = prefix + ": " + resp.Status + ": " + ollamaErr.Error
	}
	return &ClientError{Type: ErrTypeProtocol, StatusCode: resp.StatusCode, Message: msg}
}

// TypeOf returns the ErrorType carried by err, or ErrTypeUnknown.
func TypeOf(err error) ErrorType {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type
	}
	return ErrTypeUnknown
}

// IsConnection checks if an error is a transport-level failure.
func IsConnection(err error) bool {
	return TypeOf(err) == ErrTypeConnection
}

// IsProtocol checks if an error is an HTTP status or in-band server error.
func IsProtocol(err error) bool {
	return TypeOf(err) == ErrTypeProtocol
}

// IsMalformedChunk checks if an error is an undecodable stream line.
func IsMalformedChunk(err error) bool {
	return TypeOf(err) == ErrTypeMalformedChunk
}

// Helper to drain response body
func drainAndClose(r io.ReadCloser) {
	io.Copy(io.Discard, io.LimitReader(r, 64*1024))
	r.Close()
}
